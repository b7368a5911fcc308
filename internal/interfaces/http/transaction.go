package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finmirror/internal/domain/transaction"
	"finmirror/internal/shared/middleware"
)

// maxCreateBodyBytes caps the create request body.
const maxCreateBodyBytes = 64 << 10

type TransactionService interface {
	GetTransactions(ctx context.Context, params transaction.FindParams) (*transaction.Page, error)
	CreateTransaction(ctx context.Context, token string, params transaction.CreateParams) (*transaction.Enriched, bool, error)
}

type TransactionHandler struct {
	transactions TransactionService
	logger       *slog.Logger
}

func NewTransactionHandler(transactions TransactionService, logger *slog.Logger) *TransactionHandler {
	return &TransactionHandler{transactions: transactions, logger: loggerOrDefault(logger)}
}

// CreateTransactionRequest is shared by the income and expense endpoints.
type CreateTransactionRequest struct {
	TransactionID *uuid.UUID      `json:"transactionId"`
	AccountID     uuid.UUID       `json:"accountId"`
	TagID         uuid.UUID       `json:"tagId"`
	Amount        decimal.Decimal `json:"amount"`
	MerchantID    *uuid.UUID      `json:"merchantId"`
	MerchantName  *string         `json:"merchantName"`
	Comment       *string         `json:"comment"`
	Date          *string         `json:"date"`
}

// TransactionResponse renders timestamps as unix seconds and the booking
// date as YYYY-MM-DD.
type TransactionResponse struct {
	*transaction.Enriched
	Changed int64  `json:"changed"`
	Created int64  `json:"created"`
	Date    string `json:"date"`
}

type ListTransactionsResponse struct {
	Limit        int                   `json:"limit"`
	Offset       int                   `json:"offset"`
	TotalCount   int                   `json:"totalCount"`
	Transactions []TransactionResponse `json:"transactions"`
}

func toTransactionResponse(e *transaction.Enriched) TransactionResponse {
	return TransactionResponse{
		Enriched: e,
		Changed:  e.Changed.Unix(),
		Created:  e.Created.Unix(),
		Date:     e.Date.Format(transaction.DateLayout),
	}
}

// HandleListTransactions returns one page of enriched transactions, newest
// first, matching every filter given in the query string.
func (h *TransactionHandler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	params, err := parseFindParams(r.URL.Query())
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := h.transactions.GetTransactions(r.Context(), params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := ListTransactionsResponse{
		Limit:        page.Limit,
		Offset:       page.Offset,
		TotalCount:   page.TotalCount,
		Transactions: make([]TransactionResponse, 0, len(page.Items)),
	}
	for _, e := range page.Items {
		response.Transactions = append(response.Transactions, toTransactionResponse(e))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *TransactionHandler) HandleCreateIncome(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r, transaction.KindIncome)
}

func (h *TransactionHandler) HandleCreateExpense(w http.ResponseWriter, r *http.Request) {
	h.handleCreate(w, r, transaction.KindExpense)
}

// handleCreate answers 201 when the upstream echoed the new transaction back
// and 200 when it was accepted but not yet visible there.
func (h *TransactionHandler) handleCreate(w http.ResponseWriter, r *http.Request, kind transaction.Kind) {
	if !allowMethod(w, r, http.MethodPost) {
		return
	}

	token, ok := middleware.TokenFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Authorization bearer token is required")
		return
	}

	var req CreateTransactionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBodyBytes)).Decode(&req); err != nil {
		h.logger.DebugContext(r.Context(), "invalid create request body", "error", err)
		writeErrorMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	params := transaction.CreateParams{
		Kind:         kind,
		AccountID:    req.AccountID,
		TagID:        req.TagID,
		Amount:       req.Amount,
		MerchantID:   req.MerchantID,
		MerchantName: req.MerchantName,
		Comment:      req.Comment,
	}
	if req.TransactionID != nil {
		params.ID = *req.TransactionID
	}
	if req.Date != nil && *req.Date != "" {
		date, err := time.Parse(transaction.DateLayout, *req.Date)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)")
			return
		}
		params.Date = &date
	}

	created, echoed, err := h.transactions.CreateTransaction(r.Context(), token, params)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	status := http.StatusOK
	if echoed {
		status = http.StatusCreated
	}
	writeJSON(w, status, toTransactionResponse(created))
}

func parseFindParams(q url.Values) (transaction.FindParams, error) {
	params := transaction.FindParams{Limit: transaction.DefaultPageSize}

	var err error
	if raw := q.Get("offset"); raw != "" {
		if params.Offset, err = strconv.Atoi(raw); err != nil {
			return params, fmt.Errorf("offset must be an integer")
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if params.Limit, err = strconv.Atoi(raw); err != nil {
			return params, fmt.Errorf("limit must be an integer")
		}
	}
	if params.FromDate, err = parseDateParam(q, "fromDate"); err != nil {
		return params, err
	}
	if params.ToDate, err = parseDateParam(q, "toDate"); err != nil {
		return params, err
	}
	if params.NotViewed, err = parseBoolParam(q.Get("notViewed")); err != nil {
		return params, fmt.Errorf("notViewed must be a boolean")
	}
	if raw := q.Get("accountId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return params, fmt.Errorf("accountId must be a UUID")
		}
		params.AccountID = &id
	}

	// Both ?tags=a&tags=b and ?tags=a,b are accepted.
	for _, value := range q["tags"] {
		for _, raw := range strings.Split(value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := uuid.Parse(raw)
			if err != nil {
				return params, fmt.Errorf("tags must be UUIDs, got %q", raw)
			}
			params.TagIDs = append(params.TagIDs, id)
		}
	}

	if raw := q.Get("transactionType"); raw != "" {
		t := transaction.Type(raw)
		if !t.Valid() {
			return params, fmt.Errorf("unknown transactionType %q", raw)
		}
		params.Type = &t
	}
	return params, nil
}

func parseDateParam(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(transaction.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be a date in YYYY-MM-DD format", name)
	}
	return &d, nil
}
