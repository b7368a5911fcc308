package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"finmirror/internal/domain/account"
	"finmirror/internal/domain/transaction"
)

type AccountService interface {
	GetAccounts(ctx context.Context, showArchive, showDebts bool) ([]*account.Account, error)
}

type AccountHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

func NewAccountHandler(accounts AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{accounts: accounts, logger: loggerOrDefault(logger)}
}

// AccountResponse is the wire form of an account: timestamps as unix
// seconds, dates as YYYY-MM-DD.
type AccountResponse struct {
	*account.Account
	Changed   int64   `json:"changed"`
	StartDate *string `json:"startDate"`
}

type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

func toAccountResponse(a *account.Account) AccountResponse {
	resp := AccountResponse{Account: a, Changed: a.Changed.Unix()}
	if a.StartDate != nil {
		d := a.StartDate.Format(transaction.DateLayout)
		resp.StartDate = &d
	}
	return resp
}

// HandleListAccounts returns active accounts, or archived ones with
// showArchive=true. Debt accounts are hidden unless showDebts=true.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	showArchive, err := parseBoolParam(query.Get("showArchive"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "showArchive must be a boolean")
		return
	}
	showDebts, err := parseBoolParam(query.Get("showDebts"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "showDebts must be a boolean")
		return
	}

	accounts, err := h.accounts.GetAccounts(r.Context(), showArchive, showDebts)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	response := ListAccountsResponse{Accounts: make([]AccountResponse, 0, len(accounts))}
	for _, a := range accounts {
		response.Accounts = append(response.Accounts, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, response)
}

// parseBoolParam treats an absent parameter as false.
func parseBoolParam(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(strings.ToLower(raw))
}
