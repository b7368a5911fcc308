package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finmirror/internal/domain/syncer"
	"finmirror/internal/domain/transaction"
	"finmirror/internal/shared/apperrors"
	"finmirror/internal/shared/middleware"
)

// MockTransactionService implements TransactionService for testing
type MockTransactionService struct {
	GetTransactionsFunc   func(ctx context.Context, params transaction.FindParams) (*transaction.Page, error)
	CreateTransactionFunc func(ctx context.Context, token string, params transaction.CreateParams) (*transaction.Enriched, bool, error)
}

func (m *MockTransactionService) GetTransactions(ctx context.Context, params transaction.FindParams) (*transaction.Page, error) {
	if m.GetTransactionsFunc != nil {
		return m.GetTransactionsFunc(ctx, params)
	}
	return &transaction.Page{Limit: params.Limit, Offset: params.Offset}, nil
}

func (m *MockTransactionService) CreateTransaction(ctx context.Context, token string, params transaction.CreateParams) (*transaction.Enriched, bool, error) {
	if m.CreateTransactionFunc != nil {
		return m.CreateTransactionFunc(ctx, token, params)
	}
	return nil, false, nil
}

var (
	testAccountID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testTagID     = uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000001")
	testTxID      = uuid.MustParse("dddddddd-0000-0000-0000-000000000001")
)

func enrichedFixture() *transaction.Enriched {
	return &transaction.Enriched{
		Transaction: &transaction.Transaction{
			ID:             testTxID,
			User:           42,
			Changed:        time.Unix(1700000500, 0),
			Created:        time.Unix(1700000400, 0),
			IncomeAccount:  testAccountID,
			OutcomeAccount: testAccountID,
			Income:         decimal.Zero,
			Outcome:        decimal.RequireFromString("12.5"),
			Date:           time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC),
			Tags:           []uuid.UUID{testTagID},
		},
		Type:                   transaction.TypeExpense,
		TagsTitles:             []string{"Food"},
		IncomeAccountTitle:     "Cash",
		OutcomeAccountTitle:    "Cash",
		IncomeInstrumentTitle:  "Euro",
		OutcomeInstrumentTitle: "Euro",
	}
}

func TestParseFindParams(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	incomeType := transaction.TypeIncome
	tag2 := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000002")

	tests := []struct {
		name    string
		query   string
		check   func(t *testing.T, p transaction.FindParams)
		wantErr string
	}{
		{
			name:  "Defaults",
			query: "",
			check: func(t *testing.T, p transaction.FindParams) {
				if p.Limit != transaction.DefaultPageSize || p.Offset != 0 {
					t.Errorf("limit/offset = %d/%d", p.Limit, p.Offset)
				}
				if p.FromDate != nil || p.ToDate != nil || p.AccountID != nil || p.Type != nil || p.TagIDs != nil || p.NotViewed {
					t.Errorf("unexpected filters: %+v", p)
				}
			},
		},
		{
			name:  "All Filters",
			query: "offset=10&limit=5&fromDate=2026-01-01&toDate=2026-01-31&notViewed=true&accountId=" + testAccountID.String() + "&transactionType=Income",
			check: func(t *testing.T, p transaction.FindParams) {
				if p.Offset != 10 || p.Limit != 5 || !p.NotViewed {
					t.Errorf("params = %+v", p)
				}
				if p.FromDate == nil || !p.FromDate.Equal(from) {
					t.Errorf("fromDate = %v", p.FromDate)
				}
				if p.ToDate == nil || p.ToDate.Day() != 31 {
					t.Errorf("toDate = %v", p.ToDate)
				}
				if p.AccountID == nil || *p.AccountID != testAccountID {
					t.Errorf("accountId = %v", p.AccountID)
				}
				if p.Type == nil || *p.Type != incomeType {
					t.Errorf("type = %v", p.Type)
				}
			},
		},
		{
			name:  "Repeated And Comma Separated Tags",
			query: "tags=" + testTagID.String() + "," + tag2.String() + "&tags=" + testTagID.String(),
			check: func(t *testing.T, p transaction.FindParams) {
				want := []uuid.UUID{testTagID, tag2, testTagID}
				if len(p.TagIDs) != len(want) {
					t.Fatalf("tags = %v", p.TagIDs)
				}
				for i := range want {
					if p.TagIDs[i] != want[i] {
						t.Errorf("tags[%d] = %v, want %v", i, p.TagIDs[i], want[i])
					}
				}
			},
		},
		{name: "Bad Offset", query: "offset=x", wantErr: "offset"},
		{name: "Bad Limit", query: "limit=1.5", wantErr: "limit"},
		{name: "Bad Date", query: "fromDate=01/02/2026", wantErr: "fromDate"},
		{name: "Bad Account", query: "accountId=nope", wantErr: "accountId"},
		{name: "Bad Tag", query: "tags=nope", wantErr: "tags"},
		{name: "Bad Type", query: "transactionType=Gift", wantErr: "transactionType"},
		{name: "Bad Bool", query: "notViewed=perhaps", wantErr: "notViewed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?"+tt.query, nil)
			p, err := parseFindParams(req.URL.Query())
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want mention of %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.check(t, p)
		})
	}
}

func TestHandleListTransactions(t *testing.T) {
	tests := []struct {
		name           string
		query          string
		serviceErr     error
		expectedStatus int
	}{
		{
			name:           "Success",
			query:          "?limit=10",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "Unparseable Query",
			query:          "?limit=ten",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Rejected By Service",
			query:          "?limit=1000",
			serviceErr:     apperrors.InvalidArgument("limit must be between 1 and 100, got 1000"),
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockTransactionService{
				GetTransactionsFunc: func(ctx context.Context, params transaction.FindParams) (*transaction.Page, error) {
					if tt.serviceErr != nil {
						return nil, tt.serviceErr
					}
					return &transaction.Page{
						Items:      []*transaction.Enriched{enrichedFixture()},
						Limit:      params.Limit,
						Offset:     params.Offset,
						TotalCount: 7,
					}, nil
				},
			}
			rr := httptest.NewRecorder()
			NewTransactionHandler(svc, nil).HandleListTransactions(rr, httptest.NewRequest(http.MethodGet, "/api/v1/transactions"+tt.query, nil))

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if rr.Code != http.StatusOK {
				return
			}

			var body struct {
				Limit        int              `json:"limit"`
				Offset       int              `json:"offset"`
				TotalCount   int              `json:"totalCount"`
				Transactions []map[string]any `json:"transactions"`
			}
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Limit != 10 || body.TotalCount != 7 || len(body.Transactions) != 1 {
				t.Fatalf("page = %+v", body)
			}
			got := body.Transactions[0]
			if got["date"] != "2026-01-18" {
				t.Errorf("date = %v", got["date"])
			}
			if got["changed"] != float64(1700000500) || got["created"] != float64(1700000400) {
				t.Errorf("timestamps = %v / %v", got["changed"], got["created"])
			}
			if got["transactionType"] != "Expense" || got["outcome"] != "12.5" {
				t.Errorf("transaction = %v", got)
			}
			if titles, _ := got["tagsTitles"].([]any); len(titles) != 1 || titles[0] != "Food" {
				t.Errorf("tagsTitles = %v", got["tagsTitles"])
			}
			if got["merchantTitle"] != nil {
				t.Errorf("merchantTitle = %v, want null", got["merchantTitle"])
			}
		})
	}
}

func TestHandleCreateTransaction(t *testing.T) {
	validBody := fmt.Sprintf(`{"transactionId":%q,"accountId":%q,"tagId":%q,"amount":12.5,"comment":"lunch","date":"2026-01-18"}`,
		testTxID, testAccountID, testTagID)

	tests := []struct {
		name           string
		path           string
		kind           transaction.Kind
		method         string
		token          string
		body           string
		echoed         bool
		serviceErr     error
		expectedStatus int
		expectCall     bool
	}{
		{
			name:           "Expense Echoed",
			kind:           transaction.KindExpense,
			method:         http.MethodPost,
			token:          "tok",
			body:           validBody,
			echoed:         true,
			expectedStatus: http.StatusCreated,
			expectCall:     true,
		},
		{
			name:           "Income Not Echoed",
			kind:           transaction.KindIncome,
			method:         http.MethodPost,
			token:          "tok",
			body:           validBody,
			expectedStatus: http.StatusOK,
			expectCall:     true,
		},
		{
			name:           "Missing Token",
			kind:           transaction.KindExpense,
			method:         http.MethodPost,
			body:           validBody,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Malformed JSON",
			kind:           transaction.KindExpense,
			method:         http.MethodPost,
			token:          "tok",
			body:           `{"accountId":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Bad UUID",
			kind:           transaction.KindExpense,
			method:         http.MethodPost,
			token:          "tok",
			body:           `{"accountId":"not-a-uuid","tagId":"` + testTagID.String() + `","amount":1}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Bad Date",
			kind:           transaction.KindIncome,
			method:         http.MethodPost,
			token:          "tok",
			body:           `{"accountId":"` + testAccountID.String() + `","tagId":"` + testTagID.String() + `","amount":1,"date":"18.01.2026"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Conflict",
			kind:           transaction.KindExpense,
			method:         http.MethodPost,
			token:          "tok",
			body:           validBody,
			serviceErr:     apperrors.Conflict("transaction %s already exists", testTxID),
			expectedStatus: http.StatusConflict,
			expectCall:     true,
		},
		{
			name:           "Upstream Rejects Token",
			kind:           transaction.KindExpense,
			method:         http.MethodPost,
			token:          "tok",
			body:           validBody,
			serviceErr:     fmt.Errorf("push: %w", syncer.ErrRemoteAuth),
			expectedStatus: http.StatusUnauthorized,
			expectCall:     true,
		},
		{
			name:           "Method Not Allowed",
			kind:           transaction.KindExpense,
			method:         http.MethodGet,
			token:          "tok",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				called    bool
				gotToken  string
				gotParams transaction.CreateParams
			)
			svc := &MockTransactionService{
				CreateTransactionFunc: func(ctx context.Context, token string, params transaction.CreateParams) (*transaction.Enriched, bool, error) {
					called, gotToken, gotParams = true, token, params
					if tt.serviceErr != nil {
						return nil, false, tt.serviceErr
					}
					return enrichedFixture(), tt.echoed, nil
				},
			}
			handler := NewTransactionHandler(svc, nil)

			req := httptest.NewRequest(tt.method, "/api/v1/transactions/expenses", strings.NewReader(tt.body))
			if tt.token != "" {
				req = req.WithContext(middleware.WithToken(req.Context(), tt.token))
			}
			rr := httptest.NewRecorder()
			if tt.kind == transaction.KindIncome {
				handler.HandleCreateIncome(rr, req)
			} else {
				handler.HandleCreateExpense(rr, req)
			}

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if called != tt.expectCall {
				t.Fatalf("service called = %v, want %v", called, tt.expectCall)
			}
			if !called || tt.serviceErr != nil {
				return
			}

			if gotToken != tt.token {
				t.Errorf("token = %q", gotToken)
			}
			if gotParams.Kind != tt.kind || gotParams.ID != testTxID || gotParams.AccountID != testAccountID || gotParams.TagID != testTagID {
				t.Errorf("params = %+v", gotParams)
			}
			if !gotParams.Amount.Equal(decimal.RequireFromString("12.5")) {
				t.Errorf("amount = %s", gotParams.Amount)
			}
			if gotParams.Comment == nil || *gotParams.Comment != "lunch" {
				t.Errorf("comment = %v", gotParams.Comment)
			}
			if gotParams.Date == nil || gotParams.Date.Format(transaction.DateLayout) != "2026-01-18" {
				t.Errorf("date = %v", gotParams.Date)
			}
			if gotParams.MerchantID != nil {
				t.Errorf("merchantId = %v, want nil", gotParams.MerchantID)
			}

			var body map[string]any
			if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["id"] != testTxID.String() || body["date"] != "2026-01-18" {
				t.Errorf("response = %v", body)
			}
		})
	}
}

func TestHandleCreateTransaction_OptionalIDAndDate(t *testing.T) {
	var got transaction.CreateParams
	svc := &MockTransactionService{
		CreateTransactionFunc: func(ctx context.Context, token string, params transaction.CreateParams) (*transaction.Enriched, bool, error) {
			got = params
			return enrichedFixture(), true, nil
		},
	}

	body := `{"accountId":"` + testAccountID.String() + `","tagId":"` + testTagID.String() + `","amount":"3.10","merchantName":"Kiosk"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions/incomes", strings.NewReader(body))
	req = req.WithContext(middleware.WithToken(req.Context(), "tok"))
	rr := httptest.NewRecorder()
	NewTransactionHandler(svc, nil).HandleCreateIncome(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	if got.ID != uuid.Nil || got.Date != nil {
		t.Errorf("id/date should be left for the service to default, got %v / %v", got.ID, got.Date)
	}
	if got.MerchantName == nil || *got.MerchantName != "Kiosk" {
		t.Errorf("merchantName = %v", got.MerchantName)
	}
	if !got.Amount.Equal(decimal.RequireFromString("3.1")) {
		t.Errorf("amount = %s", got.Amount)
	}
}
