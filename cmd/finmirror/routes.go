package main

import (
	"log/slog"
	"net/http"

	"finmirror/internal/shared/config"
	"finmirror/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies, cfg *config.Config, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", deps.HealthHandler.HandleHealth)

	// Protected routes
	auth := deps.Authenticator.Middleware

	mux.Handle("/api/v1/accounts", auth(http.HandlerFunc(deps.AccountHandler.HandleListAccounts)))
	mux.Handle("/api/v1/tags", auth(http.HandlerFunc(deps.TagHandler.HandleListTags)))
	mux.Handle("/api/v1/instruments", auth(http.HandlerFunc(deps.ReferenceHandler.HandleListInstruments)))
	mux.Handle("/api/v1/merchants", auth(http.HandlerFunc(deps.ReferenceHandler.HandleListMerchants)))
	mux.Handle("/api/v1/transactions", auth(http.HandlerFunc(deps.TransactionHandler.HandleListTransactions)))
	mux.Handle("/api/v1/transactions/incomes", auth(http.HandlerFunc(deps.TransactionHandler.HandleCreateIncome)))
	mux.Handle("/api/v1/transactions/expenses", auth(http.HandlerFunc(deps.TransactionHandler.HandleCreateExpense)))

	// Apply global middleware, outermost first at request time
	var handler http.Handler = mux
	handler = middleware.Tracing(handler)
	handler = middleware.Telemetry(handler)
	handler = middleware.CORS(cfg.Server.AllowedHosts)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)

	if cfg.TLS.Enabled {
		handler = middleware.HSTS(handler)
		logger.Info("TLS security middleware enabled (HSTS)")
	}

	return handler
}
