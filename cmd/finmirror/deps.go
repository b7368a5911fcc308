package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finmirror/internal/domain/ledger"
	"finmirror/internal/domain/syncer"
	"finmirror/internal/infrastructure/postgres"
	"finmirror/internal/infrastructure/zenmoney"
	httphandlers "finmirror/internal/interfaces/http"
	"finmirror/internal/shared/config"
	"finmirror/internal/shared/middleware"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB     *postgres.DB
	Client *zenmoney.Client
	Syncer *syncer.Service
	Ledger *ledger.Service
	Cursor *postgres.CursorRepository

	// Handlers
	AccountHandler     *httphandlers.AccountHandler
	TagHandler         *httphandlers.TagHandler
	ReferenceHandler   *httphandlers.ReferenceHandler
	TransactionHandler *httphandlers.TransactionHandler
	HealthHandler      *httphandlers.HealthHandler

	Authenticator *middleware.Authenticator
}

// NewDependencies connects to the database and builds every service on top
// of it.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database", "host", cfg.Database.Host, "name", cfg.Database.DBName)

	scope := postgres.NewScope(db)

	accountRepo := postgres.NewAccountRepository(db)
	companyRepo := postgres.NewCompanyRepository(db)
	countryRepo := postgres.NewCountryRepository(db)
	instrumentRepo := postgres.NewInstrumentRepository(db)
	merchantRepo := postgres.NewMerchantRepository(db)
	tagRepo := postgres.NewTagRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	userRepo := postgres.NewUserRepository(db)
	cursorRepo := postgres.NewCursorRepository(db)

	client := zenmoney.NewClient(cfg.Remote.BaseURL)

	syncService := syncer.NewService(scope, syncer.Repositories{
		Accounts:     accountRepo,
		Companies:    companyRepo,
		Countries:    countryRepo,
		Instruments:  instrumentRepo,
		Merchants:    merchantRepo,
		Tags:         tagRepo,
		Transactions: transactionRepo,
		Users:        userRepo,
		Cursor:       cursorRepo,
	}, client, cfg.Remote.Timeout, logger)

	ledgerService := ledger.NewService(scope, ledger.Repositories{
		Accounts:     accountRepo,
		Instruments:  instrumentRepo,
		Merchants:    merchantRepo,
		Tags:         tagRepo,
		Transactions: transactionRepo,
		Users:        userRepo,
	}, syncService, logger)

	authenticator, err := middleware.NewAuthenticator(
		tokenValidator{client: client},
		cfg.Remote.AuthTimeout,
		cfg.Remote.AuthCacheTTL,
		logger.With("component", "auth"),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create authenticator: %w", err)
	}

	return &Dependencies{
		DB:                 db,
		Client:             client,
		Syncer:             syncService,
		Ledger:             ledgerService,
		Cursor:             cursorRepo,
		AccountHandler:     httphandlers.NewAccountHandler(ledgerService, logger),
		TagHandler:         httphandlers.NewTagHandler(ledgerService, logger),
		ReferenceHandler:   httphandlers.NewReferenceHandler(ledgerService, logger),
		TransactionHandler: httphandlers.NewTransactionHandler(ledgerService, logger),
		HealthHandler:      httphandlers.NewHealthHandler(cursorRepo, logger),
		Authenticator:      authenticator,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}

// tokenValidator checks bearer tokens with an empty diff request. Only an
// upstream auth rejection counts as an invalid token.
type tokenValidator struct {
	client *zenmoney.Client
}

func (v tokenValidator) Validate(ctx context.Context, token string, timeout time.Duration) error {
	err := v.client.Validate(ctx, token, timeout)
	if errors.Is(err, syncer.ErrRemoteAuth) {
		return fmt.Errorf("%w: %v", middleware.ErrInvalidToken, err)
	}
	return err
}
