package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"finmirror/internal/domain/company"
	"finmirror/internal/domain/country"
	"finmirror/internal/domain/instrument"
	"finmirror/internal/domain/merchant"
)

// queryAll runs query and scans every row with scan. It never returns a nil
// slice on success.
func queryAll[T any](ctx context.Context, db *DB, kind string, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind, err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
		}
		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", kind, err)
	}
	return out, nil
}

// Instruments

var instrumentTable = upsertTable{
	name:    "instruments",
	columns: []string{"id", "changed", "title", "short_title", "symbol", "rate"},
}

type InstrumentRepository struct {
	db    *DB
	scope *Scope
}

func NewInstrumentRepository(db *DB) *InstrumentRepository {
	return &InstrumentRepository{db: db, scope: NewScope(db)}
}

func scanInstrument(s rowScanner) (*instrument.Instrument, error) {
	var i instrument.Instrument
	if err := s.Scan(&i.ID, &i.Changed, &i.Title, &i.ShortTitle, &i.Symbol, &i.Rate); err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *InstrumentRepository) GetByIDs(ctx context.Context, ids []int64) ([]*instrument.Instrument, error) {
	if len(ids) == 0 {
		return []*instrument.Instrument{}, nil
	}
	return queryAll(ctx, r.db, "instruments", scanInstrument,
		`SELECT id, changed, title, short_title, symbol, rate FROM instruments WHERE id = ANY($1)`,
		int64Array(ids))
}

func (r *InstrumentRepository) List(ctx context.Context) ([]*instrument.Instrument, error) {
	return queryAll(ctx, r.db, "instruments", scanInstrument,
		`SELECT id, changed, title, short_title, symbol, rate FROM instruments ORDER BY id ASC`)
}

func (r *InstrumentRepository) Upsert(ctx context.Context, instruments []*instrument.Instrument) error {
	return bulkUpsert(ctx, r.scope, instrumentTable, instruments,
		func(i *instrument.Instrument) int64 { return i.ID },
		func(i *instrument.Instrument) []any {
			return []any{i.ID, i.Changed, i.Title, i.ShortTitle, i.Symbol, i.Rate}
		},
	)
}

// Merchants

var merchantTable = upsertTable{
	name:    "merchants",
	columns: []string{"id", "changed", `"user"`, "title"},
}

type MerchantRepository struct {
	db    *DB
	scope *Scope
}

func NewMerchantRepository(db *DB) *MerchantRepository {
	return &MerchantRepository{db: db, scope: NewScope(db)}
}

func scanMerchant(s rowScanner) (*merchant.Merchant, error) {
	var m merchant.Merchant
	if err := s.Scan(&m.ID, &m.Changed, &m.User, &m.Title); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MerchantRepository) GetByID(ctx context.Context, id uuid.UUID) (*merchant.Merchant, error) {
	m, err := scanMerchant(r.db.QueryRowContext(ctx,
		`SELECT id, changed, "user", title FROM merchants WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, merchant.ErrMerchantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}
	return m, nil
}

func (r *MerchantRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*merchant.Merchant, error) {
	if len(ids) == 0 {
		return []*merchant.Merchant{}, nil
	}
	return queryAll(ctx, r.db, "merchants", scanMerchant,
		`SELECT id, changed, "user", title FROM merchants WHERE id = ANY($1::uuid[])`,
		uuidArray(ids))
}

func (r *MerchantRepository) List(ctx context.Context) ([]*merchant.Merchant, error) {
	return queryAll(ctx, r.db, "merchants", scanMerchant,
		`SELECT id, changed, "user", title FROM merchants ORDER BY title ASC, id ASC`)
}

func (r *MerchantRepository) Upsert(ctx context.Context, merchants []*merchant.Merchant) error {
	return bulkUpsert(ctx, r.scope, merchantTable, merchants,
		func(m *merchant.Merchant) uuid.UUID { return m.ID },
		func(m *merchant.Merchant) []any { return []any{m.ID, m.Changed, m.User, m.Title} },
	)
}

// Countries

var countryTable = upsertTable{
	name:    "countries",
	columns: []string{"id", "title", "currency", "domain"},
}

type CountryRepository struct {
	db    *DB
	scope *Scope
}

func NewCountryRepository(db *DB) *CountryRepository {
	return &CountryRepository{db: db, scope: NewScope(db)}
}

func scanCountry(s rowScanner) (*country.Country, error) {
	var c country.Country
	if err := s.Scan(&c.ID, &c.Title, &c.Currency, &c.Domain); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CountryRepository) GetByIDs(ctx context.Context, ids []int64) ([]*country.Country, error) {
	if len(ids) == 0 {
		return []*country.Country{}, nil
	}
	return queryAll(ctx, r.db, "countries", scanCountry,
		`SELECT id, title, currency, domain FROM countries WHERE id = ANY($1)`, int64Array(ids))
}

func (r *CountryRepository) List(ctx context.Context) ([]*country.Country, error) {
	return queryAll(ctx, r.db, "countries", scanCountry,
		`SELECT id, title, currency, domain FROM countries ORDER BY id ASC`)
}

func (r *CountryRepository) Upsert(ctx context.Context, countries []*country.Country) error {
	return bulkUpsert(ctx, r.scope, countryTable, countries,
		func(c *country.Country) int64 { return c.ID },
		func(c *country.Country) []any { return []any{c.ID, c.Title, c.Currency, c.Domain} },
	)
}

// Companies

var companyTable = upsertTable{
	name:    "companies",
	columns: []string{"id", "changed", "title", "full_title", "www", "country", "country_code", "deleted"},
}

type CompanyRepository struct {
	db    *DB
	scope *Scope
}

func NewCompanyRepository(db *DB) *CompanyRepository {
	return &CompanyRepository{db: db, scope: NewScope(db)}
}

func scanCompany(s rowScanner) (*company.Company, error) {
	var c company.Company
	if err := s.Scan(&c.ID, &c.Changed, &c.Title, &c.FullTitle, &c.WWW, &c.Country, &c.CountryCode, &c.Deleted); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CompanyRepository) GetByIDs(ctx context.Context, ids []int64) ([]*company.Company, error) {
	if len(ids) == 0 {
		return []*company.Company{}, nil
	}
	return queryAll(ctx, r.db, "companies", scanCompany,
		`SELECT id, changed, title, full_title, www, country, country_code, deleted
		 FROM companies WHERE id = ANY($1)`, int64Array(ids))
}

func (r *CompanyRepository) List(ctx context.Context) ([]*company.Company, error) {
	return queryAll(ctx, r.db, "companies", scanCompany,
		`SELECT id, changed, title, full_title, www, country, country_code, deleted
		 FROM companies ORDER BY id ASC`)
}

func (r *CompanyRepository) Upsert(ctx context.Context, companies []*company.Company) error {
	return bulkUpsert(ctx, r.scope, companyTable, companies,
		func(c *company.Company) int64 { return c.ID },
		func(c *company.Company) []any {
			return []any{c.ID, c.Changed, c.Title, c.FullTitle, c.WWW, c.Country, c.CountryCode, c.Deleted}
		},
	)
}
