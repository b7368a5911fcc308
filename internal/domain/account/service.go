package account

import (
	"context"

	"github.com/google/uuid"
)

// Service contains the read logic for account operations
type Service struct {
	repo Repository
}

// NewService creates a new account service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListAccounts returns accounts matching the archive and debt flags
func (s *Service) ListAccounts(ctx context.Context, filter ListFilter) ([]*Account, error) {
	accounts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []*Account{}
	}
	return accounts, nil
}

// IndexByID loads the given accounts keyed by id. Unknown ids are skipped.
func (s *Service) IndexByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Account, error) {
	accounts, err := s.repo.GetByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]*Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}
	return byID, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
