package masterdata

import (
	"context"
	"errors"
	"fmt"
)

// Service exposes registry lookups to the rest of the engine.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Upsert(ctx context.Context, rec Record) (Record, error) {
	if rec.TenantID == "" {
		return Record{}, errors.New("masterdata: tenant required")
	}
	if !ValidType(rec.Type) {
		return Record{}, fmt.Errorf("%w: %q", ErrUnknownType, rec.Type)
	}
	if rec.Code == "" || rec.Name == "" {
		return Record{}, errors.New("masterdata: code and name required")
	}
	return s.repo.Upsert(ctx, rec)
}

func (s *Service) Get(ctx context.Context, tenantID string, typ RecordType, code string) (Record, error) {
	return s.repo.Get(ctx, tenantID, typ, code)
}

func (s *Service) List(ctx context.Context, tenantID string, typ RecordType) ([]Record, error) {
	if !ValidType(typ) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return s.repo.List(ctx, tenantID, typ)
}

// StoreRegion maps a store entity code to its region bucket. Stores that
// are missing from the registry land in the unassigned bucket.
func (s *Service) StoreRegion(ctx context.Context, tenantID, storeCode string) (string, error) {
	rec, err := s.repo.Get(ctx, tenantID, TypeStore, storeCode)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return RegionUnassigned, nil
		}
		return "", err
	}
	return rec.Region(), nil
}
