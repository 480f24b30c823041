package service

import (
	"context"
	"strings"
	"time"

	"devlink/internal/domain"
	"devlink/internal/store"
	"devlink/internal/util"
)

type BusinessStore interface {
	InsertBusiness(ctx context.Context, in store.BusinessInsert) error
	ListBusinesses(ctx context.Context, ownerID string, limit, offset int) ([]store.Business, int, error)
}

type BusinessService struct {
	Store BusinessStore
	NewID func() string
	Now   func() time.Time
}

func NewBusinessService(s BusinessStore) *BusinessService {
	return &BusinessService{Store: s, NewID: util.NewBusinessID, Now: util.NowUTC}
}

type BusinessInput struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Category string            `json:"category,omitempty"`
	City     string            `json:"city,omitempty"`
	Country  string            `json:"country,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *BusinessService) Save(ctx context.Context, ownerID string, inputs []BusinessInput) (int, error) {
	saved := 0
	for _, in := range inputs {
		if strings.TrimSpace(in.Name) == "" {
			return saved, domain.ErrMissingFields
		}
		if err := s.Store.InsertBusiness(ctx, store.BusinessInsert{
			ID:       s.NewID(),
			OwnerID:  ownerID,
			Name:     in.Name,
			Email:    util.NormalizeEmail(in.Email),
			Category: in.Category,
			City:     in.City,
			Country:  in.Country,
			Metadata: in.Metadata,
			Now:      s.Now(),
		}); err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

func (s *BusinessService) List(ctx context.Context, ownerID string, page, pageSize int) ([]store.Business, int, error) {
	page, pageSize = clampPage(page, pageSize)
	return s.Store.ListBusinesses(ctx, ownerID, pageSize, (page-1)*pageSize)
}
