package service

import (
	"context"
	"time"

	"devlink/internal/domain"
	"devlink/internal/store"
	"devlink/internal/util"
)

type CampaignStore interface {
	InsertCampaign(ctx context.Context, in store.CampaignInsert) error
	GetCampaign(ctx context.Context, ownerID, id string) (store.Campaign, bool, error)
	ListCampaigns(ctx context.Context, ownerID string, limit, offset int) ([]store.Campaign, int, error)
}

// Trigger is the orchestrator seam: the service validates ownership and
// shape, the runner owns the state machine.
type Trigger interface {
	Start(ctx context.Context, ownerID, campaignID string, sender domain.SenderProfile) error
}

type CampaignService struct {
	Store  CampaignStore
	Runner Trigger
	NewID  func() string
	Now    func() time.Time
}

func NewCampaignService(s CampaignStore, runner Trigger) *CampaignService {
	return &CampaignService{Store: s, Runner: runner, NewID: util.NewCampaignID, Now: util.NowUTC}
}

func (s *CampaignService) Create(ctx context.Context, ownerID string, req domain.CreateCampaignRequest) (domain.CreateCampaignResponse, error) {
	if err := req.Validate(); err != nil {
		return domain.CreateCampaignResponse{}, err
	}

	id := s.NewID()
	recipients := make([]domain.Recipient, len(req.Recipients))
	for i, r := range req.Recipients {
		r.Email = util.NormalizeEmail(r.Email)
		recipients[i] = r
	}

	if err := s.Store.InsertCampaign(ctx, store.CampaignInsert{
		ID:         id,
		OwnerID:    ownerID,
		Name:       req.Name,
		Subject:    req.Subject,
		Body:       req.Body,
		Recipients: recipients,
		Now:        s.Now(),
	}); err != nil {
		return domain.CreateCampaignResponse{}, err
	}

	return domain.CreateCampaignResponse{
		CampaignID: id,
		Status:     string(domain.StatusDraft),
		Recipients: len(recipients),
	}, nil
}

// CreateFromBusinesses seeds a draft campaign from stored business records.
// Subject/body defaults are the last-resort fallback; per-recipient content
// comes from the generator at send time.
func (s *CampaignService) CreateFromBusinesses(ctx context.Context, ownerID, name string, businesses []store.Business) (domain.CreateCampaignResponse, error) {
	recipients := make([]domain.Recipient, 0, len(businesses))
	for _, b := range businesses {
		if b.Email == "" {
			continue
		}
		recipients = append(recipients, domain.Recipient{
			Name:     b.Name,
			Email:    util.NormalizeEmail(b.Email),
			Category: b.Category,
			City:     b.City,
			Country:  b.Country,
			Metadata: b.Metadata,
		})
	}
	if name == "" {
		name = "Outreach " + s.Now().Format("2006-01-02 15:04")
	}
	return s.Create(ctx, ownerID, domain.CreateCampaignRequest{
		Name:       name,
		Subject:    "Partnership opportunity",
		Body:       "Hello, I'd love to discuss how we could work together.",
		Recipients: recipients,
	})
}

func (s *CampaignService) Get(ctx context.Context, ownerID, id string) (domain.CampaignProgress, error) {
	c, found, err := s.Store.GetCampaign(ctx, ownerID, id)
	if err != nil {
		return domain.CampaignProgress{}, err
	}
	if !found {
		return domain.CampaignProgress{}, domain.ErrNotFound
	}
	return domain.CampaignProgress{
		CampaignID:  c.ID,
		Name:        c.Name,
		Status:      c.Status,
		SentCount:   c.SentCount,
		TotalCount:  c.TotalCount,
		StartedAt:   c.StartedAt,
		CompletedAt: c.CompletedAt,
		Recipients:  c.Recipients,
	}, nil
}

func (s *CampaignService) List(ctx context.Context, ownerID string, page, pageSize int) ([]domain.CampaignProgress, int, error) {
	page, pageSize = clampPage(page, pageSize)
	campaigns, total, err := s.Store.ListCampaigns(ctx, ownerID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.CampaignProgress, len(campaigns))
	for i, c := range campaigns {
		out[i] = domain.CampaignProgress{
			CampaignID:  c.ID,
			Name:        c.Name,
			Status:      c.Status,
			SentCount:   c.SentCount,
			TotalCount:  c.TotalCount,
			StartedAt:   c.StartedAt,
			CompletedAt: c.CompletedAt,
			Recipients:  c.Recipients,
		}
	}
	return out, total, nil
}

func (s *CampaignService) Send(ctx context.Context, ownerID, id string, sender domain.SenderProfile) error {
	return s.Runner.Start(ctx, ownerID, id, sender)
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
