package store

import (
	"time"

	"devlink/internal/domain"
)

type Campaign struct {
	ID          string
	OwnerID     string
	Name        string
	Subject     string
	Body        string
	Recipients  []domain.Recipient
	Status      string
	SentCount   int
	TotalCount  int
	StartedAt   *time.Time
	CompletedAt *time.Time
	ErrorMsg    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CampaignInsert struct {
	ID         string
	OwnerID    string
	Name       string
	Subject    string
	Body       string
	Recipients []domain.Recipient
	Now        time.Time
}

// CampaignStart is the guarded draft -> sending transition. Applied only
// when the row is still in draft; the caller learns via the applied flag.
type CampaignStart struct {
	ID         string
	OwnerID    string
	TotalCount int
	Now        time.Time
}

type CampaignFinish struct {
	ID       string
	Status   string
	ErrorMsg string
	Now      time.Time
}

type EmailLogEntry struct {
	ID         string
	OwnerID    string
	Subject    string
	Body       string
	Recipients string
	Status     string
	ErrorMsg   string
	CreatedAt  time.Time
}

type EmailLogInsert struct {
	ID         string
	OwnerID    string
	Subject    string
	Body       string
	Recipients string
	Status     string
	ErrorMsg   string
	Now        time.Time
}

type Credential struct {
	OwnerID      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	AccountEmail string
	Connected    bool
	UpdatedAt    time.Time
}

type CredentialUpdate struct {
	OwnerID      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
	AccountEmail string
	Connected    bool
	Now          time.Time
}

type Business struct {
	ID        string
	OwnerID   string
	Name      string
	Email     string
	Category  string
	City      string
	Country   string
	Metadata  map[string]string
	CreatedAt time.Time
}

type BusinessInsert struct {
	ID       string
	OwnerID  string
	Name     string
	Email    string
	Category string
	City     string
	Country  string
	Metadata map[string]string
	Now      time.Time
}
