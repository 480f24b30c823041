package domain

import (
	"errors"
	"strings"
	"time"
)

type CampaignStatus string

const (
	StatusDraft     CampaignStatus = "draft"
	StatusSending   CampaignStatus = "sending"
	StatusCompleted CampaignStatus = "completed"
	StatusFailed    CampaignStatus = "failed"
)

type LogStatus string

const (
	LogSent   LogStatus = "sent"
	LogFailed LogStatus = "failed"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrNotDraft      = errors.New("campaign is not in draft status")
	ErrNotFound      = errors.New("not found")
)

// Recipient is one campaign target plus the descriptive fields the content
// generator personalizes on.
type Recipient struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Category string            `json:"category,omitempty"`
	City     string            `json:"city,omitempty"`
	Country  string            `json:"country,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SenderProfile is what the content generator knows about the user sending
// the campaign. Only populated fields end up in the signature.
type SenderProfile struct {
	Name     string `json:"name"`
	Services string `json:"services"`
	Phone    string `json:"phone,omitempty"`
	Website  string `json:"website,omitempty"`
	Company  string `json:"company,omitempty"`
	Email    string `json:"email,omitempty"`
}

type CreateCampaignRequest struct {
	Name       string      `json:"name"`
	Subject    string      `json:"subject"`
	Body       string      `json:"body"`
	Recipients []Recipient `json:"recipients"`
}

func (r CreateCampaignRequest) Validate() error {
	if r.Name == "" || len(r.Recipients) == 0 {
		return ErrMissingFields
	}
	for _, rec := range r.Recipients {
		if strings.TrimSpace(rec.Email) == "" {
			return ErrMissingFields
		}
	}
	return nil
}

type CreateCampaignResponse struct {
	CampaignID string `json:"campaignId"`
	Status     string `json:"status"`
	Recipients int    `json:"recipients"`
}

type CampaignProgress struct {
	CampaignID  string      `json:"campaignId"`
	Name        string      `json:"name"`
	Status      string      `json:"status"`
	SentCount   int         `json:"sentCount"`
	TotalCount  int         `json:"totalCount"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
	Recipients  []Recipient `json:"recipients"`
}

type SendEmailRequest struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Recipients []string `json:"recipients"`
}

func (r SendEmailRequest) Validate() error {
	if r.Subject == "" || r.Body == "" || len(r.Recipients) == 0 {
		return ErrMissingFields
	}
	return nil
}

type CredentialStatus struct {
	Connected    bool   `json:"connected"`
	AccountEmail string `json:"accountEmail,omitempty"`
	TokenValid   bool   `json:"tokenValid"`
}
