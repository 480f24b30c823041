package service

import (
	"context"
	"time"

	"devlink/internal/channel"
	"devlink/internal/domain"
	"devlink/internal/store"
	"devlink/internal/util"
)

type EmailStore interface {
	InsertEmailLog(ctx context.Context, in store.EmailLogInsert) error
	ListEmailLogs(ctx context.Context, ownerID string, limit, offset int) ([]store.EmailLogEntry, int, error)
}

// EmailService handles ad-hoc single sends outside any campaign. Unlike the
// campaign loop, the caller sees the send outcome synchronously.
type EmailService struct {
	Store   EmailStore
	Channel channel.Channel
	NewID   func() string
	Now     func() time.Time
}

func NewEmailService(s EmailStore, ch channel.Channel) *EmailService {
	return &EmailService{Store: s, Channel: ch, NewID: util.NewLogID, Now: util.NowUTC}
}

func (s *EmailService) Send(ctx context.Context, ownerID string, req domain.SendEmailRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	sendErr := s.Channel.Send(ctx, ownerID, channel.Message{
		To:      req.Recipients,
		Subject: req.Subject,
		Body:    req.Body,
	})

	entry := store.EmailLogInsert{
		ID:         s.NewID(),
		OwnerID:    ownerID,
		Subject:    req.Subject,
		Body:       req.Body,
		Recipients: util.JoinAddresses(req.Recipients),
		Status:     string(domain.LogSent),
		Now:        s.Now(),
	}
	if sendErr != nil {
		entry.Status = string(domain.LogFailed)
		entry.ErrorMsg = sendErr.Error()
	}
	if err := s.Store.InsertEmailLog(ctx, entry); err != nil {
		return err
	}
	return sendErr
}

func (s *EmailService) Logs(ctx context.Context, ownerID string, page, pageSize int) ([]store.EmailLogEntry, int, error) {
	page, pageSize = clampPage(page, pageSize)
	return s.Store.ListEmailLogs(ctx, ownerID, pageSize, (page-1)*pageSize)
}
