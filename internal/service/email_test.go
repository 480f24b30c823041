package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devlink/internal/channel"
	"devlink/internal/domain"
	"devlink/internal/store"
)

type fakeEmailStore struct {
	logs      []store.EmailLogInsert
	insertErr error
}

func (f *fakeEmailStore) InsertEmailLog(ctx context.Context, in store.EmailLogInsert) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.logs = append(f.logs, in)
	return nil
}

func (f *fakeEmailStore) ListEmailLogs(ctx context.Context, ownerID string, limit, offset int) ([]store.EmailLogEntry, int, error) {
	out := make([]store.EmailLogEntry, len(f.logs))
	for i, in := range f.logs {
		out[i] = store.EmailLogEntry{ID: in.ID, OwnerID: in.OwnerID, Status: in.Status}
	}
	return out, len(out), nil
}

type stubChannel struct {
	err  error
	sent []channel.Message
}

func (s *stubChannel) Send(ctx context.Context, account string, msg channel.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newEmailService(fs *fakeEmailStore, ch channel.Channel) *EmailService {
	svc := NewEmailService(fs, ch)
	svc.NewID = func() string { return "eml_test" }
	svc.Now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestSendSuccessLogsSent(t *testing.T) {
	fs := &fakeEmailStore{}
	ch := &stubChannel{}
	svc := newEmailService(fs, ch)

	err := svc.Send(context.Background(), "u1", domain.SendEmailRequest{
		Subject:    "hello",
		Body:       "world",
		Recipients: []string{"a@example.com", "b@example.com"},
	})
	require.NoError(t, err)
	require.Len(t, ch.sent, 1)

	require.Len(t, fs.logs, 1)
	entry := fs.logs[0]
	assert.Equal(t, string(domain.LogSent), entry.Status)
	assert.Equal(t, "a@example.com,b@example.com", entry.Recipients)
	assert.Empty(t, entry.ErrorMsg)
}

func TestSendFailureStillLogged(t *testing.T) {
	fs := &fakeEmailStore{}
	sendErr := &channel.SendError{Kind: channel.KindTransportRefused, Err: errors.New("550 rejected")}
	svc := newEmailService(fs, &stubChannel{err: sendErr})

	err := svc.Send(context.Background(), "u1", domain.SendEmailRequest{
		Subject:    "hello",
		Body:       "world",
		Recipients: []string{"a@example.com"},
	})
	assert.ErrorIs(t, err, sendErr.Err)

	require.Len(t, fs.logs, 1)
	assert.Equal(t, string(domain.LogFailed), fs.logs[0].Status)
	assert.Contains(t, fs.logs[0].ErrorMsg, "550 rejected")
}

func TestSendValidation(t *testing.T) {
	fs := &fakeEmailStore{}
	ch := &stubChannel{}
	svc := newEmailService(fs, ch)

	err := svc.Send(context.Background(), "u1", domain.SendEmailRequest{Subject: "no recipients", Body: "x"})
	assert.ErrorIs(t, err, domain.ErrMissingFields)
	assert.Empty(t, ch.sent, "nothing leaves the process on invalid input")
	assert.Empty(t, fs.logs)
}

func TestSendLedgerWriteFailure(t *testing.T) {
	fs := &fakeEmailStore{insertErr: errors.New("db down")}
	svc := newEmailService(fs, &stubChannel{})

	err := svc.Send(context.Background(), "u1", domain.SendEmailRequest{
		Subject:    "hello",
		Body:       "world",
		Recipients: []string{"a@example.com"},
	})
	assert.EqualError(t, err, "db down")
}

func TestSaveBusinessesRequiresName(t *testing.T) {
	fs := &fakeBusinessStore{}
	svc := NewBusinessService(fs)
	svc.NewID = func() string { return "biz_test" }

	saved, err := svc.Save(context.Background(), "u1", []BusinessInput{
		{Name: "First", Email: "F@Example.com"},
		{Name: "   "},
	})
	assert.ErrorIs(t, err, domain.ErrMissingFields)
	assert.Equal(t, 1, saved)

	require.Len(t, fs.inserts, 1)
	assert.Equal(t, "f@example.com", fs.inserts[0].Email)
}

type fakeBusinessStore struct {
	inserts []store.BusinessInsert
}

func (f *fakeBusinessStore) InsertBusiness(ctx context.Context, in store.BusinessInsert) error {
	f.inserts = append(f.inserts, in)
	return nil
}

func (f *fakeBusinessStore) ListBusinesses(ctx context.Context, ownerID string, limit, offset int) ([]store.Business, int, error) {
	var out []store.Business
	for _, in := range f.inserts {
		if in.OwnerID == ownerID {
			out = append(out, store.Business{ID: in.ID, OwnerID: in.OwnerID, Name: in.Name, Email: in.Email})
		}
	}
	return out, len(out), nil
}
