package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devlink/internal/channel"
	"devlink/internal/domain"
	"devlink/internal/service"
	"devlink/internal/store"
)

type memStore struct {
	campaigns  map[string]store.Campaign
	logs       []store.EmailLogEntry
	businesses []store.Business
}

func newMemStore() *memStore {
	return &memStore{campaigns: make(map[string]store.Campaign)}
}

func (m *memStore) InsertCampaign(ctx context.Context, in store.CampaignInsert) error {
	m.campaigns[in.ID] = store.Campaign{
		ID: in.ID, OwnerID: in.OwnerID, Name: in.Name,
		Subject: in.Subject, Body: in.Body,
		Recipients: in.Recipients, Status: string(domain.StatusDraft),
		CreatedAt: in.Now, UpdatedAt: in.Now,
	}
	return nil
}

func (m *memStore) GetCampaign(ctx context.Context, ownerID, id string) (store.Campaign, bool, error) {
	c, ok := m.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return store.Campaign{}, false, nil
	}
	return c, true, nil
}

func (m *memStore) ListCampaigns(ctx context.Context, ownerID string, limit, offset int) ([]store.Campaign, int, error) {
	var out []store.Campaign
	for _, c := range m.campaigns {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memStore) InsertEmailLog(ctx context.Context, in store.EmailLogInsert) error {
	m.logs = append(m.logs, store.EmailLogEntry{
		ID: in.ID, OwnerID: in.OwnerID, Subject: in.Subject, Body: in.Body,
		Recipients: in.Recipients, Status: in.Status, ErrorMsg: in.ErrorMsg, CreatedAt: in.Now,
	})
	return nil
}

func (m *memStore) ListEmailLogs(ctx context.Context, ownerID string, limit, offset int) ([]store.EmailLogEntry, int, error) {
	var out []store.EmailLogEntry
	for _, e := range m.logs {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (m *memStore) InsertBusiness(ctx context.Context, in store.BusinessInsert) error {
	m.businesses = append(m.businesses, store.Business{
		ID: in.ID, OwnerID: in.OwnerID, Name: in.Name, Email: in.Email,
		Category: in.Category, City: in.City, Country: in.Country,
		Metadata: in.Metadata, CreatedAt: in.Now,
	})
	return nil
}

func (m *memStore) ListBusinesses(ctx context.Context, ownerID string, limit, offset int) ([]store.Business, int, error) {
	var out []store.Business
	for _, b := range m.businesses {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	return out, len(out), nil
}

type fakeTrigger struct {
	err    error
	starts []string
}

func (f *fakeTrigger) Start(ctx context.Context, ownerID, campaignID string, sender domain.SenderProfile) error {
	if f.err != nil {
		return f.err
	}
	f.starts = append(f.starts, campaignID)
	return nil
}

type okChannel struct{ err error }

func (c okChannel) Send(ctx context.Context, account string, msg channel.Message) error {
	return c.err
}

type fakeVault struct {
	status domain.CredentialStatus
}

func (f *fakeVault) AuthorizationURL(state string) string { return "https://accounts.test/auth?state=" + state }
func (f *fakeVault) Connect(ctx context.Context, ownerID, code string) error { return nil }
func (f *fakeVault) Status(ctx context.Context, ownerID string) (domain.CredentialStatus, error) {
	return f.status, nil
}
func (f *fakeVault) Disconnect(ctx context.Context, ownerID string) error {
	f.status = domain.CredentialStatus{}
	return nil
}

func newTestAPI(ms *memStore, trigger *fakeTrigger, ch channel.Channel) (*API, *Server) {
	api := &API{
		Campaigns:  service.NewCampaignService(ms, trigger),
		Emails:     service.NewEmailService(ms, ch),
		Businesses: service.NewBusinessService(ms),
		Vault:      &fakeVault{status: domain.CredentialStatus{Connected: true, AccountEmail: "dev@example.com", TokenValid: true}},
	}
	srv := New()
	api.Register(srv.Mux)
	return api, srv
}

func doJSON(t *testing.T, srv *Server, method, path, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	rec := httptest.NewRecorder()
	srv.Mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateCampaign(t *testing.T) {
	ms := newMemStore()
	_, srv := newTestAPI(ms, &fakeTrigger{}, okChannel{})

	rec := doJSON(t, srv, http.MethodPost, "/v1/campaigns", "u1", domain.CreateCampaignRequest{
		Name: "spring",
		Recipients: []domain.Recipient{
			{Name: "A", Email: "A@Example.com"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.CreateCampaignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, 1, resp.Recipients)

	stored := ms.campaigns[resp.CampaignID]
	assert.Equal(t, "a@example.com", stored.Recipients[0].Email, "addresses are normalized")
}

func TestCreateCampaignValidation(t *testing.T) {
	_, srv := newTestAPI(newMemStore(), &fakeTrigger{}, okChannel{})

	rec := doJSON(t, srv, http.MethodPost, "/v1/campaigns", "u1", domain.CreateCampaignRequest{Name: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/v1/campaigns", "", domain.CreateCampaignRequest{Name: "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetCampaignNotFound(t *testing.T) {
	_, srv := newTestAPI(newMemStore(), &fakeTrigger{}, okChannel{})
	rec := doJSON(t, srv, http.MethodGet, "/v1/campaigns/cmp_missing", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendCampaignStatuses(t *testing.T) {
	ms := newMemStore()
	trigger := &fakeTrigger{}
	_, srv := newTestAPI(ms, trigger, okChannel{})

	created := doJSON(t, srv, http.MethodPost, "/v1/campaigns", "u1", domain.CreateCampaignRequest{
		Name:       "spring",
		Recipients: []domain.Recipient{{Email: "a@example.com"}},
	})
	var resp domain.CreateCampaignResponse
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	rec := doJSON(t, srv, http.MethodPost, "/v1/campaigns/"+resp.CampaignID+"/send", "u1", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{resp.CampaignID}, trigger.starts)

	trigger.err = domain.ErrNotDraft
	rec = doJSON(t, srv, http.MethodPost, "/v1/campaigns/"+resp.CampaignID+"/send", "u1", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	trigger.err = domain.ErrNotFound
	rec = doJSON(t, srv, http.MethodPost, "/v1/campaigns/cmp_other/send", "u1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendEmailLogsOutcome(t *testing.T) {
	ms := newMemStore()
	_, srv := newTestAPI(ms, &fakeTrigger{}, okChannel{})

	rec := doJSON(t, srv, http.MethodPost, "/v1/emails/send", "u1", domain.SendEmailRequest{
		Subject:    "hi",
		Body:       "there",
		Recipients: []string{"a@example.com"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, ms.logs, 1)
	assert.Equal(t, "sent", ms.logs[0].Status)
}

func TestSendEmailTransportFailure(t *testing.T) {
	ms := newMemStore()
	_, srv := newTestAPI(ms, &fakeTrigger{}, okChannel{err: &channel.SendError{
		Kind: channel.KindTransportRefused, Err: errors.New("rejected"),
	}})

	rec := doJSON(t, srv, http.MethodPost, "/v1/emails/send", "u1", domain.SendEmailRequest{
		Subject:    "hi",
		Body:       "there",
		Recipients: []string{"a@example.com"},
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	require.Len(t, ms.logs, 1, "failed sends are still logged")
	assert.Equal(t, "failed", ms.logs[0].Status)
}

func TestGmailStatus(t *testing.T) {
	_, srv := newTestAPI(newMemStore(), &fakeTrigger{}, okChannel{})
	rec := doJSON(t, srv, http.MethodGet, "/v1/gmail/status", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var st domain.CredentialStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Connected)
	assert.True(t, st.TokenValid)
}

func TestSaveAndListBusinesses(t *testing.T) {
	ms := newMemStore()
	_, srv := newTestAPI(ms, &fakeTrigger{}, okChannel{})

	rec := doJSON(t, srv, http.MethodPost, "/v1/businesses", "u1", []service.BusinessInput{
		{Name: "Trattoria", Email: "t@example.it", Category: "restaurant", City: "Pisa", Country: "Italy"},
		{Name: "Boulangerie", Email: "b@example.fr"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/v1/businesses", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Equal(t, 2, listed.Total)
}

func TestCreateFromBusinessesSkipsMissingEmail(t *testing.T) {
	ms := newMemStore()
	_, srv := newTestAPI(ms, &fakeTrigger{}, okChannel{})

	rec := doJSON(t, srv, http.MethodPost, "/v1/campaigns/from-businesses", "u1", fromBusinessesRequest{
		Name: "local outreach",
		Businesses: []service.BusinessInput{
			{Name: "Has Email", Email: "x@example.com"},
			{Name: "No Email"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp domain.CreateCampaignResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Recipients)
}
