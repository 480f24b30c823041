package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"devlink/internal/domain"
	"devlink/internal/service"
	"devlink/internal/store"
)

// CredentialManager is the vault surface the HTTP layer uses.
type CredentialManager interface {
	AuthorizationURL(state string) string
	Connect(ctx context.Context, ownerID, code string) error
	Status(ctx context.Context, ownerID string) (domain.CredentialStatus, error)
	Disconnect(ctx context.Context, ownerID string) error
}

type API struct {
	Campaigns  *service.CampaignService
	Emails     *service.EmailService
	Businesses *service.BusinessService
	Vault      CredentialManager
}

func (a *API) Register(r *mux.Router) {
	r.HandleFunc("/v1/campaigns", a.handleCreateCampaign).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns/from-businesses", a.handleCreateFromBusinesses).Methods(http.MethodPost)
	r.HandleFunc("/v1/campaigns", a.handleListCampaigns).Methods(http.MethodGet)
	r.HandleFunc("/v1/campaigns/{id}", a.handleGetCampaign).Methods(http.MethodGet)
	r.HandleFunc("/v1/campaigns/{id}/send", a.handleSendCampaign).Methods(http.MethodPost)

	r.HandleFunc("/v1/emails/send", a.handleSendEmail).Methods(http.MethodPost)
	r.HandleFunc("/v1/emails/logs", a.handleListLogs).Methods(http.MethodGet)

	r.HandleFunc("/v1/gmail/connect", a.handleGmailConnect).Methods(http.MethodGet)
	r.HandleFunc("/v1/gmail/callback", a.handleGmailCallback).Methods(http.MethodGet)
	r.HandleFunc("/v1/gmail/status", a.handleGmailStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/gmail/disconnect", a.handleGmailDisconnect).Methods(http.MethodPost)

	r.HandleFunc("/v1/businesses", a.handleSaveBusinesses).Methods(http.MethodPost)
	r.HandleFunc("/v1/businesses", a.handleListBusinesses).Methods(http.MethodGet)
}

func (a *API) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	var req domain.CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	resp, err := a.Campaigns.Create(r.Context(), owner, req)
	if err != nil {
		if errors.Is(err, domain.ErrMissingFields) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("create campaign failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type fromBusinessesRequest struct {
	Name       string                  `json:"name"`
	Businesses []service.BusinessInput `json:"businesses"`
}

func (a *API) handleCreateFromBusinesses(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	var req fromBusinessesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if len(req.Businesses) == 0 {
		http.Error(w, "no businesses provided", http.StatusBadRequest)
		return
	}

	records := make([]store.Business, len(req.Businesses))
	for i, b := range req.Businesses {
		records[i] = store.Business{
			Name:     b.Name,
			Email:    b.Email,
			Category: b.Category,
			City:     b.City,
			Country:  b.Country,
			Metadata: b.Metadata,
		}
	}
	resp, err := a.Campaigns.CreateFromBusinesses(r.Context(), owner, req.Name, records)
	if err != nil {
		if errors.Is(err, domain.ErrMissingFields) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("create campaign from businesses failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	page, pageSize := pagination(r)
	campaigns, total, err := a.Campaigns.List(r.Context(), owner, page, pageSize)
	if err != nil {
		slog.Error("list campaigns failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":  campaigns,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

func (a *API) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, ErrMissingID, http.StatusBadRequest)
		return
	}
	progress, err := a.Campaigns.Get(r.Context(), owner, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, ErrNotFound, http.StatusNotFound)
			return
		}
		slog.Error("get campaign failed", "err", err, "id", id)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, progress)
}

type sendCampaignRequest struct {
	Sender domain.SenderProfile `json:"sender"`
}

func (a *API) handleSendCampaign(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, ErrMissingID, http.StatusBadRequest)
		return
	}

	// The sender profile is optional; an empty body is a plain trigger.
	var req sendCampaignRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	err := a.Campaigns.Send(r.Context(), owner, id, req.Sender)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{
			"campaignId": id,
			"status":     string(domain.StatusSending),
		})
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, ErrNotFound, http.StatusNotFound)
	case errors.Is(err, domain.ErrNotDraft):
		http.Error(w, ErrNotDraft, http.StatusConflict)
	default:
		slog.Error("send campaign failed", "err", err, "id", id)
		http.Error(w, ErrDependency, http.StatusBadGateway)
	}
}

func (a *API) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	var req domain.SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	if err := a.Emails.Send(r.Context(), owner, req); err != nil {
		if errors.Is(err, domain.ErrMissingFields) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("send email failed", "err", err, "owner", owner)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"sent": len(req.Recipients)})
}

func (a *API) handleListLogs(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	page, pageSize := pagination(r)
	logs, total, err := a.Emails.Logs(r.Context(), owner, page, pageSize)
	if err != nil {
		slog.Error("list email logs failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	results := make([]map[string]any, len(logs))
	for i, e := range logs {
		results[i] = map[string]any{
			"id":           e.ID,
			"subject":      e.Subject,
			"body":         e.Body,
			"recipients":   e.Recipients,
			"status":       e.Status,
			"errorMessage": e.ErrorMsg,
			"createdAt":    e.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":  results,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

func (a *API) handleGmailConnect(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"authorizationUrl": a.Vault.AuthorizationURL(owner),
	})
}

func (a *API) handleGmailCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	owner := r.URL.Query().Get("state")
	if code == "" || owner == "" {
		http.Error(w, "missing code or state", http.StatusBadRequest)
		return
	}
	if err := a.Vault.Connect(r.Context(), owner, code); err != nil {
		slog.Error("gmail connect failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": true})
}

func (a *API) handleGmailStatus(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	st, err := a.Vault.Status(r.Context(), owner)
	if err != nil {
		slog.Error("gmail status failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleGmailDisconnect(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	if err := a.Vault.Disconnect(r.Context(), owner); err != nil {
		slog.Error("gmail disconnect failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"connected": false})
}

func (a *API) handleSaveBusinesses(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	var inputs []service.BusinessInput
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		http.Error(w, ErrInvalidJSON, http.StatusBadRequest)
		return
	}
	saved, err := a.Businesses.Save(r.Context(), owner, inputs)
	if err != nil {
		if errors.Is(err, domain.ErrMissingFields) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("save businesses failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"saved": saved})
}

func (a *API) handleListBusinesses(w http.ResponseWriter, r *http.Request) {
	owner := userID(r)
	if owner == "" {
		http.Error(w, ErrMissingUser, http.StatusUnauthorized)
		return
	}
	page, pageSize := pagination(r)
	businesses, total, err := a.Businesses.List(r.Context(), owner, page, pageSize)
	if err != nil {
		slog.Error("list businesses failed", "err", err, "owner", owner)
		http.Error(w, ErrDependency, http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results":  businesses,
		"page":     page,
		"pageSize": pageSize,
		"total":    total,
	})
}

func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	return page, pageSize
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
