package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"devlink/internal/domain"
	"devlink/internal/observability"
	"devlink/internal/store"
)

var (
	ErrNotConnected   = errors.New("gmail account not connected")
	ErrReauthRequired = errors.New("gmail authorization expired, reconnect required")
)

// Tokens that expire within this window are treated as already expired so a
// token never goes stale in the middle of a send.
const expirySkew = 30 * time.Second

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	defaultRevokeURL   = "https://oauth2.googleapis.com/revoke"
)

type Store interface {
	GetCredential(ctx context.Context, ownerID string) (store.Credential, error)
	SaveCredential(ctx context.Context, in store.CredentialUpdate) error
	ClearCredential(ctx context.Context, ownerID string, now time.Time) error
}

// Vault owns the OAuth2 token lifecycle for each account's Gmail connection.
// All expiry math is UTC.
type Vault struct {
	Store       Store
	OAuth       *oauth2.Config
	HTTP        *http.Client
	UserInfoURL string
	RevokeURL   string
	Now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewVault(s Store, clientID, clientSecret, redirectURI string) *Vault {
	return &Vault{
		Store: s,
		OAuth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				"https://www.googleapis.com/auth/gmail.send",
				"https://www.googleapis.com/auth/userinfo.email",
			},
		},
		HTTP:        &http.Client{Timeout: 10 * time.Second},
		UserInfoURL: defaultUserInfoURL,
		RevokeURL:   defaultRevokeURL,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// lockFor returns the per-account mutex. Two campaigns sending for the same
// account must never race a refresh; the loser re-reads the record under the
// lock and usually finds a fresh token.
func (v *Vault) lockFor(ownerID string) *sync.Mutex {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.locks == nil {
		v.locks = make(map[string]*sync.Mutex)
	}
	l, ok := v.locks[ownerID]
	if !ok {
		l = &sync.Mutex{}
		v.locks[ownerID] = l
	}
	return l
}

func (v *Vault) AuthorizationURL(state string) string {
	return v.OAuth.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Connect exchanges an authorization code and persists the populated record.
func (v *Vault) Connect(ctx context.Context, ownerID, code string) error {
	tok, err := v.OAuth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("code exchange: %w", err)
	}

	email, err := v.fetchAccountEmail(ctx, tok.AccessToken)
	if err != nil {
		// The token is still usable for sending; the email is informational.
		email = ""
	}

	expiresAt := tok.Expiry.UTC()
	return v.Store.SaveCredential(ctx, store.CredentialUpdate{
		OwnerID:      ownerID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    &expiresAt,
		AccountEmail: email,
		Connected:    true,
		Now:          v.Now(),
	})
}

// AccessToken returns a currently valid access token for the account,
// refreshing transparently when the stored one has expired. A failed refresh
// is a one-way transition: the record is cleared and the account must be
// re-authorized.
func (v *Vault) AccessToken(ctx context.Context, ownerID string) (string, error) {
	l := v.lockFor(ownerID)
	l.Lock()
	defer l.Unlock()

	rec, err := v.Store.GetCredential(ctx, ownerID)
	if err != nil {
		return "", err
	}
	if !rec.Connected || rec.AccessToken == "" {
		// A record with an account email was authorized once and lost its
		// tokens to a failed refresh; one that never had an email was never
		// connected at all.
		if rec.AccountEmail != "" {
			return "", ErrReauthRequired
		}
		return "", ErrNotConnected
	}

	now := v.Now()
	if tokenValidAt(rec, now, expirySkew) {
		return rec.AccessToken, nil
	}

	if rec.RefreshToken == "" {
		return "", ErrReauthRequired
	}

	tok, err := v.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: rec.RefreshToken}).Token()
	if err != nil {
		observability.TokenRefresh.WithLabelValues("error").Inc()
		// One-way transition: a stale refresh token will not become valid
		// later, so force full re-authorization. The account email survives
		// so later calls report reauth rather than never-connected.
		saveErr := v.Store.SaveCredential(ctx, store.CredentialUpdate{
			OwnerID:      ownerID,
			AccountEmail: rec.AccountEmail,
			Connected:    false,
			Now:          v.Now(),
		})
		if saveErr != nil {
			return "", fmt.Errorf("refresh failed (%v) and clearing credential failed: %w", err, saveErr)
		}
		return "", fmt.Errorf("%w: %v", ErrReauthRequired, err)
	}
	observability.TokenRefresh.WithLabelValues("ok").Inc()

	refreshToken := rec.RefreshToken
	if tok.RefreshToken != "" {
		// Providers may rotate the refresh token on use.
		refreshToken = tok.RefreshToken
	}
	expiresAt := tok.Expiry.UTC()
	if err := v.Store.SaveCredential(ctx, store.CredentialUpdate{
		OwnerID:      ownerID,
		AccessToken:  tok.AccessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    &expiresAt,
		AccountEmail: rec.AccountEmail,
		Connected:    true,
		Now:          v.Now(),
	}); err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// Status reports the connection state; token validity is computed live
// against expires_at, never cached.
func (v *Vault) Status(ctx context.Context, ownerID string) (domain.CredentialStatus, error) {
	rec, err := v.Store.GetCredential(ctx, ownerID)
	if err != nil {
		return domain.CredentialStatus{}, err
	}
	return domain.CredentialStatus{
		Connected:    rec.Connected,
		AccountEmail: rec.AccountEmail,
		TokenValid:   tokenValidAt(rec, v.Now(), 0),
	}, nil
}

// Disconnect revokes the token with the provider on a best-effort basis and
// then clears the local record unconditionally. The local record, not
// provider state, governs delivery behavior.
func (v *Vault) Disconnect(ctx context.Context, ownerID string) error {
	rec, err := v.Store.GetCredential(ctx, ownerID)
	if err != nil {
		return err
	}
	if rec.AccessToken != "" {
		v.revoke(ctx, rec.AccessToken)
	}
	return v.Store.ClearCredential(ctx, ownerID, v.Now())
}

func (v *Vault) revoke(ctx context.Context, token string) {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := v.HTTP.Do(req)
	if err != nil {
		return
	}
	_ = resp.Body.Close()
}

func (v *Vault) fetchAccountEmail(ctx context.Context, accessToken string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.UserInfoURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	resp, err := v.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("userinfo status %d", resp.StatusCode)
	}
	var out struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Email, nil
}

func tokenValidAt(rec store.Credential, now time.Time, skew time.Duration) bool {
	if !rec.Connected || rec.AccessToken == "" || rec.ExpiresAt == nil {
		return false
	}
	return now.Add(skew).Before(rec.ExpiresAt.UTC())
}
