package channel

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GmailAPI sends through the Gmail users.messages.send endpoint using a
// vault-issued access token. The API client is built once per account and
// reused across sends; only the bearer token changes per call.
type GmailAPI struct {
	Tokens TokenSource
	From   string

	mu       sync.Mutex
	sessions map[string]*gmailSession
}

type gmailSession struct {
	svc    *gmail.Service
	bearer *bearerSource
}

// bearerSource feeds the transport whatever token the current Send resolved.
// Tokens are handed out already expired: a zero Expiry would make the oauth2
// layer cache the first token forever and mask refreshes.
type bearerSource struct {
	mu  sync.Mutex
	tok string
}

func (b *bearerSource) set(tok string) {
	b.mu.Lock()
	b.tok = tok
	b.mu.Unlock()
}

func (b *bearerSource) Token() (*oauth2.Token, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return &oauth2.Token{AccessToken: b.tok, Expiry: time.Now()}, nil
}

func (c *GmailAPI) sessionFor(account string) (*gmailSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[account]; ok {
		return s, nil
	}

	bearer := &bearerSource{}
	svc, err := gmail.NewService(context.Background(), option.WithTokenSource(bearer))
	if err != nil {
		return nil, err
	}

	if c.sessions == nil {
		c.sessions = make(map[string]*gmailSession)
	}
	s := &gmailSession{svc: svc, bearer: bearer}
	c.sessions[account] = s
	return s, nil
}

func (c *GmailAPI) Send(ctx context.Context, account string, msg Message) error {
	token, err := tokenFor(ctx, c.Tokens, account)
	if err != nil {
		return err
	}

	s, err := c.sessionFor(account)
	if err != nil {
		return sendErr(KindUnknown, err)
	}
	s.bearer.set(token)

	from := msg.From
	if from == "" {
		from = c.From
	}

	raw := base64.URLEncoding.EncodeToString(buildMIME(from, msg))
	_, err = s.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return classifyGmail(err)
	}
	return nil
}

func classifyGmail(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return sendErr(KindAuthExpired, err)
		case apiErr.Code >= 400 && apiErr.Code < 500:
			return sendErr(KindTransportRefused, err)
		}
	}
	return sendErr(KindUnknown, err)
}
