package channel

import (
	"context"
	"errors"
	"fmt"

	"devlink/internal/credentials"
)

// Message is one outgoing email. From may be empty for transports with a
// configured sender identity.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// Channel sends one message for one account and reports success or a typed
// failure.
type Channel interface {
	Send(ctx context.Context, account string, msg Message) error
}

// TokenSource is the slice of the credential vault a channel needs.
type TokenSource interface {
	AccessToken(ctx context.Context, account string) (string, error)
}

type ErrorKind string

const (
	KindAuthMissing      ErrorKind = "auth_missing"
	KindAuthExpired      ErrorKind = "auth_expired"
	KindTransportRefused ErrorKind = "transport_refused"
	KindUnknown          ErrorKind = "unknown"
)

type SendError struct {
	Kind ErrorKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed (%s): %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

func sendErr(kind ErrorKind, err error) *SendError {
	return &SendError{Kind: kind, Err: err}
}

// Classify maps any error coming out of a channel to its failure kind.
func Classify(err error) ErrorKind {
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

// tokenFor resolves an access token and maps vault errors onto the channel
// error taxonomy.
func tokenFor(ctx context.Context, ts TokenSource, account string) (string, error) {
	tok, err := ts.AccessToken(ctx, account)
	if err != nil {
		switch {
		case errors.Is(err, credentials.ErrNotConnected):
			return "", sendErr(KindAuthMissing, err)
		case errors.Is(err, credentials.ErrReauthRequired):
			return "", sendErr(KindAuthExpired, err)
		default:
			return "", sendErr(KindUnknown, err)
		}
	}
	return tok, nil
}
