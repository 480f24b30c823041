package channel

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"devlink/internal/credentials"
)

func TestXOAUTH2String(t *testing.T) {
	got := xoauth2String("dev@example.com", "ya29.token")
	assert.Equal(t, "user=dev@example.com\x01auth=Bearer ya29.token\x01\x01", got)
}

func TestClassifySMTP(t *testing.T) {
	cases := []struct {
		code int
		want ErrorKind
	}{
		{535, KindAuthExpired},
		{530, KindAuthExpired},
		{550, KindTransportRefused},
		{452, KindTransportRefused},
	}
	for _, c := range cases {
		err := classifySMTP(&textproto.Error{Code: c.code, Msg: "nope"})
		assert.Equal(t, c.want, Classify(err), "code %d", c.code)
	}

	err := classifySMTP(errors.New("dial tcp: connection refused"))
	assert.Equal(t, KindUnknown, Classify(err))
}

func TestClassifyGmail(t *testing.T) {
	assert.Equal(t, KindAuthExpired, Classify(classifyGmail(&googleapi.Error{Code: 401})))
	assert.Equal(t, KindAuthExpired, Classify(classifyGmail(&googleapi.Error{Code: 403})))
	assert.Equal(t, KindTransportRefused, Classify(classifyGmail(&googleapi.Error{Code: 400})))
	assert.Equal(t, KindUnknown, Classify(classifyGmail(&googleapi.Error{Code: 500})))
	assert.Equal(t, KindUnknown, Classify(classifyGmail(errors.New("net down"))))
}

func TestClassifyNonSendError(t *testing.T) {
	assert.Equal(t, KindUnknown, Classify(errors.New("anything")))
}

func TestSendErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := sendErr(KindTransportRefused, fmt.Errorf("wrapped: %w", inner))
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, KindTransportRefused, Classify(err))
}

type stubTokens struct {
	token string
	err   error
}

func (s stubTokens) AccessToken(ctx context.Context, account string) (string, error) {
	return s.token, s.err
}

func TestTokenForMapsVaultErrors(t *testing.T) {
	_, err := tokenFor(context.Background(), stubTokens{err: credentials.ErrNotConnected}, "u1")
	assert.Equal(t, KindAuthMissing, Classify(err))

	_, err = tokenFor(context.Background(), stubTokens{err: fmt.Errorf("%w: invalid_grant", credentials.ErrReauthRequired)}, "u1")
	assert.Equal(t, KindAuthExpired, Classify(err))

	_, err = tokenFor(context.Background(), stubTokens{err: errors.New("db down")}, "u1")
	assert.Equal(t, KindUnknown, Classify(err))

	tok, err := tokenFor(context.Background(), stubTokens{token: "t"}, "u1")
	require.NoError(t, err)
	assert.Equal(t, "t", tok)
}

func TestGmailSessionBuiltOncePerAccount(t *testing.T) {
	c := &GmailAPI{Tokens: stubTokens{token: "t"}}

	s1, err := c.sessionFor("u1")
	require.NoError(t, err)
	s2, err := c.sessionFor("u1")
	require.NoError(t, err)
	assert.Same(t, s1, s2)

	s3, err := c.sessionFor("u2")
	require.NoError(t, err)
	assert.NotSame(t, s1, s3)
}

func TestBearerSourceNeverCaches(t *testing.T) {
	b := &bearerSource{}
	b.set("first")
	tok, err := b.Token()
	require.NoError(t, err)
	assert.Equal(t, "first", tok.AccessToken)
	assert.False(t, tok.Valid(), "token must read as expired so the next send re-resolves it")

	b.set("second")
	tok, err = b.Token()
	require.NoError(t, err)
	assert.Equal(t, "second", tok.AccessToken)
}

func TestBuildMIME(t *testing.T) {
	msg := Message{To: []string{"a@example.com", "b@example.com"}, Subject: "Hello", Body: "Line one\nLine two"}
	raw := string(buildMIME("me@example.com", msg))
	assert.Contains(t, raw, "From: me@example.com\r\n")
	assert.Contains(t, raw, "To: a@example.com, b@example.com\r\n")
	assert.Contains(t, raw, "Subject: Hello\r\n")
	assert.Contains(t, raw, "\r\n\r\nLine one\nLine two")
}
