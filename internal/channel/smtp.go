package channel

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"net/textproto"
	"strings"
)

// BasicSMTP hands messages to a configured SMTP relay, optionally with plain
// authentication. No per-account token is involved.
type BasicSMTP struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

func (c *BasicSMTP) Send(ctx context.Context, account string, msg Message) error {
	from := msg.From
	if from == "" {
		from = c.From
	}
	if from == "" {
		return sendErr(KindTransportRefused, errors.New("no sender address configured"))
	}

	var auth smtp.Auth
	if c.Username != "" {
		auth = smtp.PlainAuth("", c.Username, c.Password, c.Host)
	}

	err := smtp.SendMail(c.Host+":"+c.Port, auth, from, msg.To, buildMIME(from, msg))
	if err != nil {
		return classifySMTP(err)
	}
	return nil
}

// OAuthSMTP authenticates to the SMTP server with a SASL XOAUTH2 bearer
// credential obtained from the vault.
type OAuthSMTP struct {
	Host   string
	Port   string
	Tokens TokenSource
	From   string
}

func (c *OAuthSMTP) Send(ctx context.Context, account string, msg Message) error {
	token, err := tokenFor(ctx, c.Tokens, account)
	if err != nil {
		return err
	}

	from := msg.From
	if from == "" {
		from = c.From
	}
	if from == "" {
		return sendErr(KindTransportRefused, errors.New("no sender address configured"))
	}

	err = smtp.SendMail(c.Host+":"+c.Port, xoauth2Auth{user: from, token: token}, from, msg.To, buildMIME(from, msg))
	if err != nil {
		return classifySMTP(err)
	}
	return nil
}

type xoauth2Auth struct {
	user  string
	token string
}

func (a xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	return "XOAUTH2", []byte(xoauth2String(a.user, a.token)), nil
}

func (a xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	// On auth failure the server sends a base64 error payload and expects an
	// empty line before returning its final status.
	if more {
		return []byte(""), nil
	}
	return nil, nil
}

func xoauth2String(user, token string) string {
	return "user=" + user + "\x01auth=Bearer " + token + "\x01\x01"
}

// classifySMTP maps SMTP reply codes onto the channel taxonomy. 535/530 mean
// the bearer credential was rejected, which is unrecoverable for this run.
func classifySMTP(err error) error {
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) {
		switch {
		case tpErr.Code == 535 || tpErr.Code == 530:
			return sendErr(KindAuthExpired, err)
		case tpErr.Code >= 500 && tpErr.Code < 600:
			return sendErr(KindTransportRefused, err)
		case tpErr.Code >= 400 && tpErr.Code < 500:
			return sendErr(KindTransportRefused, err)
		}
	}
	return sendErr(KindUnknown, err)
}

func buildMIME(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}
