package util

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}

// JoinAddresses renders a recipient list the way the ledger stores it:
// comma-separated, normalized.
func JoinAddresses(addrs []string) string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if n := NormalizeEmail(a); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, ",")
}

func newID(prefix string) string {
	t := time.Now().UTC()
	return prefix + "_" + ulid.MustNew(ulid.Timestamp(t), rand.Reader).String()
}

// ULID is sortable (nice for DB indexes and dashboards)
func NewCampaignID() string { return newID("cmp") }
func NewLogID() string      { return newID("eml") }
func NewBusinessID() string { return newID("biz") }

func NowUTC() time.Time {
	return time.Now().UTC()
}
