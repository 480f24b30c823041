package campaign

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"devlink/internal/channel"
	"devlink/internal/content"
	"devlink/internal/domain"
	"devlink/internal/observability"
	"devlink/internal/store"
	"devlink/internal/util"
)

type Store interface {
	GetCampaign(ctx context.Context, ownerID, id string) (store.Campaign, bool, error)
	StartCampaign(ctx context.Context, in store.CampaignStart) (bool, error)
	IncrementSentCount(ctx context.Context, id string, now time.Time) error
	FinishCampaign(ctx context.Context, in store.CampaignFinish) error
	InsertEmailLog(ctx context.Context, in store.EmailLogInsert) error
}

// Runner drives campaigns from draft to a terminal state. Each campaign runs
// on its own goroutine, recipients strictly in order; the semaphore bounds
// how many campaigns send at once.
type Runner struct {
	Store     Store
	Generator content.Generator
	Channel   channel.Channel
	Limiter   *rate.Limiter
	Transport string
	Now       func() time.Time
	NewLogID  func() string

	sem chan struct{}
	wg  sync.WaitGroup
}

func NewRunner(s Store, gen content.Generator, ch channel.Channel, limiter *rate.Limiter, transport string, maxActive int) *Runner {
	if maxActive <= 0 {
		maxActive = 1
	}
	return &Runner{
		Store:     s,
		Generator: gen,
		Channel:   ch,
		Limiter:   limiter,
		Transport: transport,
		Now:       util.NowUTC,
		NewLogID:  util.NewLogID,
		sem:       make(chan struct{}, maxActive),
	}
}

// Start moves the campaign from draft to sending and launches the delivery
// loop in the background. It returns before any mail moves; callers poll the
// campaign for progress. Anything not in draft is rejected: resending is not
// idempotent and would duplicate deliveries.
func (r *Runner) Start(ctx context.Context, ownerID, campaignID string, sender domain.SenderProfile) error {
	c, found, err := r.Store.GetCampaign(ctx, ownerID, campaignID)
	if err != nil {
		return err
	}
	if !found {
		return domain.ErrNotFound
	}
	if c.Status != string(domain.StatusDraft) {
		return domain.ErrNotDraft
	}

	applied, err := r.Store.StartCampaign(ctx, store.CampaignStart{
		ID:         campaignID,
		OwnerID:    ownerID,
		TotalCount: len(c.Recipients),
		Now:        r.Now(),
	})
	if err != nil {
		return err
	}
	if !applied {
		// Lost the race with another trigger.
		return domain.ErrNotDraft
	}
	observability.CampaignsStarted.Inc()

	// The loop must outlive the triggering request.
	loopCtx := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		defer func() { <-r.sem }()
		r.run(loopCtx, c, sender)
	}()
	return nil
}

// Wait blocks until every in-flight campaign loop has finished.
func (r *Runner) Wait() { r.wg.Wait() }

func (r *Runner) run(ctx context.Context, c store.Campaign, sender domain.SenderProfile) {
	start := time.Now()
	slog.Info("campaign loop start", "campaign_id", c.ID, "recipients", len(c.Recipients))

	for _, rec := range c.Recipients {
		if r.Limiter != nil {
			// A pacer error is infrastructure, not a send outcome; the
			// campaign must land in a terminal state rather than hang in
			// sending.
			if err := r.Limiter.Wait(ctx); err != nil {
				r.fail(ctx, c.ID, err)
				return
			}
		}

		draft := r.Generator.Generate(ctx, rec, sender)
		subject, body := draft.Subject, draft.Body
		if subject == "" {
			subject = c.Subject
		}
		if body == "" {
			body = c.Body
		}

		sendStart := time.Now()
		sendErr := r.Channel.Send(ctx, c.OwnerID, channel.Message{
			From:    sender.Email,
			To:      []string{rec.Email},
			Subject: subject,
			Body:    body,
		})
		observability.EmailSendLatency.Observe(time.Since(sendStart).Seconds())

		entry := store.EmailLogInsert{
			ID:         r.NewLogID(),
			OwnerID:    c.OwnerID,
			Subject:    subject,
			Body:       body,
			Recipients: util.JoinAddresses([]string{rec.Email}),
			Status:     string(domain.LogSent),
			Now:        r.Now(),
		}
		if sendErr != nil {
			kind := channel.Classify(sendErr)
			entry.Status = string(domain.LogFailed)
			entry.ErrorMsg = sendErr.Error()
			observability.EmailSend.WithLabelValues(string(kind), r.Transport).Inc()
			slog.Warn("recipient send failed",
				"campaign_id", c.ID,
				"recipient", rec.Email,
				"kind", string(kind),
				"err", sendErr,
			)
		} else {
			observability.EmailSend.WithLabelValues("ok", r.Transport).Inc()
		}

		// Ledger and counter writes are infrastructure: if they fail, the
		// whole loop is in doubt and the campaign is marked failed. A failed
		// send, by contrast, only produces a failed ledger entry.
		if err := r.Store.InsertEmailLog(ctx, entry); err != nil {
			r.fail(ctx, c.ID, err)
			return
		}
		if err := r.Store.IncrementSentCount(ctx, c.ID, r.Now()); err != nil {
			r.fail(ctx, c.ID, err)
			return
		}
	}

	if err := r.Store.FinishCampaign(ctx, store.CampaignFinish{
		ID:     c.ID,
		Status: string(domain.StatusCompleted),
		Now:    r.Now(),
	}); err != nil {
		slog.Error("campaign completion persist failed", "campaign_id", c.ID, "err", err)
		return
	}
	observability.CampaignsFinished.WithLabelValues(string(domain.StatusCompleted)).Inc()
	slog.Info("campaign loop finish", "campaign_id", c.ID, "duration", time.Since(start))
}

func (r *Runner) fail(ctx context.Context, campaignID string, cause error) {
	slog.Error("campaign loop fatal", "campaign_id", campaignID, "err", cause)
	if err := r.Store.FinishCampaign(ctx, store.CampaignFinish{
		ID:       campaignID,
		Status:   string(domain.StatusFailed),
		ErrorMsg: cause.Error(),
		Now:      r.Now(),
	}); err != nil {
		slog.Error("campaign failure persist failed", "campaign_id", campaignID, "err", err)
		return
	}
	observability.CampaignsFinished.WithLabelValues(string(domain.StatusFailed)).Inc()
}
