package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"devlink/internal/domain"
	"devlink/internal/observability"
)

// Draft is a fully populated message for one recipient. Both fields are
// always set; callers never need per-recipient error handling.
type Draft struct {
	Subject string
	Body    string
}

type Generator interface {
	Generate(ctx context.Context, r domain.Recipient, sender domain.SenderProfile) Draft
}

// TextModel is the generative provider. Any failure here is absorbed by the
// deterministic template fallback.
type TextModel interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

type Service struct {
	Model   TextModel
	Breaker *gobreaker.CircuitBreaker
	Timeout time.Duration
}

func NewService(model TextModel) *Service {
	return &Service{
		Model: model,
		Breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "llm",
			MaxRequests: 3,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		}),
		Timeout: 20 * time.Second,
	}
}

func (s *Service) Generate(ctx context.Context, r domain.Recipient, sender domain.SenderProfile) Draft {
	lang := DetectLanguage(recipientLocation(r))

	if s.Model != nil {
		if draft, ok := s.tryModel(ctx, r, sender, lang); ok {
			observability.ContentGenerated.WithLabelValues("llm").Inc()
			return draft
		}
	}

	observability.ContentGenerated.WithLabelValues("template").Inc()
	return FallbackDraft(r, sender, lang)
}

func (s *Service) tryModel(ctx context.Context, r domain.Recipient, sender domain.SenderProfile, lang Language) (Draft, bool) {
	prompt := buildPrompt(r, sender, lang)

	res, err := s.execute(func() (any, error) {
		callCtx := ctx
		if s.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.Timeout)
			defer cancel()
		}
		return s.Model.GenerateContent(callCtx, prompt)
	})
	if err != nil {
		return Draft{}, false
	}

	draft, ok := parseDraft(res.(string))
	return draft, ok
}

func (s *Service) execute(call func() (any, error)) (any, error) {
	if s.Breaker == nil {
		return call()
	}
	return s.Breaker.Execute(call)
}

// parseDraft pulls the {"subject":..., "body":...} object out of the model
// reply, tolerating surrounding prose or code fences.
func parseDraft(text string) (Draft, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Draft{}, false
	}
	var out struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return Draft{}, false
	}
	if strings.TrimSpace(out.Subject) == "" || strings.TrimSpace(out.Body) == "" {
		return Draft{}, false
	}
	return Draft{Subject: out.Subject, Body: out.Body}, true
}

func buildPrompt(r domain.Recipient, sender domain.SenderProfile, lang Language) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a professional outreach email FROM %s TO %s.\n", senderName(sender), recipientName(r))
	if r.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", r.Category)
	}
	fmt.Fprintf(&b, "Sender offers: %s\n", senderServices(sender))
	if loc := recipientLocation(r); loc != "" {
		fmt.Fprintf(&b, "Business located in %s.\n", loc)
	}
	fmt.Fprintf(&b, "Write the subject and body entirely in %s, using correct business etiquette for that language.\n", lang)

	contacts := contactLines(sender)
	if len(contacts) > 0 {
		b.WriteString("Sender contact information (include only these, no placeholders):\n")
		for _, line := range contacts {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	b.WriteString("Tailor the email to what businesses of this category typically need, ")
	b.WriteString("end with a professional signature, and return valid JSON with keys 'subject' and 'body'.\n")
	return b.String()
}

// FallbackDraft builds the deterministic localized template. Output is stable
// for a given recipient category and location.
func FallbackDraft(r domain.Recipient, sender domain.SenderProfile, lang Language) Draft {
	tpl, ok := fallbackTemplates[lang]
	if !ok {
		tpl = fallbackTemplates[English]
	}

	signature := strings.Join(signatureLines(sender), "\n")
	return Draft{
		Subject: fmt.Sprintf(tpl.subject, recipientName(r)),
		Body:    fmt.Sprintf(tpl.body, senderName(sender), senderServices(sender), signature),
	}
}

func recipientName(r domain.Recipient) string {
	if strings.TrimSpace(r.Name) != "" {
		return r.Name
	}
	return r.Email
}

func recipientLocation(r domain.Recipient) string {
	parts := make([]string, 0, 2)
	if r.City != "" {
		parts = append(parts, r.City)
	}
	if r.Country != "" {
		parts = append(parts, r.Country)
	}
	return strings.Join(parts, ", ")
}

func senderName(s domain.SenderProfile) string {
	if strings.TrimSpace(s.Name) != "" {
		return s.Name
	}
	return "Developer"
}

func senderServices(s domain.SenderProfile) string {
	if strings.TrimSpace(s.Services) != "" {
		return s.Services
	}
	return "web development and digital solutions"
}

func contactLines(s domain.SenderProfile) []string {
	var out []string
	if s.Phone != "" {
		out = append(out, "Phone: "+s.Phone)
	}
	if s.Website != "" {
		out = append(out, "Website: "+s.Website)
	}
	if s.Company != "" {
		out = append(out, "Company: "+s.Company)
	}
	if s.Email != "" {
		out = append(out, "Email: "+s.Email)
	}
	return out
}

func signatureLines(s domain.SenderProfile) []string {
	out := []string{senderName(s)}
	if s.Phone != "" {
		out = append(out, s.Phone)
	}
	if s.Website != "" {
		out = append(out, s.Website)
	}
	if s.Company != "" {
		out = append(out, s.Company)
	}
	return out
}
