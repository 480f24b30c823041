package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devlink/internal/domain"
)

type stubModel struct {
	reply string
	err   error
	calls int
}

func (m *stubModel) GenerateContent(ctx context.Context, prompt string) (string, error) {
	m.calls++
	return m.reply, m.err
}

func TestDetectLanguage(t *testing.T) {
	cases := []struct {
		location string
		want     Language
	}{
		{"Pisa, Italy", Italian},
		{"milano", Italian},
		{"Paris, France", French},
		{"Madrid", Spanish},
		{"Casablanca, Morocco", Arabic},
		{"Berlin, Germany", German},
		{"London, UK", English},
		{"Springfield", English},
		{"", English},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, DetectLanguage(c.location), "location %q", c.location)
	}
}

func TestGenerateUsesModelReply(t *testing.T) {
	model := &stubModel{reply: `Here you go: {"subject":"Ciao","body":"Testo"}`}
	svc := NewService(model)

	d := svc.Generate(context.Background(), domain.Recipient{Name: "Trattoria", Email: "t@example.it"}, domain.SenderProfile{Name: "Dana"})
	assert.Equal(t, "Ciao", d.Subject)
	assert.Equal(t, "Testo", d.Body)
	assert.Equal(t, 1, model.calls)
}

func TestGenerateModelFailureFallsBack(t *testing.T) {
	model := &stubModel{err: errors.New("provider down")}
	svc := NewService(model)

	r := domain.Recipient{Name: "Trattoria Da Mario", Email: "mario@example.it", Category: "restaurant", City: "Pisa", Country: "Italy"}
	d := svc.Generate(context.Background(), r, domain.SenderProfile{Name: "Dana", Services: "web development"})

	require.NotEmpty(t, d.Subject)
	require.NotEmpty(t, d.Body)
	assert.Contains(t, d.Subject, "Trattoria Da Mario")
	assert.Contains(t, d.Subject, "Collaborazione", "Italian location must produce the Italian template")
	assert.Contains(t, d.Body, "Dana")
}

func TestGenerateMalformedReplyFallsBack(t *testing.T) {
	model := &stubModel{reply: "sorry, I cannot help with that"}
	svc := NewService(model)

	d := svc.Generate(context.Background(), domain.Recipient{Name: "Shop", Email: "s@example.com"}, domain.SenderProfile{})
	assert.NotEmpty(t, d.Subject)
	assert.NotEmpty(t, d.Body)
}

func TestGenerateNilModelUsesTemplate(t *testing.T) {
	svc := NewService(nil)
	d := svc.Generate(context.Background(), domain.Recipient{Name: "Shop", Email: "s@example.com"}, domain.SenderProfile{Name: "Dana"})
	assert.Contains(t, d.Subject, "Partnership Opportunity")
	assert.Contains(t, d.Body, "Dana")
}

func TestFallbackDraftDeterministic(t *testing.T) {
	r := domain.Recipient{Name: "Boulangerie", Email: "b@example.fr", Category: "bakery", City: "Lyon", Country: "France"}
	s := domain.SenderProfile{Name: "Dana", Services: "web development", Phone: "+1 555 0100", Website: "https://dana.dev"}

	first := FallbackDraft(r, s, DetectLanguage("Lyon, France"))
	second := FallbackDraft(r, s, DetectLanguage("Lyon, France"))
	assert.Equal(t, first, second)
	assert.Contains(t, first.Body, "+1 555 0100")
	assert.Contains(t, first.Body, "https://dana.dev")
}

func TestParseDraftRejectsPartial(t *testing.T) {
	_, ok := parseDraft(`{"subject":"only subject"}`)
	assert.False(t, ok)
	_, ok = parseDraft(`{"subject":"s","body":""}`)
	assert.False(t, ok)
	_, ok = parseDraft("no json at all")
	assert.False(t, ok)

	d, ok := parseDraft("```json\n{\"subject\":\"s\",\"body\":\"b\"}\n```")
	require.True(t, ok)
	assert.Equal(t, "s", d.Subject)
}
