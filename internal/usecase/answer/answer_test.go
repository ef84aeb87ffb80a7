package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lotusmind/yogachat/internal/domain"
)

type mockGenerator struct {
	prompt string
	out    string
	err    error
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.out, nil
}

func ranked(docs ...domain.Document) []domain.ScoredDocument {
	out := make([]domain.ScoredDocument, len(docs))
	for i, d := range docs {
		out[i] = domain.ScoredDocument{Document: d, Score: 10 * (len(docs) - i)}
	}
	return out
}

func TestCompose_PromptContainsGroundingAndQuestion(t *testing.T) {
	gen := &mockGenerator{out: "- Đây là tư thế đảo ngược."}
	c := New(gen)

	docs := ranked(
		domain.Document{Content: "Sirsasana là tư thế trồng chuối.", Title: "Sirsasana", URL: "https://example.com/sirsasana"},
		domain.Document{Content: "Chuẩn bị với tư thế cá heo.", Title: "Chuẩn bị", URL: "https://example.com/prep"},
	)

	out, err := c.Compose(context.Background(), "trồng chuối là gì?", docs)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}

	if !strings.Contains(gen.prompt, "Sirsasana là tư thế trồng chuối.") {
		t.Error("expected grounding content in prompt")
	}
	if !strings.Contains(gen.prompt, "trồng chuối là gì?") {
		t.Error("expected verbatim question in prompt")
	}
	// Grounding order must follow rank order.
	if strings.Index(gen.prompt, "Sirsasana là") > strings.Index(gen.prompt, "Chuẩn bị với") {
		t.Error("grounding not in rank order")
	}
	if !strings.Contains(out, "- Đây là tư thế đảo ngược.") {
		t.Errorf("expected model output verbatim, got %q", out)
	}
}

func TestCompose_AppendsReferences(t *testing.T) {
	gen := &mockGenerator{out: "answer"}
	c := New(gen)

	docs := ranked(
		domain.Document{Content: "c1", Title: "Sirsasana", URL: "https://example.com/sirsasana"},
		domain.Document{Content: "c2", Title: "Savasana", URL: "https://example.com/savasana"},
	)

	out, err := c.Compose(context.Background(), "q", docs)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if !strings.Contains(out, referencesHeading) {
		t.Error("expected reference heading")
	}
	if !strings.Contains(out, "[Sirsasana](https://example.com/sirsasana)") {
		t.Errorf("expected reference bullet, got %q", out)
	}
}

func TestCompose_NoReferencesNoHeading(t *testing.T) {
	gen := &mockGenerator{out: "answer"}
	c := New(gen)

	out, err := c.Compose(context.Background(), "q", nil)
	if err != nil {
		t.Fatalf("Compose: %v", err)
	}
	if strings.Contains(out, referencesHeading) {
		t.Error("expected no reference heading for empty grounding")
	}
	if out != "answer" {
		t.Errorf("expected bare model output, got %q", out)
	}
}

func TestCompose_GenerationFailurePropagates(t *testing.T) {
	genErr := errors.New("boom")
	c := New(&mockGenerator{err: genErr})

	_, err := c.Compose(context.Background(), "q", nil)
	if !errors.Is(err, genErr) {
		t.Fatalf("expected generation error, got %v", err)
	}
}

func TestReferences_DedupeAndOrder(t *testing.T) {
	docs := ranked(
		domain.Document{Title: "First", URL: "https://example.com/a"},
		domain.Document{Title: "Duplicate", URL: "https://example.com/a"},
		domain.Document{Title: "Second", URL: "https://example.com/b"},
	)

	refs := References(docs)
	if len(refs) != 2 {
		t.Fatalf("expected 2 references, got %d", len(refs))
	}
	if refs[0].URL != "https://example.com/a" || refs[0].Title != "First" {
		t.Errorf("first URL keeps its first title: %+v", refs[0])
	}
	if refs[1].URL != "https://example.com/b" {
		t.Errorf("unexpected second reference: %+v", refs[1])
	}
}

func TestReferences_SkipsUnusableURLs(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"hash placeholder", "#"},
		{"na placeholder", "N/A"},
		{"no scheme", "example.com/page"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			refs := References(ranked(domain.Document{Title: "T", URL: tc.url}))
			if len(refs) != 0 {
				t.Errorf("expected URL %q to be skipped, got %+v", tc.url, refs)
			}
		})
	}
}

func TestReferences_CleansTitles(t *testing.T) {
	refs := References(ranked(domain.Document{Title: "Tư thế [trồng chuối] (cơ bản)", URL: "https://example.com/a"}))
	if len(refs) != 1 {
		t.Fatal("expected one reference")
	}
	if refs[0].Title != "Tư thế trồng chuối cơ bản" {
		t.Errorf("unexpected cleaned title: %q", refs[0].Title)
	}
}

func TestGroundingContext_Empty(t *testing.T) {
	if got := GroundingContext(nil); got != "" {
		t.Errorf("expected empty grounding, got %q", got)
	}
}
