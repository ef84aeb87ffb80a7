// Package answer builds the generation prompt from ranked grounding
// documents and appends the mechanically-built reference list to the model's
// output.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lotusmind/yogachat/internal/domain"
	"github.com/lotusmind/yogachat/internal/logger"
)

// referencesHeading introduces the trailing link section. The model is told
// not to emit links of its own; this section is appended after generation.
const referencesHeading = "**Tài liệu tham khảo:**"

// promptTemplate is the fixed instruction payload. Grounding context first,
// then the verbatim question, then the style constraints.
const promptTemplate = `Bạn là một huấn luyện viên yoga tận tâm, trả lời bằng tiếng Việt.

Dựa vào tài liệu sau đây để trả lời câu hỏi:

%s

Câu hỏi: %s

Yêu cầu về câu trả lời:
- Tối đa 5 gạch đầu dòng, tổng cộng không quá 120 từ.
- Đi thẳng vào nội dung, không mở đầu dài dòng.
- Giọng thân thiện, khích lệ, như hướng dẫn học viên trên lớp.
- KHÔNG tự chèn đường dẫn hay liên kết; phần tài liệu tham khảo sẽ được thêm vào sau.`

// Reference is one entry of the trailing link list.
type Reference struct {
	Title string
	URL   string
}

// Composer turns ranked documents and a question into a final answer.
type Composer struct {
	generator domain.Generator
}

// New creates an answer composer.
func New(generator domain.Generator) *Composer {
	return &Composer{generator: generator}
}

// Compose builds the prompt from the ranked documents, runs one generation
// call and returns the model output with the reference section appended.
// A generation failure is returned as-is; the caller decides what the turn
// looks like in that case.
func (c *Composer) Compose(ctx context.Context, question string, ranked []domain.ScoredDocument) (string, error) {
	grounding := GroundingContext(ranked)
	prompt := fmt.Sprintf(promptTemplate, grounding, question)

	text, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("compose answer: %w", err)
	}

	refs := References(ranked)
	if len(refs) == 0 {
		return text, nil
	}

	logger.FromContext(ctx).Debug("appending references", zap.Int("count", len(refs)))

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n\n")
	sb.WriteString(referencesHeading)
	for _, ref := range refs {
		sb.WriteString(fmt.Sprintf("\n- [%s](%s)", ref.Title, ref.URL))
	}
	return sb.String(), nil
}

// GroundingContext concatenates document contents in rank order. Empty input
// yields an empty string; the model then answers from its own knowledge.
func GroundingContext(ranked []domain.ScoredDocument) string {
	parts := make([]string, 0, len(ranked))
	for _, d := range ranked {
		if d.Document.Content == "" {
			continue
		}
		parts = append(parts, d.Document.Content)
	}
	return strings.Join(parts, "\n\n")
}

// References builds the link list keyed by URL: first-seen order, no
// duplicates, placeholder and scheme-less URLs skipped.
func References(ranked []domain.ScoredDocument) []Reference {
	seen := map[string]struct{}{}
	refs := make([]Reference, 0, len(ranked))
	for _, d := range ranked {
		url := strings.TrimSpace(d.Document.URL)
		if !usableURL(url) {
			continue
		}
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		refs = append(refs, Reference{Title: cleanTitle(d.Document.Title), URL: url})
	}
	return refs
}

// usableURL requires a scheme marker and rejects known placeholders.
func usableURL(url string) bool {
	if url == "" || url == "#" {
		return false
	}
	lower := strings.ToLower(url)
	if lower == "n/a" || lower == "none" || lower == "null" {
		return false
	}
	return strings.Contains(url, "://")
}

// cleanTitle strips characters that would break markdown link syntax.
func cleanTitle(title string) string {
	replacer := strings.NewReplacer("[", "", "]", "", "(", "", ")", "", "\n", " ")
	cleaned := strings.TrimSpace(replacer.Replace(title))
	if cleaned == "" {
		return "Nguồn"
	}
	return cleaned
}
