// Package parser turns markdown note files into cards. One file is one
// card: YAML front matter plus markdown body. Front matter may carry
// previously exported scheduling progress under sr_* keys.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"

	"github.com/notedeck/notedeck/internal/domain"
)

// Note is one parsed markdown file, before it is assigned a card id.
type Note struct {
	Title       string
	Content     string
	FrontMatter map[string]any
}

var headingRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)
var blankRunsRe = regexp.MustCompile(`\n{3,}`)

// ParseFile reads and parses the markdown file at path.
func ParseFile(path string) (Note, error) {
	file, err := os.Open(path)
	if err != nil {
		return Note{}, err
	}
	defer file.Close()

	return Parse(file, filepath.Base(path))
}

// Parse reads a markdown note from r. fileName is used as the title of last
// resort.
//
// The title comes from the front matter "title" key if present, otherwise
// from the first level-one heading (which is then stripped from the
// content), otherwise from the cleaned-up file name.
func Parse(r io.Reader, fileName string) (Note, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Note{}, err
	}

	front, body := splitFrontMatter(string(raw))

	fm := map[string]any{}
	if front != "" {
		parsed, err := yaml.Parser().Unmarshal([]byte(front))
		if err != nil {
			return Note{}, fmt.Errorf("parsing front matter of %s: %w", fileName, err)
		}
		fm = parsed
	}

	title, _ := fm["title"].(string)
	if title == "" {
		title, _ = fm["Title"].(string)
	}

	if title == "" {
		if loc := headingRe.FindStringSubmatchIndex(body); loc != nil {
			title = strings.TrimSpace(body[loc[2]:loc[3]])
			// Strip only the title heading; later headings stay.
			body = body[:loc[0]] + body[loc[1]:]
		}
	}
	if title == "" {
		title = titleFromFileName(fileName)
	}

	body = blankRunsRe.ReplaceAllString(body, "\n\n")
	body = strings.TrimSpace(body)

	return Note{
		Title:       strings.TrimSpace(title),
		Content:     body,
		FrontMatter: fm,
	}, nil
}

// Card builds the domain card for a parsed note.
func (n Note) Card(id, path string) domain.Card {
	return domain.Card{
		ID:          id,
		Title:       n.Title,
		Content:     n.Content,
		Path:        path,
		FrontMatter: n.FrontMatter,
	}
}

// Progress extracts scheduling progress embedded in the front matter, if
// any. Notes exported from another install carry their state under
// sr_interval, sr_ease_factor, sr_review_count, sr_correct_count and
// sr_next_review (RFC 3339).
func (n Note) Progress(id string) (domain.CardProgress, bool) {
	if n.FrontMatter["sr_interval"] == nil && n.FrontMatter["sr_review_count"] == nil {
		return domain.CardProgress{}, false
	}

	p := domain.NewCardProgress(id)
	p.Interval = asInt(n.FrontMatter["sr_interval"], 0)
	p.EaseFactor = asFloat(n.FrontMatter["sr_ease_factor"], domain.DefaultEaseFactor)
	p.ReviewCount = asInt(n.FrontMatter["sr_review_count"], 0)
	p.CorrectCount = asInt(n.FrontMatter["sr_correct_count"], 0)
	if s, ok := n.FrontMatter["sr_next_review"].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			p.NextReviewDate = &t
		}
	}
	return p, true
}

// splitFrontMatter separates a leading YAML front matter block, delimited by
// "---" lines, from the markdown body.
func splitFrontMatter(raw string) (front, body string) {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	if !strings.HasPrefix(normalized, "---\n") {
		return "", normalized
	}
	rest := normalized[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", normalized
	}
	front = rest[:end]
	body = rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return front, body
}

func titleFromFileName(fileName string) string {
	base := strings.TrimSuffix(fileName, ".md")
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	words := strings.Fields(base)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

func asInt(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return fallback
}

func asFloat(v any, fallback float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return fallback
}
