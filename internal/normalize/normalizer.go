// Package normalize converts raw source items into canonical documents.
package normalize

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"

	"github.com/corvuslabs/ingestd/internal/core/domain"
	"github.com/corvuslabs/ingestd/internal/core/ports/driven"
)

// Ensure Normalizer implements the interface.
var _ driven.Normalizer = (*Normalizer)(nil)

// Metadata keys excluded from the content hash because they change on
// every fetch without the content changing.
var volatileMetadata = map[string]bool{
	"fetched_at": true,
	"updated_at": true,
}

var (
	spaceRuns   = regexp.MustCompile(`[ \t]+`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Normalizer applies the configured content policy to raw items.
type Normalizer struct {
	policy domain.ContentPolicy
}

// New creates a normalizer with the given content policy.
func New(policy domain.ContentPolicy) *Normalizer {
	return &Normalizer{policy: policy}
}

// Normalize converts one raw item into a document.
// Returns domain.ErrEmptyContent when title or body is empty after cleaning.
func (n *Normalizer) Normalize(item domain.RawItem, source domain.SourceInstance) (*domain.Document, error) {
	title := collapseWhitespace(item.Title)

	body := item.Body
	if n.policy.CleanHTML {
		stripped, err := stripHTML(body)
		if err != nil {
			return nil, fmt.Errorf("strip html for %s: %w", item.ExternalID, err)
		}
		body = stripped
	}
	body = collapseWhitespace(body)

	if n.policy.MaxLength > 0 {
		body = truncate(body, n.policy.MaxLength)
	}

	if title == "" || body == "" {
		return nil, fmt.Errorf("item %s: %w", item.ExternalID, domain.ErrEmptyContent)
	}

	metadata := make(map[string]string, len(item.Metadata)+1)
	for k, v := range item.Metadata {
		metadata[k] = v
	}

	if n.policy.DetectLanguage {
		if lang := detectLanguage(body); lang != "" {
			metadata["language"] = lang
		}
	}

	sourceID := source.ID()
	return &domain.Document{
		DocID:       domain.DocumentID(sourceID, item.ExternalID),
		SourceID:    sourceID,
		Title:       title,
		Body:        body,
		ContentHash: contentHash(title, body, metadata),
		Metadata:    metadata,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

// contentHash covers title, body and the stable metadata, in key order so
// map iteration cannot change the result.
func contentHash(title, body string, metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		if volatileMetadata[k] || k == "language" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)*2+2)
	parts = append(parts, title, body)
	for _, k := range keys {
		parts = append(parts, k, metadata[k])
	}
	return domain.HashContent(parts...)
}

// stripHTML extracts plain text from markup. Plain text passes through
// unchanged apart from entity decoding.
func stripHTML(s string) (string, error) {
	if !strings.ContainsRune(s, '<') {
		return s, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript").Remove()

	// Block-level boundaries become newlines so headings and paragraphs
	// do not run together.
	doc.Find("p, br, div, li, tr, h1, h2, h3, h4, h5, h6").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	return doc.Text(), nil
}

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = spaceRuns.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")
	s = newlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func truncate(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:maxRunes]))
}

// detectLanguage returns the ISO 639-3 code for the body's language, or
// empty when detection is unreliable.
func detectLanguage(body string) string {
	info := whatlanggo.Detect(body)
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}
