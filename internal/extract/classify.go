package extract

import (
	"strings"

	"sportcal/internal/config"
)

// Classifier maps free text to canonical sport categories using an
// ordered keyword table. Matching is case-insensitive substring
// containment with no word-boundary requirement: OCR output mangles
// spacing too often for boundary checks to be safe.
type Classifier struct {
	rules []config.KeywordRule
}

func NewClassifier(rules []config.KeywordRule) *Classifier {
	owned := make([]config.KeywordRule, 0, len(rules))
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" || r.Category == "" {
			continue
		}
		owned = append(owned, config.KeywordRule{Keyword: kw, Category: r.Category})
	}
	return &Classifier{rules: owned}
}

// Categories returns the deduplicated set of categories whose keywords
// occur in text. The slice is ordered by first appearance in the table,
// but set membership does not depend on table order.
func (c *Classifier) Categories(text string) []string {
	lower := strings.ToLower(text)

	var out []string
	seen := make(map[string]bool)
	for _, r := range c.rules {
		if !strings.Contains(lower, r.Keyword) {
			continue
		}
		if seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	return out
}

// FirstCategory returns the first table-order match, for callers that
// need exactly one category per line. Ties are broken by table order,
// never arbitrarily.
func (c *Classifier) FirstCategory(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, r := range c.rules {
		if strings.Contains(lower, r.Keyword) {
			return r.Category, true
		}
	}
	return "", false
}
