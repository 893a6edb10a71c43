package category

import (
	"sort"
	"strings"
)

// Suggestion pairs a transaction with the category the keyword engine
// proposes for it. Applying a suggestion is always an explicit user action.
type Suggestion struct {
	TransactionID string `json:"transactionId"`
	CategoryID    int64  `json:"categoryId"`
	CategoryName  string `json:"categoryName"`
	Keyword       string `json:"keyword"`
}

// Match returns the first category whose keywords appear in the description,
// matching case-insensitively. Categories are scanned in ascending id order
// so ties resolve deterministically to the lowest id. Categories without
// keywords never match. Returns nil when nothing matches.
func Match(categories []*Category, description string) (*Category, string) {
	if description == "" {
		return nil, ""
	}

	ordered := make([]*Category, len(categories))
	copy(ordered, categories)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	haystack := strings.ToLower(description)
	for _, cat := range ordered {
		for _, kw := range cat.Keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			if strings.Contains(haystack, strings.ToLower(kw)) {
				return cat, kw
			}
		}
	}
	return nil, ""
}
