package domain

import "strings"

// NormalizeCard canonicalizes a record's text fields in place: every
// free-text field is trimmed and lower-cased, and features are
// de-duplicated preserving first-occurrence order. Applied on every write
// so stored data is uniformly comparable. Idempotent.
func NormalizeCard(c *CardRecord) {
	c.Name = normalizeText(c.Name)
	c.Sport = normalizeText(c.Sport)
	c.Brand = normalizeText(c.Brand)
	c.Team = normalizeText(c.Team)
	c.CardSet = normalizeText(c.CardSet)
	c.Condition = normalizeText(c.Condition)
	c.Features = normalizeFeatures(c.Features)
}

// NormalizeCards canonicalizes every record in the list in place.
func NormalizeCards(cards []CardRecord) {
	for i := range cards {
		NormalizeCard(&cards[i])
	}
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func normalizeFeatures(features []string) []string {
	if features == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(features))
	out := make([]string, 0, len(features))
	for _, f := range features {
		f = normalizeText(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
