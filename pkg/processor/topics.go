package processor

import "strings"

// canonicalTopics maps common raw LLM topic phrasing onto a fixed, lowercase
// vocabulary. Anything not listed here falls through to the generic
// lowercase-and-trim normalization rather than being dropped.
var canonicalTopics = map[string]string{
	"housing":             "housing",
	"affordable housing":  "housing",
	"zoning":              "land use",
	"land use":            "land use",
	"rezoning":            "land use",
	"budget":              "budget",
	"fiscal":              "budget",
	"appropriations":      "budget",
	"public safety":       "public safety",
	"police":              "public safety",
	"fire department":     "public safety",
	"transportation":      "transportation",
	"transit":             "transportation",
	"roads":               "transportation",
	"infrastructure":      "infrastructure",
	"utilities":           "infrastructure",
	"water":               "infrastructure",
	"parks":               "parks and recreation",
	"recreation":          "parks and recreation",
	"environment":         "environment",
	"climate":             "environment",
	"sustainability":      "environment",
	"economic development": "economic development",
	"business":            "economic development",
	"education":           "education",
	"schools":             "education",
	"contracts":           "contracts and procurement",
	"procurement":         "contracts and procurement",
}

// normalizeTopics lowercases, trims, canonicalizes, and deduplicates a raw
// topic list, preserving first-seen order.
func normalizeTopics(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if canon, ok := canonicalTopics[t]; ok {
			t = canon
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// mergeTopics deduplicates several already-normalized topic lists into one,
// preserving first-seen order across lists (step 9's
// meeting-level aggregation).
func mergeTopics(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, t := range list {
			if seen[t] {
				continue
			}
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
