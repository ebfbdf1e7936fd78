package service

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
)

// suggestionThreshold filters out relation names that share little with the query.
const suggestionThreshold = 0.5

type match struct {
	name  string
	score float64
}

// SuggestRelations returns up to limit known relation names that look like name, best first.
func SuggestRelations(name string, known []string, limit int) []string {
	if name == "" || len(known) == 0 || limit <= 0 {
		return nil
	}
	query := strings.ToLower(name)
	queryTokens := tokenize(name)

	var matches []match
	for _, k := range known {
		if k == "" || k == name {
			continue
		}
		if s := similarity(query, queryTokens, k); s >= suggestionThreshold {
			matches = append(matches, match{name: k, score: s})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].name < matches[j].name
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

// similarity is the better of the whole-name edit similarity and the average best edit
// similarity of the query tokens.
func similarity(query string, queryTokens map[string]bool, candidate string) float64 {
	lower := strings.ToLower(candidate)
	if query == lower {
		return 1.0
	}

	global := editSimilarity(query, lower)

	candTokens := tokenize(candidate)
	total := 0.0
	for q := range queryTokens {
		best := 0.0
		if candTokens[q] {
			best = 1.0
		} else {
			for c := range candTokens {
				best = math.Max(best, editSimilarity(q, c))
			}
		}
		total += best
	}
	tokens := 0.0
	if len(queryTokens) > 0 {
		tokens = total / float64(len(queryTokens))
	}
	return math.Max(global, tokens)
}

func editSimilarity(a, b string) float64 {
	longest := max(len(a), len(b))
	if longest == 0 {
		return 1.0
	}
	s := 1.0 - float64(levenshtein.Distance(a, b, nil))/float64(longest)
	return math.Max(s, 0)
}

// tokenize splits snake_case and camelCase names into lower-case tokens.
func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens[strings.ToLower(cur.String())] = true
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsNumber(r):
			flush()
		case unicode.IsUpper(r):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
