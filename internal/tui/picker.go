package tui

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/libraryhub/internal/domain"
)

// Choice is a candidate for a form field that refers to another entity
type Choice struct {
	ID    domain.ID
	Label string
}

// resolveChoice picks the choice that best matches what the operator typed.
// An exact (case-insensitive) label wins over an exact id, and both win over
// the closest fuzzy match.
func resolveChoice(query string, choices []Choice) (Choice, bool) {
	query = strings.TrimSpace(query)
	if query == "" || len(choices) == 0 {
		return Choice{}, false
	}

	for _, c := range choices {
		if strings.EqualFold(c.Label, query) {
			return c, true
		}
	}
	for _, c := range choices {
		if c.ID.String() == query {
			return c, true
		}
	}

	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.Label
	}
	ranks := fuzzy.RankFindFold(query, labels)
	if len(ranks) == 0 {
		return Choice{}, false
	}
	sort.Stable(ranks)
	return choices[ranks[0].OriginalIndex], true
}

func authorChoices(authors []domain.Author) []Choice {
	out := make([]Choice, len(authors))
	for i, a := range authors {
		out[i] = Choice{ID: a.ID, Label: a.Name}
	}
	return out
}

func bookChoices(books []domain.Book) []Choice {
	out := make([]Choice, len(books))
	for i, b := range books {
		out[i] = Choice{ID: b.ID, Label: b.Title}
	}
	return out
}
