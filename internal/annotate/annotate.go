// Package annotate computes keyword-match flags over cached scrape output
// at read time. Functions are pure: the source slice is never mutated, so
// re-reading a cache entry with a different keyword always starts from
// unannotated base data.
package annotate

import (
	"github.com/cliphawk/cliphawk/internal/match"
	"github.com/cliphawk/cliphawk/internal/types"
)

// Annotate returns copies of items with KeywordMentioned set: true iff the
// keyword appears (diacritic- and case-insensitive) in the description or
// any comment's text.
func Annotate(items []types.VideoRecord, keyword string) []types.VideoRecord {
	out := make([]types.VideoRecord, len(items))
	for i, item := range items {
		out[i] = item
		out[i].KeywordMentioned = mentions(&item, keyword)
	}
	return out
}

// Filter drops non-matching items when onlyMatches is set; otherwise it
// returns a copy with order preserved.
func Filter(items []types.VideoRecord, onlyMatches bool) []types.VideoRecord {
	if !onlyMatches {
		out := make([]types.VideoRecord, len(items))
		copy(out, items)
		return out
	}
	out := make([]types.VideoRecord, 0, len(items))
	for _, item := range items {
		if item.KeywordMentioned {
			out = append(out, item)
		}
	}
	return out
}

func mentions(item *types.VideoRecord, keyword string) bool {
	if match.Contains(item.Description, keyword) {
		return true
	}
	for _, c := range item.Comments {
		if match.Contains(c.Text, keyword) {
			return true
		}
	}
	return false
}
