package parser

import (
	"sort"
	"strings"
)

// Validator decides whether a delimiter candidate is acceptable.
type Validator func(candidate string) bool

// DefaultValidator accepts any candidate of at least one character.
func DefaultValidator(candidate string) bool {
	return len(candidate) >= 1
}

type candidate struct {
	offset int
	value  string
}

// ExtractBetween searches text for substrings occurring between any
// combination of start and end tokens, case-insensitively. All candidates
// across all token pairs are merged and sorted by their position in the
// text, so the earliest candidate wins occurrence 1 regardless of which
// pair produced it. Candidates failing the validator are discarded and the
// occurrence-th (1-based) survivor is returned. The second return value is
// false when fewer than occurrence valid candidates exist.
//
// A single fixed delimiter pair is not enough here: listing formats reorder
// fields and optional fields shift the neighboring boundaries, so every
// start token must be tried against every end token.
func ExtractBetween(text string, startTokens, endTokens []string, occurrence int, validator Validator) (string, bool) {
	if occurrence < 1 {
		return "", false
	}
	if validator == nil {
		validator = DefaultValidator
	}

	lower := strings.ToLower(text)

	var candidates []candidate
	for _, start := range startTokens {
		s := strings.ToLower(start)
		if s == "" {
			continue
		}
		for _, end := range endTokens {
			e := strings.ToLower(end)
			if e == "" {
				continue
			}

			pos := 0
			for {
				i := strings.Index(lower[pos:], s)
				if i < 0 {
					break
				}
				i += pos

				j := strings.Index(lower[i+len(s):], e)
				if j < 0 {
					break
				}
				j += i + len(s)

				candidates = append(candidates, candidate{
					offset: i,
					value:  strings.TrimSpace(text[i+len(s) : j]),
				})

				// The end token is not consumed: the next start may sit
				// inside or right after it.
				pos = j
			}
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].offset < candidates[b].offset
	})

	seen := 0
	for _, c := range candidates {
		if !validator(c.value) {
			continue
		}
		seen++
		if seen == occurrence {
			return c.value, true
		}
	}
	return "", false
}
