// Package keyword provides the deterministic blocked-keyword check applied
// to comments and session content before any AI classification. Matching is
// a case-insensitive substring containment test against the session's
// configured keyword list.
package keyword

import "strings"

// Match is the outcome of a keyword check. Keywords holds every configured
// keyword found in the message, not just the first, so rejections can report
// exactly what triggered them.
type Match struct {
	Found    bool
	Keywords []string
}

// Check tests message against every keyword in the list. Keywords are
// trimmed before matching and empty entries are ignored. The check is a pure
// function with no failure mode.
func Check(message string, keywords []string) Match {
	if len(keywords) == 0 {
		return Match{}
	}

	lower := strings.ToLower(message)

	var matched []string
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		}
	}

	return Match{Found: len(matched) > 0, Keywords: matched}
}
