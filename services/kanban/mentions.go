package kanban

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minHandleLen = 2
	maxHandleLen = 32
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9._-]+)`)

// ExtractMentions returns the lower-cased handles mentioned in body, in the
// order they first appear. An @ glued to a word (as in an email address)
// is not a mention.
func ExtractMentions(body string) []string {
	var handles []string
	seen := make(map[string]bool)

	for _, loc := range mentionPattern.FindAllStringSubmatchIndex(body, -1) {
		at, start, end := loc[0], loc[2], loc[3]
		if at > 0 {
			prev, _ := utf8.DecodeLastRuneInString(body[:at])
			if unicode.IsLetter(prev) || unicode.IsDigit(prev) || prev == '_' || prev == '@' {
				continue
			}
		}

		// trailing sentence punctuation is not part of the handle
		handle := strings.TrimRight(body[start:end], ".-")
		if len(handle) < minHandleLen || len(handle) > maxHandleLen {
			continue
		}

		handle = strings.ToLower(handle)
		if seen[handle] {
			continue
		}
		seen[handle] = true
		handles = append(handles, handle)
	}
	return handles
}
