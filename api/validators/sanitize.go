package validators

import "strings"

// SanitizeString trims surrounding whitespace and hard-caps the length.
// Listing titles, meetup locations and cancel reasons all pass through here
// before storage.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen > 0 && len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}
	return trimmed
}
