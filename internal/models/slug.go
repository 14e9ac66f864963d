package models

import "strings"

// Slugify lowercases s and replaces any run of non-alphanumeric characters
// with a single hyphen, trimming leading/trailing hyphens. Used for staging
// filenames and RSS item guids, where topic names need to be both
// filesystem-safe and stable across runs.
func Slugify(s string) string {
	var b strings.Builder
	prevHyphen := true // treat start as if we just emitted a hyphen, to trim leading ones
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
