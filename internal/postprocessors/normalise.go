package postprocessors

import "strings"

// Normalise collapses every whitespace run to a single space and trims.
func Normalise(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
