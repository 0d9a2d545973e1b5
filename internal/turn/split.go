// internal/turn/split.go
package turn

// DefaultMaxFragment is Discord's message length limit.
const DefaultMaxFragment = 2000

// Split cuts text into consecutive fragments of at most maxLength runes.
// Boundaries fall on fixed rune counts with no regard for words. Joining the
// fragments yields text exactly; empty text yields one empty fragment.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxFragment
	}
	if text == "" {
		return []string{""}
	}

	var fragments []string
	start, count := 0, 0
	for i := range text {
		if count == maxLength {
			fragments = append(fragments, text[start:i])
			start, count = i, 0
		}
		count++
	}
	return append(fragments, text[start:])
}
