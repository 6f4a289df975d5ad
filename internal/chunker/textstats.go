package chunker

import "strings"

// wordsPerMinute is the reading speed assumed for reading time estimates.
const wordsPerMinute = 200

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// readingTime estimates reading time in whole minutes, at least one
// minute for non-empty text.
func readingTime(text string) int {
	words := WordCount(text)
	if words == 0 {
		return 0
	}
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
