// Package portfolio holds the session's validated patent records.
package portfolio

import "time"

// ExcerptLen bounds the extracted-text prefix retained on a record for later
// display. The original document is not kept.
const ExcerptLen = 500

// PatentRecord is the unit of stored knowledge. Records are immutable after
// creation; they are created only by the ingestion pipeline and destroyed
// only by a full store clear.
type PatentRecord struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Title       string    `json:"title"`
	Problem     string    `json:"problem"`
	Solution    string    `json:"solution"`
	Effect      string    `json:"effect"`
	Category    string    `json:"category"`
	TextExcerpt string    `json:"text_excerpt"`
	Embedding   []float64 `json:"embedding"`
	// Degraded marks an embedding that is a random placeholder rather than
	// a genuine semantic vector; such points carry no meaning in the
	// cluster layout.
	Degraded    bool      `json:"degraded"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Excerpt trims text to the bounded display prefix, appending an ellipsis
// when anything was cut.
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= ExcerptLen {
		return text
	}
	return string(runes[:ExcerptLen]) + "..."
}
