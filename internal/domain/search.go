package domain

// SearchResult is one scored candidate returned by the external search
// capability. Held only for the duration of an orchestration turn.
type SearchResult struct {
	DocID string  `json:"doc_id"`
	Score float64 `json:"score"`
	Title string  `json:"title"`
	Text  string  `json:"text"`
}
