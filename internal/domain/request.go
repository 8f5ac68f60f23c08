package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultTopK is used when the inbound request omits top_k.
const DefaultTopK = 5

// QueryRequest is a validated inbound retrieval request. Immutable after parsing.
type QueryRequest struct {
	Query string
	TopK  int
}

// ParseQueryRequest decodes and validates an inbound request payload.
// All failures are wrapped with ErrValidation.
func ParseQueryRequest(payload []byte) (QueryRequest, error) {
	var raw struct {
		Query string `json:"query"`
		TopK  *int   `json:"top_k"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return QueryRequest{}, fmt.Errorf("%w: invalid request payload: %v", ErrValidation, err)
	}

	if strings.TrimSpace(raw.Query) == "" {
		return QueryRequest{}, fmt.Errorf("%w: query is required", ErrValidation)
	}

	topK := DefaultTopK
	if raw.TopK != nil {
		if *raw.TopK < 1 {
			return QueryRequest{}, fmt.Errorf("%w: top_k must be a positive integer, got %d", ErrValidation, *raw.TopK)
		}
		topK = *raw.TopK
	}

	return QueryRequest{Query: raw.Query, TopK: topK}, nil
}
