package domain

import (
	"fmt"
	"regexp"
)

// docIDPattern matches NFCorpus document identifiers (e.g. "MED-1234").
var docIDPattern = regexp.MustCompile(`^[A-Z]+-[0-9]+$`)

// RetrievalResponse is the final ordered ranking, most relevant first.
// Constructed once per orchestration via NewRetrievalResponse; immutable.
type RetrievalResponse struct {
	DocIDs []string
}

// NewRetrievalResponse validates a reasoning-process ranking against the
// response contract: at most topK identifiers, no duplicates, every
// identifier in corpus format. Violations are wrapped with ErrOrchestration
// rather than repaired — callers rely on the contract, not best-effort
// cleanup.
func NewRetrievalResponse(docIDs []string, topK int) (RetrievalResponse, error) {
	if len(docIDs) > topK {
		return RetrievalResponse{}, fmt.Errorf(
			"%w: ranking has %d identifiers, requested at most %d", ErrOrchestration, len(docIDs), topK)
	}

	seen := make(map[string]struct{}, len(docIDs))
	for _, id := range docIDs {
		if !docIDPattern.MatchString(id) {
			return RetrievalResponse{}, fmt.Errorf("%w: malformed document identifier %q", ErrOrchestration, id)
		}
		if _, dup := seen[id]; dup {
			return RetrievalResponse{}, fmt.Errorf("%w: duplicate document identifier %q", ErrOrchestration, id)
		}
		seen[id] = struct{}{}
	}

	out := make([]string, len(docIDs))
	copy(out, docIDs)
	return RetrievalResponse{DocIDs: out}, nil
}
