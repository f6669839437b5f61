// Package memory implements the per-user concept memory: a semantic store of
// previously explained concepts with nearest-neighbor lookup, used by the
// digest pipeline to reference prior learning.
package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"time"

	"github.com/usedigest/digest/plugin/ai"
	apperr "github.com/usedigest/digest/server/internal/errors"
	"github.com/usedigest/digest/store"
)

const (
	// DefaultThreshold is the cosine distance below which a stored concept
	// counts as prior knowledge. Strict on purpose: a false "you already
	// know this" is worse than a missed callback.
	DefaultThreshold float32 = 0.5

	// candidateLimit is the number of nearest neighbors fetched per lookup.
	candidateLimit = 3
)

// ConceptInput is one concept to be committed to memory, produced by the
// pipeline's explanation parser.
type ConceptInput struct {
	Name        string
	Domain      string
	Explanation string
	Analogy     string
}

// PriorMatch is a prior-knowledge lookup result. Distance is kept only for
// threshold filtering and discarded by callers after the explanation step.
type PriorMatch struct {
	Concept     string
	Explanation string
	Source      string
	Date        string
	Distance    float32
}

// Memory is one user's concept memory handle. It is always passed explicitly;
// there is no ambient or global memory instance, so concurrent requests for
// different users can never contaminate each other.
type Memory struct {
	userID   int32
	store    *store.Store
	embedder ai.EmbeddingService
}

// New creates a memory handle scoped to the given user.
func New(userID int32, s *store.Store, embedder ai.EmbeddingService) *Memory {
	return &Memory{userID: userID, store: s, embedder: embedder}
}

// UserID returns the owning user.
func (m *Memory) UserID() int32 {
	return m.userID
}

// StoreConcepts embeds and appends one record per concept. Inputs with an
// empty name or explanation are skipped with a warning; each surviving record
// is a single atomic insert, never a partial write. There is no dedup: the
// memory tracks every instance of a concept being taught, not a unique
// concept registry.
func (m *Memory) StoreConcepts(ctx context.Context, inputs []ConceptInput, sourceURL, sourceTitle string) error {
	valid := make([]ConceptInput, 0, len(inputs))
	for _, input := range inputs {
		if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Explanation) == "" {
			slog.Warn("skipping concept with empty name or explanation", slog.String("name", input.Name))
			continue
		}
		valid = append(valid, input)
	}
	if len(valid) == 0 {
		return nil
	}

	texts := make([]string, len(valid))
	for i, input := range valid {
		texts[i] = input.Explanation
	}
	vectors, err := m.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return apperr.StorageWriteFailed(err)
	}
	if len(vectors) != len(valid) {
		return apperr.StorageWriteFailed(fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(valid)))
	}

	now := time.Now()
	for i, input := range valid {
		domain := strings.TrimSpace(input.Domain)
		if domain == "" {
			domain = "General"
		}
		concept := &store.Concept{
			UID:         conceptUID(sourceURL, i, now),
			UserID:      m.userID,
			Name:        strings.TrimSpace(input.Name),
			Domain:      domain,
			Explanation: input.Explanation,
			Analogy:     input.Analogy,
			SourceURL:   sourceURL,
			SourceTitle: sourceTitle,
			LearnedTs:   now.Unix(),
			Embedding:   vectors[i],
		}
		if _, err := m.store.CreateConcept(ctx, concept); err != nil {
			return apperr.StorageWriteFailed(err)
		}
	}

	return nil
}

// CheckPriorKnowledge looks up stored concepts semantically close to the
// given name. Matches are kept only when their cosine distance is strictly
// below threshold, and, when a domain is given, when their stored domain is
// empty or equal to it. Results are ordered closest first. Returns a
// RetrievalFailed error when the backend is unreachable; callers degrade to
// "no prior knowledge".
func (m *Memory) CheckPriorKnowledge(ctx context.Context, conceptName, currentDomain string, threshold float32) ([]*PriorMatch, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	vector, err := m.embedder.Embed(ctx, conceptName)
	if err != nil {
		return nil, apperr.RetrievalFailed(err)
	}

	candidates, err := m.store.ConceptVectorSearch(ctx, &store.ConceptVectorSearch{
		UserID: m.userID,
		Vector: vector,
		Limit:  candidateLimit,
	})
	if err != nil {
		return nil, apperr.RetrievalFailed(err)
	}

	matches := []*PriorMatch{}
	for _, candidate := range candidates {
		if candidate.Distance >= threshold {
			continue
		}
		if currentDomain != "" && candidate.Concept.Domain != "" && candidate.Concept.Domain != currentDomain {
			continue
		}
		matches = append(matches, &PriorMatch{
			Concept:     candidate.Concept.Name,
			Explanation: candidate.Concept.Explanation,
			Source:      candidate.Concept.SourceTitle,
			Date:        time.Unix(candidate.Concept.LearnedTs, 0).UTC().Format(time.RFC3339),
			Distance:    candidate.Distance,
		})
	}

	return matches, nil
}

// AllConceptNames returns every stored name in insertion order.
func (m *Memory) AllConceptNames(ctx context.Context) ([]string, error) {
	concepts, err := m.store.ListConcepts(ctx, &store.FindConcept{UserID: &m.userID})
	if err != nil {
		return nil, apperr.RetrievalFailed(err)
	}
	names := make([]string, 0, len(concepts))
	for _, concept := range concepts {
		names = append(names, concept.Name)
	}
	return names, nil
}

// Stats summarizes the user's learning history. An empty memory yields zero
// counts and an empty recent list, never an error.
func (m *Memory) Stats(ctx context.Context) (*store.ConceptStats, error) {
	stats, err := m.store.GetConceptStats(ctx, m.userID)
	if err != nil {
		return nil, apperr.RetrievalFailed(err)
	}
	return stats, nil
}

// conceptUID derives a unique id from the source, the sequence index within
// the batch and the creation time. The source URL is hashed rather than
// interpolated so adversarial sources cannot collide or smuggle separators.
func conceptUID(sourceURL string, index int, now time.Time) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(sourceURL))
	return fmt.Sprintf("%x-%d-%d", h.Sum64(), index, now.UnixNano())
}
