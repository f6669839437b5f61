package sqlite

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/usedigest/digest/store"
)

func (d *DB) CreateConcept(ctx context.Context, create *store.Concept) (*store.Concept, error) {
	embedding, err := json.Marshal(create.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding")
	}

	stmt := `
		INSERT INTO concept (uid, user_id, name, domain, explanation, analogy, source_url, source_title, learned_ts, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		create.Name,
		create.Domain,
		create.Explanation,
		create.Analogy,
		create.SourceURL,
		create.SourceTitle,
		create.LearnedTs,
		string(embedding),
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to insert concept")
	}

	return create, nil
}

func (d *DB) ListConcepts(ctx context.Context, find *store.FindConcept) ([]*store.Concept, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}

	query := `
		SELECT id, uid, user_id, name, domain, explanation, analogy, source_url, source_title, learned_ts, embedding
		FROM concept
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id ASC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
		if find.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list concepts")
	}
	defer rows.Close()

	list := []*store.Concept{}
	for rows.Next() {
		concept, err := scanConcept(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, concept)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// ConceptVectorSearch performs brute-force nearest-neighbor search in
// process. A user's concept memory is small (a few records per processed
// article), so a linear scan with cosine distance is adequate here; the
// postgres driver uses pgvector instead.
func (d *DB) ConceptVectorSearch(ctx context.Context, opts *store.ConceptVectorSearch) ([]*store.ConceptWithDistance, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 3
	}

	concepts, err := d.ListConcepts(ctx, &store.FindConcept{UserID: &opts.UserID})
	if err != nil {
		return nil, err
	}

	results := []*store.ConceptWithDistance{}
	for _, concept := range concepts {
		if len(concept.Embedding) == 0 {
			continue
		}
		similarity := cosineSimilarity(opts.Vector, concept.Embedding)
		results = append(results, &store.ConceptWithDistance{
			Concept:  concept,
			Distance: 1 - similarity,
		})
	}

	// Closest first; ties keep store order (ListConcepts returns id ASC).
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (d *DB) GetConceptStats(ctx context.Context, userID int32) (*store.ConceptStats, error) {
	stats := &store.ConceptStats{RecentConcepts: []string{}}

	query := `
		SELECT COUNT(*), COUNT(DISTINCT source_url)
		FROM concept
		WHERE user_id = ?
	`
	if err := d.db.QueryRowContext(ctx, query, userID).Scan(&stats.TotalConcepts, &stats.TotalArticles); err != nil {
		return nil, errors.Wrap(err, "failed to count concepts")
	}

	recentQuery := `
		SELECT name
		FROM concept
		WHERE user_id = ?
		ORDER BY learned_ts DESC, id DESC
		LIMIT 5
	`
	rows, err := d.db.QueryContext(ctx, recentQuery, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recent concepts")
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan concept name")
		}
		stats.RecentConcepts = append(stats.RecentConcepts, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func scanConcept(scan func(dest ...any) error) (*store.Concept, error) {
	var concept store.Concept
	var embedding string
	if err := scan(
		&concept.ID,
		&concept.UID,
		&concept.UserID,
		&concept.Name,
		&concept.Domain,
		&concept.Explanation,
		&concept.Analogy,
		&concept.SourceURL,
		&concept.SourceTitle,
		&concept.LearnedTs,
		&embedding,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan concept")
	}
	if err := json.Unmarshal([]byte(embedding), &concept.Embedding); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal embedding")
	}
	return &concept, nil
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
