package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/usedigest/digest/store"
)

func (d *DB) CreateConcept(ctx context.Context, create *store.Concept) (*store.Concept, error) {
	stmt := `
		INSERT INTO concept (uid, user_id, name, domain, explanation, analogy, source_url, source_title, learned_ts, embedding)
		VALUES (` + placeholders(10) + `)
		RETURNING id
	`
	vector := pgvector.NewVector(create.Embedding)
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
		vector,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to insert concept")
	}

	return create, nil
}

func (d *DB) ListConcepts(ctx context.Context, find *store.FindConcept) ([]*store.Concept, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = "+placeholder(len(args)+1)), append(args, *find.UID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}

	query := `
		SELECT id, uid, user_id, name, domain, explanation, analogy, source_url, source_title, learned_ts, embedding
		FROM concept
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id ASC
	`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
		if find.Offset > 0 {
			query += " OFFSET " + placeholder(len(args)+1)
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
		var concept store.Concept
		var vector pgvector.Vector
		if err := rows.Scan(
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
			&vector,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan concept")
		}
		concept.Embedding = vector.Slice()
		list = append(list, &concept)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// ConceptVectorSearch performs nearest-neighbor search with pgvector.
// The <=> operator computes cosine distance (1 - cosine similarity).
func (d *DB) ConceptVectorSearch(ctx context.Context, opts *store.ConceptVectorSearch) ([]*store.ConceptWithDistance, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 3
	}

	query := `
		SELECT id, uid, user_id, name, domain, explanation, analogy, source_url, source_title, learned_ts, embedding,
			embedding <=> $1 AS distance
		FROM concept
		WHERE user_id = $2 AND embedding IS NOT NULL
		ORDER BY distance ASC, id ASC
		LIMIT $3
	`
	rows, err := d.db.QueryContext(ctx, query, pgvector.NewVector(opts.Vector), opts.UserID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search concepts")
	}
	defer rows.Close()

	results := []*store.ConceptWithDistance{}
	for rows.Next() {
		var concept store.Concept
		var vector pgvector.Vector
		var distance float32
		if err := rows.Scan(
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
			&vector,
			&distance,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan concept with distance")
		}
		concept.Embedding = vector.Slice()
		results = append(results, &store.ConceptWithDistance{Concept: &concept, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

func (d *DB) GetConceptStats(ctx context.Context, userID int32) (*store.ConceptStats, error) {
	stats := &store.ConceptStats{RecentConcepts: []string{}}

	query := `
		SELECT COUNT(*), COUNT(DISTINCT source_url)
		FROM concept
		WHERE user_id = $1
	`
	if err := d.db.QueryRowContext(ctx, query, userID).Scan(&stats.TotalConcepts, &stats.TotalArticles); err != nil {
		return nil, errors.Wrap(err, "failed to count concepts")
	}

	recentQuery := `
		SELECT name
		FROM concept
		WHERE user_id = $1
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
