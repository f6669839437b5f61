package postgres

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/usedigest/digest/store"
)

func (d *DB) CreateArticle(ctx context.Context, create *store.Article) (*store.Article, error) {
	stmt := `
		INSERT INTO article (uid, user_id, title, source_url, filename, created_ts)
		VALUES (` + placeholders(6) + `)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID,
		create.UserID,
		create.Title,
		create.SourceURL,
		create.Filename,
		create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to insert article")
	}
	return create, nil
}

func (d *DB) ListArticles(ctx context.Context, find *store.FindArticle) ([]*store.Article, error) {
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
		SELECT id, uid, user_id, title, source_url, filename, created_ts
		FROM article
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC, id DESC
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
		return nil, errors.Wrap(err, "failed to list articles")
	}
	defer rows.Close()

	list := []*store.Article{}
	for rows.Next() {
		var article store.Article
		if err := rows.Scan(
			&article.ID,
			&article.UID,
			&article.UserID,
			&article.Title,
			&article.SourceURL,
			&article.Filename,
			&article.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan article")
		}
		list = append(list, &article)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}
