package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/usedigest/digest/store"
)

func (d *DB) CreateUser(ctx context.Context, create *store.User) (*store.User, error) {
	stmt := `
		INSERT INTO user (username, token, created_ts, background, interests, learning_style, technical_level)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	if err := d.db.QueryRowContext(ctx, stmt,
		create.Username,
		create.Token,
		create.CreatedTs,
		create.Background,
		create.Interests,
		create.LearningStyle,
		create.TechnicalLevel,
	).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to insert user")
	}
	return create, nil
}

func (d *DB) ListUsers(ctx context.Context, find *store.FindUser) ([]*store.User, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.Username != nil {
		where, args = append(where, "username = ?"), append(args, *find.Username)
	}
	if find.Token != nil {
		where, args = append(where, "token = ?"), append(args, *find.Token)
	}

	query := `
		SELECT id, username, token, created_ts, background, interests, learning_style, technical_level
		FROM user
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY id ASC
	`
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list users")
	}
	defer rows.Close()

	list := []*store.User{}
	for rows.Next() {
		var user store.User
		if err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.Token,
			&user.CreatedTs,
			&user.Background,
			&user.Interests,
			&user.LearningStyle,
			&user.TechnicalLevel,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan user")
		}
		list = append(list, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func (d *DB) UpdateUser(ctx context.Context, update *store.UpdateUser) (*store.User, error) {
	set, args := []string{}, []any{}

	if update.Background != nil {
		set, args = append(set, "background = ?"), append(args, *update.Background)
	}
	if update.Interests != nil {
		set, args = append(set, "interests = ?"), append(args, *update.Interests)
	}
	if update.LearningStyle != nil {
		set, args = append(set, "learning_style = ?"), append(args, *update.LearningStyle)
	}
	if update.TechnicalLevel != nil {
		set, args = append(set, "technical_level = ?"), append(args, *update.TechnicalLevel)
	}
	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}
	args = append(args, update.ID)

	stmt := `UPDATE user SET ` + strings.Join(set, ", ") + ` WHERE id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return nil, errors.Wrap(err, "failed to update user")
	}

	list, err := d.ListUsers(ctx, &store.FindUser{ID: &update.ID})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.Errorf("user %d not found", update.ID)
	}
	return list[0], nil
}
