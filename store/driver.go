package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	Migrate(ctx context.Context) error

	// User model related methods.
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)

	// Concept model related methods.
	CreateConcept(ctx context.Context, create *Concept) (*Concept, error)
	ListConcepts(ctx context.Context, find *FindConcept) ([]*Concept, error)

	// ConceptVectorSearch performs nearest-neighbor search over one user's
	// concept explanations. Results are ordered by ascending cosine distance.
	ConceptVectorSearch(ctx context.Context, opts *ConceptVectorSearch) ([]*ConceptWithDistance, error)

	// GetConceptStats aggregates a user's learning history.
	GetConceptStats(ctx context.Context, userID int32) (*ConceptStats, error)

	// Article model related methods.
	CreateArticle(ctx context.Context, create *Article) (*Article, error)
	ListArticles(ctx context.Context, find *FindArticle) ([]*Article, error)
}
