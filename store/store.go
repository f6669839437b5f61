package store

import (
	"context"
	"sync"

	"github.com/usedigest/digest/internal/profile"
)

// Store provides database access to all raw objects.
//
// Concept writes are serialized per user so that two simultaneous requests
// from the same user cannot interleave a batch. Different users never share
// a lock.
type Store struct {
	profile *profile.Profile
	driver  Driver

	userLockMu sync.Mutex
	userLocks  map[int32]*sync.Mutex
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:    driver,
		profile:   profile,
		userLocks: make(map[int32]*sync.Mutex),
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Profile() *profile.Profile {
	return s.profile
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// userLock returns the write lock for the given user, creating it on first use.
func (s *Store) userLock(userID int32) *sync.Mutex {
	s.userLockMu.Lock()
	defer s.userLockMu.Unlock()
	if mu, ok := s.userLocks[userID]; ok {
		return mu
	}
	mu := &sync.Mutex{}
	s.userLocks[userID] = mu
	return mu
}

func (s *Store) CreateUser(ctx context.Context, create *User) (*User, error) {
	return s.driver.CreateUser(ctx, create)
}

func (s *Store) ListUsers(ctx context.Context, find *FindUser) ([]*User, error) {
	return s.driver.ListUsers(ctx, find)
}

func (s *Store) GetUser(ctx context.Context, find *FindUser) (*User, error) {
	list, err := s.driver.ListUsers(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateUser(ctx context.Context, update *UpdateUser) (*User, error) {
	return s.driver.UpdateUser(ctx, update)
}

// CreateConcept appends one concept record under the owning user's write lock.
func (s *Store) CreateConcept(ctx context.Context, create *Concept) (*Concept, error) {
	mu := s.userLock(create.UserID)
	mu.Lock()
	defer mu.Unlock()
	return s.driver.CreateConcept(ctx, create)
}

func (s *Store) ListConcepts(ctx context.Context, find *FindConcept) ([]*Concept, error) {
	return s.driver.ListConcepts(ctx, find)
}

func (s *Store) ConceptVectorSearch(ctx context.Context, opts *ConceptVectorSearch) ([]*ConceptWithDistance, error) {
	return s.driver.ConceptVectorSearch(ctx, opts)
}

func (s *Store) GetConceptStats(ctx context.Context, userID int32) (*ConceptStats, error) {
	return s.driver.GetConceptStats(ctx, userID)
}

func (s *Store) CreateArticle(ctx context.Context, create *Article) (*Article, error) {
	return s.driver.CreateArticle(ctx, create)
}

func (s *Store) ListArticles(ctx context.Context, find *FindArticle) ([]*Article, error) {
	return s.driver.ListArticles(ctx, find)
}

func (s *Store) GetArticle(ctx context.Context, find *FindArticle) (*Article, error) {
	list, err := s.driver.ListArticles(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}
