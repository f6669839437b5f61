package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/usedigest/digest/internal/profile"
	"github.com/usedigest/digest/store"
)

func newTestDriver(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "digest_test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(context.Background()))
	t.Cleanup(func() { _ = driver.Close() })
	return driver
}

func TestUserCRUD(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	user, err := driver.CreateUser(ctx, &store.User{
		Username:  "alice",
		Token:     "tok-1",
		CreatedTs: 1000,
	})
	require.NoError(t, err)
	require.NotZero(t, user.ID)

	username := "alice"
	found, err := driver.ListUsers(ctx, &store.FindUser{Username: &username})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, user.ID, found[0].ID)

	background := "physicist"
	updated, err := driver.UpdateUser(ctx, &store.UpdateUser{ID: user.ID, Background: &background})
	require.NoError(t, err)
	require.Equal(t, "physicist", updated.Background)

	// Untouched fields survive a partial update.
	require.Equal(t, "alice", updated.Username)
}

func TestConceptVectorSearchOrdering(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	vectors := map[string][]float32{
		"identical":  {1, 0, 0},
		"close":      {0.9, 0.1, 0},
		"orthogonal": {0, 1, 0},
		"opposite":   {-1, 0, 0},
	}
	i := 0
	for name, vector := range vectors {
		_, err := driver.CreateConcept(ctx, &store.Concept{
			UID:         name,
			UserID:      1,
			Name:        name,
			Explanation: "e",
			SourceURL:   "https://example.com",
			LearnedTs:   int64(i),
			Embedding:   vector,
		})
		require.NoError(t, err)
		i++
	}

	results, err := driver.ConceptVectorSearch(ctx, &store.ConceptVectorSearch{
		UserID: 1,
		Vector: []float32{1, 0, 0},
		Limit:  4,
	})
	require.NoError(t, err)
	require.Len(t, results, 4)
	require.Equal(t, "identical", results[0].Concept.Name)
	require.Equal(t, "close", results[1].Concept.Name)
	require.Equal(t, "orthogonal", results[2].Concept.Name)
	require.Equal(t, "opposite", results[3].Concept.Name)
	require.InDelta(t, 0, results[0].Distance, 1e-5)
	require.InDelta(t, 1, results[2].Distance, 1e-5)
	require.InDelta(t, 2, results[3].Distance, 1e-5)
}

func TestConceptVectorSearchScopedToUser(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	for i, userID := range []int32{1, 2} {
		_, err := driver.CreateConcept(ctx, &store.Concept{
			UID:         string(rune('a' + i)),
			UserID:      userID,
			Name:        "concept",
			Explanation: "e",
			SourceURL:   "https://example.com",
			Embedding:   []float32{1, 0},
		})
		require.NoError(t, err)
	}

	results, err := driver.ConceptVectorSearch(ctx, &store.ConceptVectorSearch{
		UserID: 1,
		Vector: []float32{1, 0},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, int32(1), results[0].Concept.UserID)
}

func TestConceptVectorSearchDefaultLimit(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	for i := 0; i < 5; i++ {
		_, err := driver.CreateConcept(ctx, &store.Concept{
			UID:         string(rune('a' + i)),
			UserID:      1,
			Name:        "concept",
			Explanation: "e",
			SourceURL:   "https://example.com",
			Embedding:   []float32{1, 0},
		})
		require.NoError(t, err)
	}

	results, err := driver.ConceptVectorSearch(ctx, &store.ConceptVectorSearch{
		UserID: 1,
		Vector: []float32{1, 0},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
}

func TestGetConceptStats(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	stats, err := driver.GetConceptStats(ctx, 1)
	require.NoError(t, err)
	require.Zero(t, stats.TotalConcepts)
	require.Zero(t, stats.TotalArticles)
	require.Empty(t, stats.RecentConcepts)

	names := []string{"first", "second", "third"}
	for i, name := range names {
		_, err := driver.CreateConcept(ctx, &store.Concept{
			UID:         name,
			UserID:      1,
			Name:        name,
			Explanation: "e",
			SourceURL:   "https://example.com/one",
			LearnedTs:   int64(i),
			Embedding:   []float32{1},
		})
		require.NoError(t, err)
	}
	_, err = driver.CreateConcept(ctx, &store.Concept{
		UID:         "other-source",
		UserID:      1,
		Name:        "fourth",
		Explanation: "e",
		SourceURL:   "https://example.com/two",
		LearnedTs:   10,
		Embedding:   []float32{1},
	})
	require.NoError(t, err)

	stats, err = driver.GetConceptStats(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 4, stats.TotalConcepts)
	require.Equal(t, 2, stats.TotalArticles)
	require.Equal(t, []string{"fourth", "third", "second", "first"}, stats.RecentConcepts)
}

func TestArticleCRUD(t *testing.T) {
	ctx := context.Background()
	driver := newTestDriver(t)

	article, err := driver.CreateArticle(ctx, &store.Article{
		UID:       "abc",
		UserID:    1,
		Title:     "Title",
		SourceURL: "https://example.com",
		Filename:  "2026-01-01_title.md",
		CreatedTs: 1000,
	})
	require.NoError(t, err)
	require.NotZero(t, article.ID)

	userID := int32(1)
	list, err := driver.ListArticles(ctx, &store.FindArticle{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "2026-01-01_title.md", list[0].Filename)

	otherID := int32(2)
	list, err = driver.ListArticles(ctx, &store.FindArticle{UserID: &otherID})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1, cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-6)
	require.InDelta(t, 0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-6)
	require.InDelta(t, -1, cosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-6)

	// Mismatched or empty vectors are treated as unrelated.
	require.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	require.Zero(t, cosineSimilarity(nil, nil))
	require.Zero(t, cosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
