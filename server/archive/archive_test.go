package archive

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"github.com/usedigest/digest/internal/profile"
	"github.com/usedigest/digest/store"
)

type articleOnlyDriver struct {
	articles []*store.Article
}

func (d *articleOnlyDriver) GetDB() *sql.DB                { return nil }
func (d *articleOnlyDriver) Close() error                  { return nil }
func (d *articleOnlyDriver) Migrate(context.Context) error { return nil }

func (d *articleOnlyDriver) CreateUser(_ context.Context, create *store.User) (*store.User, error) {
	return create, nil
}

func (d *articleOnlyDriver) ListUsers(context.Context, *store.FindUser) ([]*store.User, error) {
	return nil, nil
}

func (d *articleOnlyDriver) UpdateUser(context.Context, *store.UpdateUser) (*store.User, error) {
	return nil, nil
}

func (d *articleOnlyDriver) CreateConcept(_ context.Context, create *store.Concept) (*store.Concept, error) {
	return create, nil
}

func (d *articleOnlyDriver) ListConcepts(context.Context, *store.FindConcept) ([]*store.Concept, error) {
	return nil, nil
}

func (d *articleOnlyDriver) ConceptVectorSearch(context.Context, *store.ConceptVectorSearch) ([]*store.ConceptWithDistance, error) {
	return nil, nil
}

func (d *articleOnlyDriver) GetConceptStats(context.Context, int32) (*store.ConceptStats, error) {
	return &store.ConceptStats{}, nil
}

func (d *articleOnlyDriver) CreateArticle(_ context.Context, create *store.Article) (*store.Article, error) {
	create.ID = int64(len(d.articles) + 1)
	d.articles = append(d.articles, create)
	return create, nil
}

func (d *articleOnlyDriver) ListArticles(context.Context, *store.FindArticle) ([]*store.Article, error) {
	return d.articles, nil
}

func TestSaveRunAndReadRun(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	driver := &articleOnlyDriver{}
	arc, err := New(dataDir, store.New(driver, &profile.Profile{}))
	require.NoError(t, err)

	article, err := arc.SaveRun(ctx, 7, "https://example.com/raft", "Understanding Raft: A Guide!",
		"## Section 1: Basics\nsummary", "**Concept: Raft**\nExplanation: votes.", "1. Who votes?")
	require.NoError(t, err)
	require.NotEmpty(t, article.UID)
	require.Equal(t, int32(7), article.UserID)
	require.Equal(t, "Understanding Raft: A Guide!", article.Title)

	content, err := arc.ReadRun(article)
	require.NoError(t, err)
	require.Contains(t, content, "# Understanding Raft: A Guide!")
	require.Contains(t, content, "**Source:** https://example.com/raft")
	require.Contains(t, content, "## Article Breakdown")
	require.Contains(t, content, "## Concept Explanations")
	require.Contains(t, content, "## Review Questions")

	// One file, named date_slug.md.
	entries, err := os.ReadDir(filepath.Join(dataDir, "processed_articles"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Regexp(t, `^\d{4}-\d{2}-\d{2}_Understanding-Raft-A-Guide_[0-9A-Za-z]+\.md$`, entries[0].Name())
}

func TestSaveRunSameTitleSameDayDoesNotCollide(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	driver := &articleOnlyDriver{}
	arc, err := New(dataDir, store.New(driver, &profile.Profile{}))
	require.NoError(t, err)

	first, err := arc.SaveRun(ctx, 1, "https://example.com/raft", "Understanding Raft",
		"sections", "explanations tailored for user one", "questions")
	require.NoError(t, err)
	second, err := arc.SaveRun(ctx, 2, "https://example.com/raft", "Understanding Raft",
		"sections", "explanations tailored for user two", "questions")
	require.NoError(t, err)

	require.NotEqual(t, first.Filename, second.Filename)
	require.Contains(t, first.Filename, first.UID)
	require.Contains(t, second.Filename, second.UID)

	entries, err := os.ReadDir(filepath.Join(dataDir, "processed_articles"))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Each user reads back their own run.
	content, err := arc.ReadRun(first)
	require.NoError(t, err)
	require.Contains(t, content, "user one")
	require.NotContains(t, content, "user two")

	content, err = arc.ReadRun(second)
	require.NoError(t, err)
	require.Contains(t, content, "user two")
}

func TestReadRunIgnoresPathTraversal(t *testing.T) {
	dataDir := t.TempDir()
	arc, err := New(dataDir, nil)
	require.NoError(t, err)

	secret := filepath.Join(dataDir, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("do not serve"), 0o644))

	_, err = arc.ReadRun(&store.Article{Filename: "../secret.txt"})
	require.Error(t, err)
}

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"Understanding Raft: A Guide!", "Understanding-Raft-A-Guide"},
		{"   ", "untitled"},
		{"//////", "untitled"},
		{"already-safe_title 42", "already-safe-title-42"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, safeTitle(tt.title), tt.title)
	}

	long := safeTitle("A Very Long Title That Keeps Going And Going Well Past The Cap On Slug Length")
	require.LessOrEqual(t, len([]rune(long)), 50)

	// Multi-byte letters are cut on a rune boundary, never mid-character.
	cjk := safeTitle(strings.Repeat("分散システム入門", 20))
	require.True(t, utf8.ValidString(cjk))
	require.Equal(t, 50, len([]rune(cjk)))
}
