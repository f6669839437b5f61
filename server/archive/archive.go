// Package archive persists processed runs as markdown files under the data
// directory and records them in the store.
package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/usedigest/digest/store"
)

const articlesDirName = "processed_articles"

// Archive writes run output to disk and the article table.
type Archive struct {
	dir   string
	store *store.Store
}

// New creates an archive rooted at <dataDir>/processed_articles.
func New(dataDir string, s *store.Store) (*Archive, error) {
	dir := filepath.Join(dataDir, articlesDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create archive directory %s", dir)
	}
	return &Archive{dir: dir, store: s}, nil
}

// SaveRun writes the markdown document for one run and records it. Returns
// the created article row; the pipeline does not depend on the file format,
// only on success or failure.
func (a *Archive) SaveRun(ctx context.Context, userID int32, sourceURL, title, sections, concepts, questions string) (*store.Article, error) {
	now := time.Now()
	uid := shortuuid.New()
	// The archive directory is shared across users, so the run UID goes into
	// the filename; a date plus title slug alone collides across users and
	// across re-processings of the same source.
	filename := fmt.Sprintf("%s_%s_%s.md", now.Format("2006-01-02"), safeTitle(title), uid)

	content := fmt.Sprintf(`# %s

**Source:** %s
**Processed:** %s

---

## Article Breakdown

%s

---

## Concept Explanations

%s

---

## Review Questions

%s
`, title, sourceURL, now.Format("2006-01-02 15:04"), sections, concepts, questions)

	if err := os.WriteFile(filepath.Join(a.dir, filename), []byte(content), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write archive file")
	}

	article, err := a.store.CreateArticle(ctx, &store.Article{
		UID:       uid,
		UserID:    userID,
		Title:     title,
		SourceURL: sourceURL,
		Filename:  filename,
		CreatedTs: now.Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to record archived article")
	}
	return article, nil
}

// ReadRun returns the markdown content of an archived run.
func (a *Archive) ReadRun(article *store.Article) (string, error) {
	// Filenames are generated by SaveRun, but guard against traversal in
	// case rows were tampered with.
	name := filepath.Base(article.Filename)
	content, err := os.ReadFile(filepath.Join(a.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "failed to read archive file")
	}
	return string(content), nil
}

// safeTitle reduces a title to a filesystem-friendly slug, capped at 50
// characters.
func safeTitle(title string) string {
	var sb strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteRune('-')
		}
	}
	slug := strings.Trim(sb.String(), "-")
	if slug == "" {
		slug = "untitled"
	}
	// Cap by rune, not byte: unicode letters survive the filter above and a
	// byte slice could cut one in half.
	if runes := []rune(slug); len(runes) > 50 {
		slug = string(runes[:50])
	}
	return slug
}
