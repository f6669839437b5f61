package v1

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/usedigest/digest/server/digest"
	"github.com/usedigest/digest/server/extractor"
	apperr "github.com/usedigest/digest/server/internal/errors"
	"github.com/usedigest/digest/server/internal/observability"
	"github.com/usedigest/digest/server/memory"
	"github.com/usedigest/digest/store"
)

type processArticleRequest struct {
	Source     string `json:"source"`
	SourceType string `json:"source_type"`
}

type processArticleResponse struct {
	ArticleID string `json:"article_id"`
	Title     string `json:"title"`
	Sections  string `json:"sections"`
	Concepts  string `json:"concepts"`
	Questions string `json:"questions"`
}

// ProcessArticle runs the full digest for one source. Extraction and LLM
// failures collapse into one generic processing failure; memory-layer
// failures are invisible to the end user by design.
func (s *APIV1Service) ProcessArticle(c echo.Context) error {
	// A run that started completes its extraction, LLM calls and memory
	// writes even when the client goes away; only the response is lost.
	ctx := context.WithoutCancel(c.Request().Context())
	user := currentUser(c)

	if !s.limiter.Allow(fmt.Sprintf("user/%d", user.ID)) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many digest requests")
	}

	var req processArticleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if strings.TrimSpace(req.Source) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "source is required")
	}
	sourceType := extractor.SourceType(req.SourceType)
	if sourceType != extractor.SourceTypeURL && sourceType != extractor.SourceTypePDFURL {
		return echo.NewHTTPError(http.StatusBadRequest, "source_type must be 'url' or 'pdf_url'")
	}

	log := observability.NewRequestContext(slog.Default(), user.ID)
	ctx = observability.WithRequestContext(ctx, log)
	log.Info("processing article", slog.String(observability.LogFieldSource, req.Source))

	text, title, err := s.Extractor.Extract(ctx, req.Source, sourceType)
	if err != nil {
		log.Error("extraction failed", err,
			slog.String(observability.LogFieldErrorCode, string(apperr.ErrCodeExtractionFailed)))
		return echo.NewHTTPError(http.StatusBadRequest, "could not extract article")
	}

	mem := memory.New(user.ID, s.Store, s.Embedder)
	result, err := s.Pipeline.Run(ctx, digest.RunInput{
		Text:      text,
		Title:     title,
		SourceURL: req.Source,
		Profile: digest.ReaderProfile{
			Background:     user.Background,
			Interests:      user.Interests,
			LearningStyle:  user.LearningStyle,
			TechnicalLevel: user.TechnicalLevel,
		},
		Memory: mem,
	})
	if err != nil {
		log.Error("pipeline failed", err,
			slog.String(observability.LogFieldErrorCode, string(apperr.GetCodeFromError(err, apperr.ErrCodeLLMCallFailed))))
		return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
	}

	concepts := result.Concepts
	if strings.TrimSpace(concepts) == "" || len(result.ParsedConcepts) == 0 {
		concepts = "No new concepts"
	}

	article, err := s.Archive.SaveRun(ctx, user.ID, req.Source, title, result.Sections, concepts, result.Questions)
	if err != nil {
		log.Error("failed to archive run", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "processing failed")
	}

	log.Info("article processed",
		slog.Int64(observability.LogFieldDuration, log.DurationMs()),
		slog.Int("stored_concepts", result.StoredCount),
		slog.Bool("storage_degraded", result.StorageErr != nil))

	return c.JSON(http.StatusOK, processArticleResponse{
		ArticleID: article.UID,
		Title:     title,
		Sections:  result.Sections,
		Concepts:  concepts,
		Questions: result.Questions,
	})
}

type articleListItem struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SourceURL string `json:"sourceUrl"`
	CreatedTs int64  `json:"createdTs"`
}

// ListArticles lists the current user's archived runs, newest first.
func (s *APIV1Service) ListArticles(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	articles, err := s.Store.ListArticles(ctx, &store.FindArticle{UserID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list articles")
	}

	items := make([]articleListItem, 0, len(articles))
	for _, article := range articles {
		items = append(items, articleListItem{
			ID:        article.UID,
			Title:     article.Title,
			SourceURL: article.SourceURL,
			CreatedTs: article.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"articles": items})
}

// GetArticle returns the archived markdown of one run. Articles are scoped
// to their owner; other users get a 404, never the content.
func (s *APIV1Service) GetArticle(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)
	uid := c.Param("uid")

	article, err := s.Store.GetArticle(ctx, &store.FindArticle{UID: &uid, UserID: &user.ID})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to look up article")
	}
	if article == nil {
		return echo.NewHTTPError(http.StatusNotFound, "article not found")
	}

	content, err := s.Archive.ReadRun(article)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "article content not found")
	}
	return c.JSON(http.StatusOK, map[string]any{"content": content})
}

// MemoryStats returns the current user's learning statistics.
func (s *APIV1Service) MemoryStats(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	stats, err := memory.New(user.ID, s.Store, s.Embedder).Stats(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load stats")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"totalConcepts":  stats.TotalConcepts,
		"totalArticles":  stats.TotalArticles,
		"recentConcepts": stats.RecentConcepts,
	})
}

// ListConcepts returns every stored concept name for the current user in
// store order.
func (s *APIV1Service) ListConcepts(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	names, err := memory.New(user.ID, s.Store, s.Embedder).AllConceptNames(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list concepts")
	}
	return c.JSON(http.StatusOK, map[string]any{"concepts": names})
}
