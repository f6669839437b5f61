// Package v1 exposes the JSON REST API.
package v1

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/usedigest/digest/internal/profile"
	"github.com/usedigest/digest/plugin/ai"
	"github.com/usedigest/digest/server/archive"
	"github.com/usedigest/digest/server/digest"
	"github.com/usedigest/digest/server/extractor"
	"github.com/usedigest/digest/server/middleware"
	"github.com/usedigest/digest/store"
)

// userContextKey is the echo context key holding the authenticated user.
const userContextKey = "digest.user"

// APIV1Service wires the digest pipeline, memory and collaborators into echo
// handlers.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Embedder  ai.EmbeddingService
	Pipeline  *digest.Pipeline
	Extractor *extractor.Extractor
	Archive   *archive.Archive

	limiter *middleware.RateLimiter
}

// NewAPIV1Service creates the API service and its collaborators.
func NewAPIV1Service(p *profile.Profile, s *store.Store) (*APIV1Service, error) {
	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		return nil, err
	}

	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return nil, err
	}
	llm, err := ai.NewLLMService(&aiConfig.LLM)
	if err != nil {
		return nil, err
	}

	arc, err := archive.New(p.Data, s)
	if err != nil {
		return nil, err
	}

	return &APIV1Service{
		Profile:   p,
		Store:     s,
		Embedder:  embedder,
		Pipeline:  digest.NewPipeline(ai.WithRetry(llm, 2)),
		Extractor: extractor.New(),
		Archive:   arc,
		limiter:   middleware.DefaultRateLimiter(),
	}, nil
}

// Register attaches all routes to the echo group.
func (s *APIV1Service) Register(g *echo.Group) {
	g.POST("/auth/signup", s.Signup)

	authed := g.Group("", s.authMiddleware)
	authed.POST("/process-article", s.ProcessArticle)
	authed.GET("/articles", s.ListArticles)
	authed.GET("/articles/:uid", s.GetArticle)
	authed.GET("/memory/stats", s.MemoryStats)
	authed.GET("/memory/concepts", s.ListConcepts)
	authed.PATCH("/profile", s.UpdateProfile)
}

// authMiddleware resolves the bearer token to a user and stores it on the
// request context.
func (s *APIV1Service) authMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := strings.TrimPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		user, err := s.Store.GetUser(c.Request().Context(), &store.FindUser{Token: &token})
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to look up user")
		}
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		c.Set(userContextKey, user)
		return next(c)
	}
}

func currentUser(c echo.Context) *store.User {
	user, _ := c.Get(userContextKey).(*store.User)
	return user
}
