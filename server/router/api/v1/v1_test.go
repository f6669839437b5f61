package v1

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/usedigest/digest/internal/profile"
	"github.com/usedigest/digest/plugin/ai"
	"github.com/usedigest/digest/server/archive"
	"github.com/usedigest/digest/server/digest"
	"github.com/usedigest/digest/server/extractor"
	"github.com/usedigest/digest/server/middleware"
	"github.com/usedigest/digest/store"
	"github.com/usedigest/digest/store/db/sqlite"
)

func newTestService(t *testing.T) (*APIV1Service, *echo.Echo) {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "digest_test.db"),
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	require.NoError(t, driver.Migrate(t.Context()))
	t.Cleanup(func() { _ = driver.Close() })

	svc := &APIV1Service{
		Profile: p,
		Store:   store.New(driver, p),
	}
	e := echo.New()
	svc.Register(e.Group("/api/v1"))
	return svc, e
}

func doJSON(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSignup(t *testing.T) {
	_, e := newTestService(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", "", `{"username": "  Ada Lovelace "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var first signupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Equal(t, "ada_lovelace", first.Username)
	require.NotEmpty(t, first.Token)
	require.True(t, first.IsNew)

	// Same human-entered name maps to the same account.
	rec = doJSON(e, http.MethodPost, "/api/v1/auth/signup", "", `{"username": "ADA LOVELACE"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var second signupResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.Equal(t, first.UserID, second.UserID)
	require.Equal(t, first.Token, second.Token)
	require.False(t, second.IsNew)
}

func TestSignupRequiresUsername(t *testing.T) {
	_, e := newTestService(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/auth/signup", "", `{"username": "   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	_, e := newTestService(t)

	rec := doJSON(e, http.MethodGet, "/api/v1/articles", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/articles", "not-a-token", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	signup := doJSON(e, http.MethodPost, "/api/v1/auth/signup", "", `{"username": "bob"}`)
	var resp signupResponse
	require.NoError(t, json.Unmarshal(signup.Body.Bytes(), &resp))

	rec = doJSON(e, http.MethodGet, "/api/v1/articles", resp.Token, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUpdateProfilePartial(t *testing.T) {
	_, e := newTestService(t)

	signup := doJSON(e, http.MethodPost, "/api/v1/auth/signup", "",
		`{"username": "carol", "background": "chemist", "interests": "polymers"}`)
	var resp signupResponse
	require.NoError(t, json.Unmarshal(signup.Body.Bytes(), &resp))

	rec := doJSON(e, http.MethodPatch, "/api/v1/profile", resp.Token, `{"background": "biochemist"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "biochemist", updated["background"])
	require.Equal(t, "polymers", updated["interests"])
}

func TestGetArticleOwnership(t *testing.T) {
	svc, e := newTestService(t)
	ctx := t.Context()

	_, err := svc.Store.CreateArticle(ctx, &store.Article{
		UID:       "owned",
		UserID:    999,
		Title:     "Not yours",
		SourceURL: "https://example.com",
		Filename:  "f.md",
	})
	require.NoError(t, err)

	signup := doJSON(e, http.MethodPost, "/api/v1/auth/signup", "", `{"username": "dave"}`)
	var resp signupResponse
	require.NoError(t, json.Unmarshal(signup.Body.Bytes(), &resp))

	// Another user's article is indistinguishable from a missing one.
	rec := doJSON(e, http.MethodGet, "/api/v1/articles/owned", resp.Token, "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type cannedLLM struct{}

func (cannedLLM) Chat(_ context.Context, messages []ai.Message) (string, error) {
	system := messages[0].Content
	switch {
	case strings.Contains(system, "digestible sections"):
		return "## Section 1: Overview\nWhat the article covers.", nil
	case strings.Contains(system, "identifies complex concepts"):
		return "- Raft Consensus | Distributed Systems", nil
	case strings.Contains(system, "concrete analogies"):
		return "**Concept: Raft Consensus**\nExplanation: Majority voting with one leader.\nAnalogy: A class election.", nil
	default:
		return "1. Who elects the leader?", nil
	}
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func (unitEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (unitEmbedder) Dimensions() int { return 2 }

const abandonedArticleHTML = `<!DOCTYPE html>
<html>
<head><title>How Raft Works</title></head>
<body><article>
<h1>How Raft Works</h1>
<p>Raft is a consensus algorithm designed as an understandable alternative to
Paxos. It decomposes the problem into leader election, log replication and
safety, each solved with a small set of rules that one engineer can hold in
their head. A majority quorum decides when a log entry is committed.</p>
</article></body>
</html>`

func TestProcessArticleCompletesAfterClientAbandons(t *testing.T) {
	svc, e := newTestService(t)
	svc.Embedder = unitEmbedder{}
	svc.Pipeline = digest.NewPipeline(cannedLLM{})
	svc.Extractor = extractor.New()
	svc.limiter = middleware.DefaultRateLimiter()

	arc, err := archive.New(t.TempDir(), svc.Store)
	require.NoError(t, err)
	svc.Archive = arc

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(abandonedArticleHTML))
	}))
	defer srv.Close()

	user, err := svc.Store.CreateUser(t.Context(), &store.User{
		Username:  "eve",
		Token:     "tok-eve",
		CreatedTs: 1,
	})
	require.NoError(t, err)

	// The request context is already canceled, as if the client hung up
	// before the run finished. The run still completes and persists.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := fmt.Sprintf(`{"source": %q, "source_type": "url"}`, srv.URL)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/process-article", strings.NewReader(body)).WithContext(ctx)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(userContextKey, user)

	require.NoError(t, svc.ProcessArticle(c))
	require.Equal(t, http.StatusOK, rec.Code)

	concepts, err := svc.Store.ListConcepts(context.Background(), &store.FindConcept{UserID: &user.ID})
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	require.Equal(t, "Raft Consensus", concepts[0].Name)

	userID := user.ID
	articles, err := svc.Store.ListArticles(context.Background(), &store.FindArticle{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, articles, 1)
}

func TestNormalizeUsername(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{"Alice", "alice"},
		{"  Ada Lovelace ", "ada_lovelace"},
		{"double  space", "double__space"},
		{"", ""},
		{"   ", ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, normalizeUsername(tt.in), tt.in)
	}
}
