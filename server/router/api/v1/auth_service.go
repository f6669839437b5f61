package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/usedigest/digest/store"
)

type signupRequest struct {
	Username       string `json:"username"`
	Background     string `json:"background"`
	Interests      string `json:"interests"`
	LearningStyle  string `json:"learningStyle"`
	TechnicalLevel string `json:"technicalLevel"`
}

type signupResponse struct {
	UserID   int32  `json:"userId"`
	Username string `json:"username"`
	Token    string `json:"token"`
	IsNew    bool   `json:"isNew"`
}

// Signup creates a user or returns the existing one. Usernames are
// normalized to a stable key; the token is an opaque bearer credential.
func (s *APIV1Service) Signup(c echo.Context) error {
	ctx := c.Request().Context()

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	username := normalizeUsername(req.Username)
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required")
	}

	existing, err := s.Store.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to look up user")
	}
	if existing != nil {
		return c.JSON(http.StatusOK, signupResponse{
			UserID:   existing.ID,
			Username: existing.Username,
			Token:    existing.Token,
			IsNew:    false,
		})
	}

	user, err := s.Store.CreateUser(ctx, &store.User{
		Username:       username,
		Token:          shortuuid.New() + shortuuid.New(),
		CreatedTs:      time.Now().Unix(),
		Background:     req.Background,
		Interests:      req.Interests,
		LearningStyle:  req.LearningStyle,
		TechnicalLevel: req.TechnicalLevel,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create user")
	}

	return c.JSON(http.StatusOK, signupResponse{
		UserID:   user.ID,
		Username: user.Username,
		Token:    user.Token,
		IsNew:    true,
	})
}

type updateProfileRequest struct {
	Background     *string `json:"background"`
	Interests      *string `json:"interests"`
	LearningStyle  *string `json:"learningStyle"`
	TechnicalLevel *string `json:"technicalLevel"`
}

// UpdateProfile updates the reader profile fields of the current user.
func (s *APIV1Service) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	user := currentUser(c)

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	updated, err := s.Store.UpdateUser(ctx, &store.UpdateUser{
		ID:             user.ID,
		Background:     req.Background,
		Interests:      req.Interests,
		LearningStyle:  req.LearningStyle,
		TechnicalLevel: req.TechnicalLevel,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update profile")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"userId":         updated.ID,
		"background":     updated.Background,
		"interests":      updated.Interests,
		"learningStyle":  updated.LearningStyle,
		"technicalLevel": updated.TechnicalLevel,
	})
}

// normalizeUsername lowercases, trims and replaces inner whitespace so the
// same human-entered name always maps to the same user key.
func normalizeUsername(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	return strings.ReplaceAll(username, " ", "_")
}
