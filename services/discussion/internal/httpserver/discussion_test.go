package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cinetalk/cinetalk/pkg/authclient"
	"github.com/cinetalk/cinetalk/pkg/remoteauth"
	"github.com/cinetalk/cinetalk/services/discussion/internal/models"
	"github.com/cinetalk/cinetalk/services/discussion/internal/repo"
)

// tokenIdentity maps each bearer token to a fixed identity so tests
// can act as several users without a live auth service.
type tokenIdentity map[string]authclient.User

func (v tokenIdentity) ValidateToken(_ echo.Context, token string) (*authclient.ValidateResult, error) {
	user, ok := v[token]
	if !ok {
		return &authclient.ValidateResult{Valid: false, Message: "invalid token"}, nil
	}
	return &authclient.ValidateResult{Valid: true, User: &user}, nil
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&models.Discussion{}, &models.Comment{}, &models.Vote{}))

	identities := tokenIdentity{
		"alice-token": {UserID: "alice", Username: "alice"},
		"bob-token":   {UserID: "bob", Username: "bob"},
	}

	e := echo.New()
	Register(e, &Deps{
		DiscussionHandler: &DiscussionHTTP{Repo: &repo.GormRepo{DB: gdb}},
		Auth:              remoteauth.NewWithValidator(identities, remoteauth.NewCache(time.Minute, 100)),
	})
	return e
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func createDiscussion(t *testing.T, e *echo.Echo, token, body string) models.Discussion {
	t.Helper()
	rec := do(e, http.MethodPost, "/discussions", token, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var d models.Discussion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	return d
}

func TestDiscussionLifecycle(t *testing.T) {
	e := newTestServer(t)

	d := createDiscussion(t, e, "alice-token", `{"movie_id":550,"title":"That twist","body":"wow"}`)
	assert.Equal(t, "alice", d.Username)

	rec := do(e, http.MethodGet, "/discussions?movie_id=550", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page struct {
		Total       int64               `json:"total"`
		Discussions []models.Discussion `json:"discussions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.EqualValues(t, 1, page.Total)

	rec = do(e, http.MethodGet, "/discussions/1", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// bob cannot delete alice's thread
	rec = do(e, http.MethodDelete, "/discussions/1", "bob-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodDelete, "/discussions/1", "alice-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/discussions/1", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDiscussionValidation(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodPost, "/discussions", "alice-token", `{"title":"no movie"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/discussions", "", `{"movie_id":1,"title":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/discussions", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "movie_id is required")
}

func TestCommentsEndpoint(t *testing.T) {
	e := newTestServer(t)
	createDiscussion(t, e, "alice-token", `{"movie_id":550,"title":"thread"}`)

	rec := do(e, http.MethodPost, "/discussions/1/comments", "bob-token", `{"body":"agreed"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(e, http.MethodPost, "/discussions/99/comments", "bob-token", `{"body":"orphan"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodGet, "/discussions/1/comments", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []models.Comment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "bob", comments[0].Username)

	// alice cannot delete bob's comment
	rec = do(e, http.MethodDelete, "/discussions/1/comments/1", "alice-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(e, http.MethodDelete, "/discussions/1/comments/1", "bob-token", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVoteEndpoint(t *testing.T) {
	e := newTestServer(t)
	createDiscussion(t, e, "alice-token", `{"movie_id":550,"title":"thread"}`)

	rec := do(e, http.MethodPost, "/discussions/1/vote", "bob-token", `{"value":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Votes int `json:"votes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Votes)

	rec = do(e, http.MethodPost, "/discussions/1/vote", "bob-token", `{"value":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/discussions/1/vote", "", `{"value":1}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSearchUnconfigured(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/discussions/search?q=twist", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
