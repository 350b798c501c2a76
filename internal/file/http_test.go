package file

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/abduss/bitbeem/internal/auth"
	"github.com/abduss/bitbeem/internal/blob"
	"github.com/abduss/bitbeem/internal/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type httpFixture struct {
	router   *gin.Engine
	key      string
	tokens   *auth.AdminTokens
	repo     *fakeRepo
	blobsDir string
}

func newHTTPFixture(t *testing.T, maxUploadBytes int64) httpFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	identities := auth.NewService(&identityTable{byKey: map[string]auth.Identity{}}, config.AuthConfig{
		AllowRegister: true,
		BcryptCost:    bcrypt.MinCost,
	}, zap.NewNop())
	alice, err := identities.Register(context.Background(), auth.RegisterInput{Username: "alice", Password: "pw"})
	require.NoError(t, err)

	tokens := auth.NewAdminTokens("admin-secret", time.Hour)
	repo := newFakeRepo()
	dir := filepath.Join(t.TempDir(), "media_store")
	service := NewService(repo, identities, blob.NewFilesystem(dir), config.PublicConfig{BaseHost: "localhost:3000"}, zap.NewNop())

	r := gin.New()
	RegisterRoutes(r.Group(""), service, auth.RequirePrincipal(identities, tokens), maxUploadBytes)
	return httpFixture{router: r, key: alice.Key, tokens: tokens, repo: repo, blobsDir: dir}
}

func (f httpFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func (f httpFixture) upload(t *testing.T, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return f.do(req)
}

func TestUploadAndDownloadOverHTTP(t *testing.T) {
	f := newHTTPFixture(t, 1024)

	rr := f.upload(t, "hello", map[string]string{
		"key":            f.key,
		"file_name":      "greeting.txt",
		"Content-Type":   "text/plain",
		"download_limit": "2",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var record File
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &record))
	assert.Equal(t, 2, record.DownloadLimit)
	assert.Equal(t, int64(5), record.FileSize)
	assert.Equal(t, "http://localhost:3000/download/"+record.ID, record.DownloadURL)
	assert.NotContains(t, rr.Body.String(), "pending_deletion")

	for i := 0; i < 2; i++ {
		rr = f.do(httptest.NewRequest(http.MethodGet, "/download/"+record.ID, nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "hello", rr.Body.String())
		assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
		assert.Equal(t, "5", rr.Header().Get("Content-Length"))
		assert.Equal(t, "greeting.txt", rr.Header().Get("filename"))
		assert.Equal(t, `attachment; filename=greeting.txt`, rr.Header().Get("Content-Disposition"))
	}

	rr = f.do(httptest.NewRequest(http.MethodGet, "/download/"+record.ID, nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUploadStatusMapping(t *testing.T) {
	f := newHTTPFixture(t, 8)

	cases := []struct {
		name       string
		body       string
		headers    map[string]string
		wantStatus int
		wantError  string
	}{
		{name: "missing key", body: "hi", wantStatus: http.StatusBadRequest, wantError: "key header is required"},
		{name: "missing key before bad limit", body: "hi", headers: map[string]string{"download_limit": "zero"}, wantStatus: http.StatusBadRequest, wantError: "key header is required"},
		{name: "bad limit", body: "hi", headers: map[string]string{"key": f.key, "download_limit": "zero"}, wantStatus: http.StatusBadRequest},
		{name: "zero limit", body: "hi", headers: map[string]string{"key": f.key, "download_limit": "0"}, wantStatus: http.StatusBadRequest},
		{name: "unknown key", body: "hi", headers: map[string]string{"key": "nope"}, wantStatus: http.StatusUnauthorized},
		{name: "too large", body: "way more than eight bytes", headers: map[string]string{"key": f.key}, wantStatus: http.StatusRequestEntityTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := f.upload(t, tc.body, tc.headers)
			assert.Equal(t, tc.wantStatus, rr.Code, rr.Body.String())
			if tc.wantError != "" {
				assert.JSONEq(t, `{"error":"`+tc.wantError+`"}`, rr.Body.String())
			}
		})
	}
	assert.Empty(t, f.repo.records)
}

func TestDownloadUnknownID(t *testing.T) {
	f := newHTTPFixture(t, 1024)

	rr := f.do(httptest.NewRequest(http.MethodGet, "/download/does-not-exist", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAllFilesRequiresPrincipal(t *testing.T) {
	f := newHTTPFixture(t, 1024)
	rr := f.upload(t, "hello", map[string]string{"key": f.key})
	require.Equal(t, http.StatusOK, rr.Code)
	f.repo.records["bobs"] = File{ID: "bobs", Owner: "bob", DownloadLimit: 1}

	rr = f.do(httptest.NewRequest(http.MethodGet, "/all_files", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/all_files", nil)
	req.Header.Set("key", f.key)
	rr = f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	var own []File
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &own))
	require.Len(t, own, 1)
	assert.Equal(t, "alice", own[0].Owner)

	token, _, err := f.tokens.Issue("ops")
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/all_files", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = f.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	var all []File
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

// identityTable is an in-memory identity store for handler tests.
type identityTable struct {
	mu    sync.Mutex
	byKey map[string]auth.Identity
}

func (s *identityTable) CreateIdentity(ctx context.Context, key, username, passwordHash string) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, identity := range s.byKey {
		if identity.Username == username {
			return auth.Identity{}, auth.ErrUsernameTaken
		}
	}
	identity := auth.Identity{Key: key, Username: username, PasswordHash: passwordHash}
	s.byKey[key] = identity
	return identity, nil
}

func (s *identityTable) FindByKey(ctx context.Context, key string) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.byKey[key]
	if !ok {
		return auth.Identity{}, auth.ErrIdentityNotFound
	}
	return identity, nil
}

func (s *identityTable) FindByUsername(ctx context.Context, username string) (auth.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, identity := range s.byKey {
		if identity.Username == username {
			return identity, nil
		}
	}
	return auth.Identity{}, auth.ErrIdentityNotFound
}
