package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(service *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group(""), service)
	return r
}

func registerRequest(username, password string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/user/register", nil)
	req.Header.Set("username", username)
	req.Header.Set("password", password)
	return req
}

func TestRegisterHandler(t *testing.T) {
	router := newTestRouter(NewService(newMemoryStore(), testConfig(true), zap.NewNop()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, registerRequest("alice", "s3cret"))
	require.Equal(t, http.StatusCreated, rr.Code)

	var body registerResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "alice", body.Username)
	assert.NotEmpty(t, body.Key)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, registerRequest("alice", "other"))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, registerRequest("", ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterHandlerDisabled(t *testing.T) {
	router := newTestRouter(NewService(newMemoryStore(), testConfig(false), zap.NewNop()))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, registerRequest("alice", "s3cret"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRequirePrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	service := NewService(newMemoryStore(), testConfig(true), zap.NewNop())
	tokens := NewAdminTokens("admin-secret", time.Hour)

	identity, err := service.Register(t.Context(), RegisterInput{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	adminToken, _, err := tokens.Issue("ops")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/whoami", RequirePrincipal(service, tokens), func(c *gin.Context) {
		principal, ok := CurrentPrincipal(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"username": principal.Username, "admin": principal.Admin})
	})

	cases := []struct {
		name       string
		headers    map[string]string
		wantStatus int
		wantBody   string
	}{
		{name: "no credentials", wantStatus: http.StatusUnauthorized},
		{name: "unknown key", headers: map[string]string{KeyHeader: "nope"}, wantStatus: http.StatusUnauthorized},
		{name: "bad token", headers: map[string]string{"Authorization": "Bearer junk"}, wantStatus: http.StatusUnauthorized},
		{
			name:       "identity key",
			headers:    map[string]string{KeyHeader: identity.Key},
			wantStatus: http.StatusOK,
			wantBody:   `{"admin":false,"username":"alice"}`,
		},
		{
			name:       "admin token",
			headers:    map[string]string{"Authorization": "Bearer " + adminToken},
			wantStatus: http.StatusOK,
			wantBody:   `{"admin":true,"username":"ops"}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, rr.Body.String())
			}
		})
	}
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer   abc "))
	assert.Equal(t, "", extractBearerToken("Basic abc"))
}
