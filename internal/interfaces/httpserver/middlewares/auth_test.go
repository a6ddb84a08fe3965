package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/interfaces/httpserver/middlewares"
)

type stubVerifier struct {
	identities map[string]*user.Identity
}

func (s *stubVerifier) VerifyToken(token string) (*user.Identity, error) {
	if identity, ok := s.identities[token]; ok {
		return identity, nil
	}
	return nil, user.ErrInvalidToken
}

func newVerifier() *stubVerifier {
	return &stubVerifier{identities: map[string]*user.Identity{
		"viewer-token": {UserID: "usr_v", Username: "viewer", Role: user.RoleViewer},
		"admin-token":  {UserID: "usr_a", Username: "admin", Role: user.RoleAdmin},
	}}
}

func echoIdentity(c *gin.Context) {
	identity := middlewares.GetIdentity(c)
	if identity == nil {
		c.JSON(http.StatusOK, gin.H{"anonymous": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": identity.UserID})
}

func request(router *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/probe", middlewares.RequireAuth(newVerifier()), echoIdentity)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "valid token", header: "Bearer viewer-token", wantStatus: http.StatusOK},
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "not bearer", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", header: "Bearer forged", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := request(router, tt.header)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/probe", middlewares.OptionalAuth(newVerifier()), echoIdentity)

	w := request(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")

	w = request(router, "Bearer viewer-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "usr_v")

	// A bad token degrades to anonymous instead of blocking the request.
	w = request(router, "Bearer forged")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "anonymous")
}

func TestRequireRoles(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifier := newVerifier()
	router := gin.New()
	router.GET("/probe",
		middlewares.RequireAuth(verifier),
		middlewares.RequireRoles(user.RoleAdmin),
		echoIdentity,
	)

	w := request(router, "Bearer admin-token")
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(router, "Bearer viewer-token")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = request(router, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
