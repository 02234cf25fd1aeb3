package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/inventory-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-for-middleware"

func setupMiddlewareTest(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(LoggingMiddleware())

	auth := NewAuthMiddleware(secret)
	router.POST("/test", auth.Authenticate(), func(c *gin.Context) {
		operator, _ := GetOperator(c)
		c.JSON(http.StatusOK, gin.H{"operator": operator})
	})
	return router
}

func generateTestToken(t *testing.T, expiry time.Duration) string {
	token, err := util.GenerateToken("warehouse", testJWTSecret, expiry)
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		header     string
		wantStatus int
		wantBody   string
	}{
		{name: "Disabled without secret", secret: "", wantStatus: http.StatusOK},
		{name: "Valid token", secret: testJWTSecret, header: "Bearer " + generateTestToken(t, time.Minute), wantStatus: http.StatusOK, wantBody: `"operator":"warehouse"`},
		{name: "Missing header", secret: testJWTSecret, wantStatus: http.StatusUnauthorized, wantBody: "AUTH_UNAUTHORIZED"},
		{name: "Wrong scheme", secret: testJWTSecret, header: "Token abc", wantStatus: http.StatusUnauthorized, wantBody: "AUTH_TOKEN_INVALID"},
		{name: "Garbage token", secret: testJWTSecret, header: "Bearer abc", wantStatus: http.StatusUnauthorized, wantBody: "AUTH_TOKEN_INVALID"},
		{name: "Expired token", secret: testJWTSecret, header: "Bearer " + generateTestToken(t, -time.Minute), wantStatus: http.StatusUnauthorized, wantBody: "AUTH_TOKEN_EXPIRED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupMiddlewareTest(tt.secret)

			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	router := setupMiddlewareTest("")

	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req = httptest.NewRequest(http.MethodPost, "/test", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
