package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/ganesh47/cf-metadata-sys/internal/middleware"
	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	return log
}

// stubVerifier is never asked to verify anything in these tests: both the
// 404 and 405 paths are rejected by the router before RequireAuth runs.
type stubVerifier struct{}

func (stubVerifier) Verify(context.Context, string) (jwt.MapClaims, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	auth := middleware.NewAuthMiddleware(testLogger(t), stubVerifier{})
	engine, err := NewRouter(auth, Handlers{}, nil, testLogger(t))
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return engine
}

func TestRouterUnknownRouteReturns404(t *testing.T) {
	engine := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/this-path-does-not-exist", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterKnownPathWrongMethodReturns405(t *testing.T) {
	engine := newTestRouter(t)

	// /:org/nodes declares GET and POST in routes.yaml; DELETE is a known
	// pattern under an unsupported method, so this must be 405, not 404
	// (spec §4.2, §6.1, §7 MethodUnknown).
	req := httptest.NewRequest(http.MethodDelete, "/acme/nodes", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterKnownPathKnownMethodRequiresAuth(t *testing.T) {
	engine := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/acme/nodes", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 (no auth supplied), got %d: %s", rec.Code, rec.Body.String())
	}
}
