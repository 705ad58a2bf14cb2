package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	id := uuid.New()

	token, err := issuer.Issue(id, "Maria Souza", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != id.String() {
		t.Errorf("expected subject %s, got %s", id, claims.Subject)
	}
	if claims.Name != "Maria Souza" {
		t.Errorf("expected name Maria Souza, got %s", claims.Name)
	}
	if claims.Role != "admin" {
		t.Errorf("expected role admin, got %s", claims.Role)
	}
}

func TestTokenIssuer_VerifyWrongSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a").Issue(uuid.New(), "Ana", "attendant")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if _, err := NewTokenIssuer("secret-b").Verify(token); err == nil {
		t.Error("expected verification failure with wrong secret")
	}
}

func TestSessionMiddleware(t *testing.T) {
	issuer := NewTokenIssuer("test-secret")
	id := uuid.New()
	token, err := issuer.Issue(id, "Maria", "attendant")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	e := echo.New()
	handler := SessionMiddleware(issuer)(func(c echo.Context) error {
		if got, _ := c.Get("attendant_id").(string); got != id.String() {
			t.Errorf("expected attendant_id %s, got %s", id, got)
		}
		if got := AttendantIDFromContext(c.Request().Context()); got != id.String() {
			t.Errorf("expected request context attendant ID %s, got %s", id, got)
		}
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	if err := handler(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSessionMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	handler := SessionMiddleware(NewTokenIssuer("test-secret"))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 HTTPError, got %v", err)
	}
}

func TestSessionMiddleware_InvalidToken(t *testing.T) {
	e := echo.New()
	handler := SessionMiddleware(NewTokenIssuer("test-secret"))(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	err := handler(e.NewContext(req, rec))

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 HTTPError, got %v", err)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	handler := RequireRole("admin")(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("attendant_role", "admin")
	if err := handler(c); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for admin, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("attendant_role", "attendant")
	err := handler(c)

	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusForbidden {
		t.Errorf("expected 403 HTTPError, got %v", err)
	}
}
