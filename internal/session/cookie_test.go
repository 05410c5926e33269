package session

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestCookieProvider(t *testing.T, ttl time.Duration) *CookieProvider {
	t.Helper()
	p, err := NewCookieProvider(testSecret, CookieOptions{TTL: ttl})
	if err != nil {
		t.Fatalf("NewCookieProvider: %v", err)
	}
	return p
}

// carryCookies copies Set-Cookie headers from a recorded response onto a new
// request, the way a browser would.
func carryCookies(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/client", nil)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			continue
		}
		req.AddCookie(c)
	}
	return req
}

func TestNewCookieProvider_ShortSecret(t *testing.T) {
	if _, err := NewCookieProvider([]byte("short"), CookieOptions{}); err == nil {
		t.Fatal("expected error for short secret")
	}
}

func TestCookieProvider_LoginThenReload(t *testing.T) {
	p := newTestCookieProvider(t, time.Hour)

	rec := httptest.NewRecorder()
	s := ForRequest(context.Background(), p, rec, httptest.NewRequest(http.MethodPost, "/login", nil), nil)
	if err := s.Login(context.Background(), clientIdentity); err != nil {
		t.Fatalf("Login: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != RecordKey {
		t.Fatalf("cookies = %+v, want one %q cookie", cookies, RecordKey)
	}
	c := cookies[0]
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode || c.MaxAge != 3600 || c.Path != "/" {
		t.Errorf("unexpected cookie attributes: %+v", c)
	}

	next := ForRequest(context.Background(), p, httptest.NewRecorder(), carryCookies(rec), nil)
	if got, ok := next.Identity(); !ok || got != clientIdentity {
		t.Fatalf("reloaded identity = %+v, %v", got, ok)
	}
}

func TestCookieProvider_TamperedCookieIsAnonymous(t *testing.T) {
	p := newTestCookieProvider(t, time.Hour)

	rec := httptest.NewRecorder()
	s := ForRequest(context.Background(), p, rec, httptest.NewRequest(http.MethodPost, "/login", nil), nil)
	_ = s.Login(context.Background(), clientIdentity)
	value := rec.Result().Cookies()[0].Value

	// Swap in a payload granting admin while keeping the client's signature.
	parts := strings.Split(value, ".")
	parts[1] = base64.RawURLEncoding.EncodeToString(
		[]byte(`{"rec":{"id":2,"name":"Cal Client","roles":["ROLE_ADMIN"]},"iss":"drivehub"}`))
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: RecordKey, Value: strings.Join(parts, ".")})

	next := ForRequest(context.Background(), p, httptest.NewRecorder(), req, nil)
	if _, ok := next.Identity(); ok {
		t.Fatal("tampered cookie should read as anonymous")
	}
	if !next.IsReady() {
		t.Fatal("store must be ready")
	}
}

func TestCookieProvider_ForeignSecretIsAnonymous(t *testing.T) {
	issuer := newTestCookieProvider(t, 0)
	other, _ := NewCookieProvider([]byte("ffffffffffffffffffffffffffffffff"), CookieOptions{})

	rec := httptest.NewRecorder()
	_ = ForRequest(context.Background(), issuer, rec, httptest.NewRequest(http.MethodPost, "/login", nil), nil).
		Login(context.Background(), adminIdentity)

	next := ForRequest(context.Background(), other, httptest.NewRecorder(), carryCookies(rec), nil)
	if _, ok := next.Identity(); ok {
		t.Fatal("cookie signed with another secret should read as anonymous")
	}
}

func TestCookieProvider_ExpiredCookieIsAnonymous(t *testing.T) {
	p := newTestCookieProvider(t, time.Minute)
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return start }

	rec := httptest.NewRecorder()
	_ = ForRequest(context.Background(), p, rec, httptest.NewRequest(http.MethodPost, "/login", nil), nil).
		Login(context.Background(), adminIdentity)

	p.now = func() time.Time { return start.Add(2 * time.Minute) }
	next := ForRequest(context.Background(), p, httptest.NewRecorder(), carryCookies(rec), nil)
	if _, ok := next.Identity(); ok {
		t.Fatal("expired cookie should read as anonymous")
	}
}

func TestCookieProvider_GarbageCookieIsAnonymous(t *testing.T) {
	p := newTestCookieProvider(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/client", nil)
	req.AddCookie(&http.Cookie{Name: RecordKey, Value: `{"id":1,"roles":["ROLE_ADMIN"]}`})

	s := ForRequest(context.Background(), p, httptest.NewRecorder(), req, nil)
	if _, ok := s.Identity(); ok {
		t.Fatal("unsigned cookie should read as anonymous")
	}
}

func TestCookieProvider_LogoutExpiresCookie(t *testing.T) {
	p := newTestCookieProvider(t, time.Hour)

	rec := httptest.NewRecorder()
	_ = ForRequest(context.Background(), p, rec, httptest.NewRequest(http.MethodPost, "/login", nil), nil).
		Login(context.Background(), clientIdentity)

	logoutRec := httptest.NewRecorder()
	s := ForRequest(context.Background(), p, logoutRec, carryCookies(rec), nil)
	if _, ok := s.Identity(); !ok {
		t.Fatal("expected identity before logout")
	}
	if err := s.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	cookies := logoutRec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expiring cookie, got %+v", cookies)
	}

	// Re-initializing within the same exchange sees the deletion.
	s.Initialize(context.Background())
	if _, ok := s.Identity(); ok {
		t.Fatal("expected anonymous after logout + reinitialize")
	}
}
