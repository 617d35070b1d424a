package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/kitchenledger/kitchenledger/internal/auth"
	"github.com/kitchenledger/kitchenledger/internal/shared"
	_ "github.com/kitchenledger/kitchenledger/testing"
)

type stubRepo struct {
	user    *auth.User
	touched []int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, strings.TrimSpace(email)) {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) TouchLogin(ctx context.Context, userID int64, at time.Time) error {
	s.touched = append(s.touched, userID)
	return nil
}

type harness struct {
	router   http.Handler
	sessions *shared.SessionManager
	cookie   *http.Cookie
}

// newHarness mounts the handler behind a minimal load/commit session wrapper.
func newHarness(t *testing.T, repo auth.Repository) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })
	sessionManager := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	csrfManager := shared.NewCSRFManager("csrfsecret")
	handler := auth.NewHandler(nil, auth.NewService(repo), sessionManager, csrfManager)

	r := chi.NewRouter()
	r.Route("/api", handler.MountRoutes)
	wrapped := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		sess, err := sessionManager.Load(req.Context(), req)
		if err != nil {
			t.Fatalf("load session: %v", err)
		}
		ctx := shared.ContextWithSession(req.Context(), sess)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req.WithContext(ctx))
		if err := sessionManager.Commit(ctx, w, req, sess); err != nil {
			t.Fatalf("commit session: %v", err)
		}
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	})
	return &harness{router: wrapped, sessions: sessionManager}
}

func (h *harness) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if h.cookie != nil {
		req.AddCookie(h.cookie)
	}
	res := httptest.NewRecorder()
	h.router.ServeHTTP(res, req)
	for _, c := range res.Result().Cookies() {
		if c.Name == h.sessions.CookieName() {
			h.cookie = c
		}
	}
	var out map[string]any
	if strings.Contains(res.Header().Get("Content-Type"), "json") {
		if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
	return res, out
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword("correctpass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &auth.User{ID: 7, Email: "owner@kitchen.local", PasswordHash: hash, IsActive: true}
}

func TestSessionAnonymous(t *testing.T) {
	h := newHarness(t, &stubRepo{})

	res, body := h.do(t, http.MethodGet, "/api/session", "")
	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	if body["session"] != false {
		t.Fatalf("expected anonymous session, got %v", body["session"])
	}
	if token, _ := body["csrf_token"].(string); token == "" {
		t.Fatalf("expected csrf token")
	}
	if h.cookie == nil {
		t.Fatalf("expected session cookie")
	}
}

func TestLoginRenewsSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	h := newHarness(t, repo)

	h.do(t, http.MethodGet, "/api/session", "")
	before := h.cookie.Value

	res, body := h.do(t, http.MethodPost, "/api/login", `{"email":"Owner@Kitchen.local","password":"correctpass"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if body["session"] != true {
		t.Fatalf("expected logged in session")
	}
	if h.cookie.Value == before {
		t.Fatalf("session id was not renewed")
	}
	if len(repo.touched) != 1 || repo.touched[0] != 7 {
		t.Fatalf("expected login to be recorded, got %v", repo.touched)
	}

	_, body = h.do(t, http.MethodGet, "/api/session", "")
	if body["session"] != true {
		t.Fatalf("expected session to persist across requests")
	}

	stale := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	stale.AddCookie(&http.Cookie{Name: h.sessions.CookieName(), Value: before})
	sess, err := h.sessions.Load(context.Background(), stale)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.Authenticated() || sess.ID == before {
		t.Fatalf("pre-login session id must not be usable")
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	inactive := activeUser(t)
	inactive.IsActive = false
	cases := map[string]struct {
		repo *stubRepo
		body string
	}{
		"wrong password": {&stubRepo{user: activeUser(t)}, `{"email":"owner@kitchen.local","password":"wrongpass"}`},
		"unknown email":  {&stubRepo{user: activeUser(t)}, `{"email":"nobody@kitchen.local","password":"correctpass"}`},
		"inactive":       {&stubRepo{user: inactive}, `{"email":"owner@kitchen.local","password":"correctpass"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, tc.repo)
			res, body := h.do(t, http.MethodPost, "/api/login", tc.body)
			if res.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", res.Code)
			}
			if body["detail"] != shared.ErrInvalidCredentials.Error() {
				t.Fatalf("unexpected detail %v", body["detail"])
			}
			if len(tc.repo.touched) != 0 {
				t.Fatalf("failed login must not be recorded")
			}
		})
	}
}

func TestLoginValidation(t *testing.T) {
	h := newHarness(t, &stubRepo{})
	res, _ := h.do(t, http.MethodPost, "/api/login", `{"email":"not-an-email","password":""}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t, &stubRepo{user: activeUser(t)})
	h.do(t, http.MethodPost, "/api/login", `{"email":"owner@kitchen.local","password":"correctpass"}`)

	res, _ := h.do(t, http.MethodPost, "/api/logout", "")
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if h.cookie.MaxAge >= 0 {
		t.Fatalf("expected session cookie to be cleared")
	}
}
