package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshmart/freshmart-pos/internal/auth"
	"github.com/freshmart/freshmart-pos/internal/shared"
	"github.com/freshmart/freshmart-pos/internal/view"
)

type stubRepo struct {
	accounts  map[shared.Role]map[string]auth.Account
	customers []auth.Registration
}

func newStubRepo(t *testing.T) *stubRepo {
	t.Helper()
	hash := func(pw string) string {
		b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
		require.NoError(t, err)
		return string(b)
	}
	return &stubRepo{accounts: map[shared.Role]map[string]auth.Account{
		shared.RoleAdmin:    {"boss": {Role: shared.RoleAdmin, ID: 1, Username: "boss", Name: "Ada Admin", PasswordHash: hash("adminpw")}},
		shared.RoleEmployee: {"clerk": {Role: shared.RoleEmployee, ID: 7, Username: "clerk", Name: "Eve Clerk", PasswordHash: hash("clerkpw")}},
		shared.RoleCustomer: {
			"shopper": {Role: shared.RoleCustomer, ID: 42, Username: "shopper", Name: "Sam Shopper", PasswordHash: hash("shoppw")},
			"boss":    {Role: shared.RoleCustomer, ID: 43, Username: "boss", Name: "Other Boss", PasswordHash: hash("custpw")},
		},
	}}
}

func (s *stubRepo) FindAccount(_ context.Context, role shared.Role, username string) (auth.Account, error) {
	acc, ok := s.accounts[role][username]
	if !ok {
		return auth.Account{}, shared.ErrNotFound
	}
	return acc, nil
}

func (s *stubRepo) CustomerEmailExists(_ context.Context, email string) (bool, error) {
	for _, c := range s.customers {
		if strings.EqualFold(c.Email, email) {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) CustomerUsernameExists(_ context.Context, username string) (bool, error) {
	if _, ok := s.accounts[shared.RoleCustomer][username]; ok {
		return true, nil
	}
	for _, c := range s.customers {
		if c.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubRepo) CreateCustomer(_ context.Context, reg auth.Registration, _ string) (int64, error) {
	s.customers = append(s.customers, reg)
	return int64(100 + len(s.customers)), nil
}

type harness struct {
	router   http.Handler
	sessions *shared.SessionManager
	redis    *miniredis.Miniredis
}

func newHarness(t *testing.T, repo auth.Repository) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := auth.NewHandler(nil, auth.NewService(repo), templates, sessions, shared.NewCSRFManager("csrfsecret"))

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			cw := &commitWriter{ResponseWriter: w, commit: func() {
				require.NoError(t, sessions.Commit(ctx, w, sess))
			}}
			next.ServeHTTP(cw, req.WithContext(ctx))
			cw.flush()
		})
	})
	handler.MountRoutes(r)
	return &harness{router: r, sessions: sessions, redis: mr}
}

// commitWriter commits the session before the first header write.
type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (c *commitWriter) flush() {
	if !c.committed {
		c.committed = true
		c.commit()
	}
}

func (c *commitWriter) WriteHeader(status int) {
	c.flush()
	c.ResponseWriter.WriteHeader(status)
}

func (c *commitWriter) Write(b []byte) (int, error) {
	c.flush()
	return c.ResponseWriter.Write(b)
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t, newStubRepo(t))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
	assert.Contains(t, rec.Body.String(), `name="csrf_token"`)
}

func TestLoginRolePrecedence(t *testing.T) {
	h := newHarness(t, newStubRepo(t))

	rec := postJSON(h.router, "/login", `{"username":"boss","password":"adminpw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "admin", body["role"])
	assert.Equal(t, "/admin", body["redirectUrl"])

	// Same username in customers with a different password falls through.
	rec = postJSON(h.router, "/login", `{"username":"boss","password":"custpw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "customer", decode(t, rec)["role"])
}

func TestLoginAcceptsUserID(t *testing.T) {
	h := newHarness(t, newStubRepo(t))
	rec := postJSON(h.router, "/login", `{"user_id":"clerk","password":"clerkpw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "employee", body["role"])
	assert.Equal(t, "/employee", body["redirectUrl"])
}

func TestLoginRenewsSession(t *testing.T) {
	h := newHarness(t, newStubRepo(t))

	first := httptest.NewRecorder()
	h.router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/login", nil))
	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)
	before := cookies[0].Value

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"shopper","password":"shoppw"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	after := rec.Result().Cookies()
	require.NotEmpty(t, after)
	assert.NotEqual(t, before, after[0].Value)
	assert.False(t, h.redis.Exists("session:"+before))
	assert.True(t, h.redis.Exists("session:"+after[0].Value))
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, newStubRepo(t))

	rec := postJSON(h.router, "/login", `{"username":"shopper","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid ID or Password", body["message"])

	rec = postJSON(h.router, "/login", `{"username":"ghost","password":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginMissingCredentials(t *testing.T) {
	h := newHarness(t, newStubRepo(t))
	rec := postJSON(h.router, "/login", `{"username":"shopper"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing credentials", decode(t, rec)["message"])
}

func TestLoginFormRendersError(t *testing.T) {
	h := newHarness(t, newStubRepo(t))
	form := url.Values{"username": {"shopper"}, "password": {"bad"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid ID or Password")
}

func TestLoginFormRedirectsHome(t *testing.T) {
	h := newHarness(t, newStubRepo(t))
	form := url.Values{"username": {"clerk"}, "password": {"clerkpw"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/employee", rec.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	repo := newStubRepo(t)
	h := newHarness(t, repo)

	rec := postJSON(h.router, "/register", `{"name":"New Person","email":"new@example.com","password":"secret1","username":"newbie"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Registration successful!", body["message"])
	require.Len(t, repo.customers, 1)

	rec = postJSON(h.router, "/register", `{"name":"Dup","email":"NEW@example.com","password":"secret1","username":"other"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email already registered", decode(t, rec)["message"])

	rec = postJSON(h.router, "/register", `{"name":"Dup","email":"dup@example.com","password":"secret1","username":"shopper"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already taken", decode(t, rec)["message"])
}

func TestRegisterMissingFields(t *testing.T) {
	h := newHarness(t, newStubRepo(t))
	rec := postJSON(h.router, "/register", `{"name":"x","email":"x@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing required fields", decode(t, rec)["message"])
}

func TestLogoutDestroysSession(t *testing.T) {
	h := newHarness(t, newStubRepo(t))
	rec := postJSON(h.router, "/login", `{"username":"shopper","password":"shoppw"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookie := rec.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	out := httptest.NewRecorder()
	h.router.ServeHTTP(out, req)

	assert.Equal(t, http.StatusSeeOther, out.Code)
	assert.Equal(t, "/login", out.Header().Get("Location"))
	assert.False(t, h.redis.Exists("session:"+cookie.Value))
}
