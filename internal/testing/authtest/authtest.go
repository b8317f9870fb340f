// Package authtest builds requests that carry a signed-in session.
package authtest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/freshmart/freshmart-pos/internal/shared"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FRESHMART_TEST_MODE") == "" {
			_ = os.Setenv("FRESHMART_TEST_MODE", "1")
		}
	})
}

// Principals used across handler tests.
var (
	Admin    = shared.Principal{Role: shared.RoleAdmin, ID: 1, Name: "Ada Admin"}
	Employee = shared.Principal{Role: shared.RoleEmployee, ID: 7, Name: "Eve Clerk"}
	Customer = shared.Principal{Role: shared.RoleCustomer, ID: 42, Name: "Sam Shopper"}
)

// Request returns a request whose context holds a session for p. A nil p
// yields an anonymous session. A non-empty body is sent as JSON.
func Request(t *testing.T, method, target, body string, p *shared.Principal) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	sm := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test_session", 0, false)

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if p != nil {
		sess.SetPrincipal(*p)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

// As is Request with a copy of p.
func As(t *testing.T, method, target, body string, p shared.Principal) *http.Request {
	t.Helper()
	return Request(t, method, target, body, &p)
}
