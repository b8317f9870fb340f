package report

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type pingStub struct{ err error }

func (p pingStub) Ping(context.Context) error { return p.err }

func TestPDFHealth(t *testing.T) {
	for _, tc := range []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"up", nil, http.StatusOK, `"status":"ok"`},
		{"down", errors.New("connection refused"), http.StatusServiceUnavailable, `"status":"unavailable"`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(pingStub{err: tc.err}, nil).MountRoutes(r)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/pdf/health", nil))
			require.Equal(t, tc.status, rec.Code)
			require.Contains(t, rec.Body.String(), tc.want)
			require.Contains(t, rec.Body.String(), `"backend":"gotenberg"`)
		})
	}
}
