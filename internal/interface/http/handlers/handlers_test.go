package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticAccounts map[string]string

func (a staticAccounts) Enabled() bool { return len(a) > 0 }

func (a staticAccounts) Verify(user, pass string) error {
	if p, ok := a[user]; ok && p == pass {
		return nil
	}
	return errors.New("denied")
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserFromContext(r.Context())))
	})
}

func TestBasicAuth(t *testing.T) {
	mw := BasicAuth(staticAccounts{"lan": "secret"}, "classpoint", nil).Middleware(echoUser())

	tests := []struct {
		name     string
		user     string
		pass     string
		wantCode int
		wantBody string
	}{
		{name: "no credentials", wantCode: http.StatusUnauthorized},
		{name: "wrong password", user: "lan", pass: "nope", wantCode: http.StatusUnauthorized},
		{name: "valid", user: "lan", pass: "secret", wantCode: http.StatusOK, wantBody: "lan"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="classpoint", charset="UTF-8"`, rec.Header().Get("WWW-Authenticate"))
				return
			}
			assert.Equal(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestBasicAuth_DisabledPassesThrough(t *testing.T) {
	for _, accounts := range []Authenticator{nil, staticAccounts{}} {
		rec := httptest.NewRecorder()
		BasicAuth(accounts, "x", nil).Middleware(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) MiddlewareFunc {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := ChainHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mark("outer"), mark("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var deadline bool
	h := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, deadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, deadline)
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH
// ══════════════════════════════════════════════════════════════════════════════

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func TestCompositeHealthChecker(t *testing.T) {
	c := NewCompositeHealthChecker("1.0.0")
	c.AddCheck("redis", NewPingCheck(pinger{}))
	c.AddCheck("storage", NewLoadCheck(func(context.Context) error { return nil }))

	status := c.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, "All checks passed", status.Message)
	assert.Equal(t, "1.0.0", status.Version)
	require.Len(t, status.Checks, 2)

	c.AddCheck("postgres", NewPingCheck(pinger{err: errors.New("connection refused")}))
	c.AddCheck("badger", NewPingCheck(pinger{err: errors.New("closed")}))
	status = c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, "Some checks failed: badger, postgres", status.Message)
	assert.Equal(t, "connection refused", status.Checks["postgres"].Message)
	assert.True(t, status.Checks["redis"].Healthy)
}

func TestCompositeHealthChecker_Timeout(t *testing.T) {
	c := NewCompositeHealthChecker("")
	c.SetTimeout(10 * time.Millisecond)
	c.AddCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	status := c.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Equal(t, context.DeadlineExceeded.Error(), status.Checks["slow"].Message)
}
