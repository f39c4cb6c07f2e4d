package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/utafrali/storefront/pkg/logger"
)

func TestAllowlist_Allows(t *testing.T) {
	list := ParseAllowlist([]string{"10.0.0.0/8", " 192.168.1.7 ", "::1/128", "not-a-cidr", ""}, logger.Discard())
	assert.Len(t, list, 3)

	tests := []struct {
		addr string
		want bool
	}{
		{"10.1.2.3:5000", true},
		{"10.1.2.3", true},
		{"192.168.1.7:80", true},
		{"192.168.1.8:80", false},
		{"[::1]:8080", true},
		{"[::ffff:10.0.0.1]:80", true},
		{"172.16.0.1:80", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, list.Allows(tt.addr))
		})
	}
}

func TestAllowlist_EmptyDeniesAll(t *testing.T) {
	var list Allowlist
	assert.False(t, list.Allows("127.0.0.1:1"))
}

func TestAllowlist_Middleware(t *testing.T) {
	h := ParseAllowlist([]string{"127.0.0.0/8"}, logger.Discard()).Middleware(logger.Discard())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req.RemoteAddr = "203.0.113.9:4000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FORBIDDEN"`)
}

func TestRegisterPprof(t *testing.T) {
	r := chi.NewRouter()
	RegisterPprof(r, []string{"127.0.0.0/8"}, logger.Discard())

	for _, path := range []string{"/debug/pprof/", "/debug/pprof/cmdline", "/debug/pprof/heap?debug=1"} {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.RemoteAddr = "127.0.0.1:1"
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)

			req.RemoteAddr = "10.9.9.9:1"
			rec = httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}
