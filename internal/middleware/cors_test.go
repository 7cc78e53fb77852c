package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

const appOrigin = "http://localhost:5173"

func corsRequest(cfg CORSConfig, method, origin string) (*httptest.ResponseRecorder, bool) {
	reached := false
	handler := CORSMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(method, "/graphql", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, reached
}

func TestCORSMiddleware(t *testing.T) {
	site := CORSConfig{Enabled: true, AllowedOrigins: []string{appOrigin}}

	tests := []struct {
		name        string
		cfg         CORSConfig
		method      string
		origin      string
		wantCode    int
		wantReached bool
		wantHeaders map[string]string
	}{
		{
			name:        "disabled passes through",
			cfg:         CORSConfig{AllowedOrigins: []string{appOrigin}},
			method:      http.MethodGet,
			origin:      appOrigin,
			wantCode:    http.StatusOK,
			wantReached: true,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": ""},
		},
		{
			name:        "allowed origin is echoed",
			cfg:         site,
			method:      http.MethodPost,
			origin:      appOrigin,
			wantCode:    http.StatusOK,
			wantReached: true,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin":      appOrigin,
				"Vary":                             "Origin",
				"Access-Control-Allow-Credentials": "",
				"Access-Control-Allow-Methods":     "",
			},
		},
		{
			name:        "unknown origin gets no headers",
			cfg:         site,
			method:      http.MethodGet,
			origin:      "https://scraper.example",
			wantCode:    http.StatusOK,
			wantReached: true,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": ""},
		},
		{
			name:        "unknown origin preflight is answered without headers",
			cfg:         site,
			method:      http.MethodOptions,
			origin:      "https://scraper.example",
			wantCode:    http.StatusNoContent,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": ""},
		},
		{
			name:        "no origin header",
			cfg:         CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}},
			method:      http.MethodGet,
			wantCode:    http.StatusOK,
			wantReached: true,
			wantHeaders: map[string]string{"Access-Control-Allow-Origin": ""},
		},
		{
			name:        "wildcard never varies or sends credentials",
			cfg:         CORSConfig{Enabled: true, AllowedOrigins: []string{"*"}, AllowCredentials: true},
			method:      http.MethodGet,
			origin:      "https://fans.example",
			wantCode:    http.StatusOK,
			wantReached: true,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin":      "*",
				"Vary":                             "",
				"Access-Control-Allow-Credentials": "",
			},
		},
		{
			name: "credentials and exposed headers",
			cfg: CORSConfig{
				Enabled:          true,
				AllowedOrigins:   []string{appOrigin},
				AllowCredentials: true,
				ExposeHeaders:    []string{RequestIDHeader, "Retry-After"},
			},
			method:      http.MethodGet,
			origin:      appOrigin,
			wantCode:    http.StatusOK,
			wantReached: true,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Expose-Headers":    RequestIDHeader + ", Retry-After",
			},
		},
		{
			name: "preflight uses configured lists",
			cfg: CORSConfig{
				Enabled:        true,
				AllowedOrigins: []string{appOrigin},
				AllowedMethods: []string{"GET", "POST", "OPTIONS"},
				AllowedHeaders: []string{"Content-Type", "Authorization"},
				MaxAge:         86400,
			},
			method:   http.MethodOptions,
			origin:   appOrigin,
			wantCode: http.StatusNoContent,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Origin":  appOrigin,
				"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
				"Access-Control-Allow-Headers": "Content-Type, Authorization",
				"Access-Control-Max-Age":       "86400",
			},
		},
		{
			name:     "preflight defaults and trimmed origins",
			cfg:      CORSConfig{Enabled: true, AllowedOrigins: []string{" " + appOrigin + " ", ""}},
			method:   http.MethodOptions,
			origin:   appOrigin,
			wantCode: http.StatusNoContent,
			wantHeaders: map[string]string{
				"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
				"Access-Control-Allow-Headers": "Content-Type, " + RequestIDHeader,
				"Access-Control-Max-Age":       "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, reached := corsRequest(tt.cfg, tt.method, tt.origin)
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantReached, reached)
			for header, want := range tt.wantHeaders {
				assert.Equal(t, want, rr.Header().Get(header), header)
			}
		})
	}
}
