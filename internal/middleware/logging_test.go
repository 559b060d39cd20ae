package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithRequestLogging(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  int
		wantLevel zapcore.Level
		wantBytes int
	}{
		{
			name: "ok",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("hello"))
			},
			wantCode:  http.StatusOK,
			wantLevel: zapcore.InfoLevel,
			wantBytes: 5,
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
			wantCode:  http.StatusNotFound,
			wantLevel: zapcore.InfoLevel,
			wantBytes: len("404 page not found\n"),
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			wantCode:  http.StatusInternalServerError,
			wantLevel: zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			h := chiMiddleware.RequestID(WithRequestLogging(zap.New(core))(tt.handler))

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/card/1", nil)
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d; want %d", rec.Code, tt.wantCode)
			}
			entries := logs.All()
			if len(entries) != 1 {
				t.Fatalf("got %d log entries; want 1", len(entries))
			}
			e := entries[0]
			if e.Level != tt.wantLevel {
				t.Errorf("level = %v; want %v", e.Level, tt.wantLevel)
			}
			fields := e.ContextMap()
			if fields["path"] != "/card/1" {
				t.Errorf("path = %v; want /card/1", fields["path"])
			}
			if fields["status"] != int64(tt.wantCode) {
				t.Errorf("status field = %v; want %d", fields["status"], tt.wantCode)
			}
			if fields["bytes"] != int64(tt.wantBytes) {
				t.Errorf("bytes field = %v; want %d", fields["bytes"], tt.wantBytes)
			}
			if id, _ := fields["request_id"].(string); id == "" {
				t.Error("expected request_id field")
			}
		})
	}
}
