package logging

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewWritesRotatedFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "portal.log")
	log, err := New("debug", file)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("hello")
	_ = log.Sync()
	b, err := os.ReadFile(file)
	if err != nil || len(b) == 0 {
		t.Fatalf("log file: %v (%d bytes)", err, len(b))
	}
	if _, err := New("loud", ""); err == nil {
		t.Fatal("bad level accepted")
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := middleware.RequestID(RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("hi"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if logs.Len() != 1 {
		t.Fatalf("entries: %d", logs.Len())
	}
	f := logs.All()[0].ContextMap()
	if f["status"] != int64(http.StatusTeapot) || f["bytes"] != int64(2) || f["path"] != "/healthz" || f["request_id"] == "" {
		t.Fatalf("fields: %v", f)
	}
}
