package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"wallet/internal/logger"
)

func TestPlivoNotifier_Send(t *testing.T) {
	type captured struct {
		method, path, user, pass string
		basic                    bool
		form                     url.Values
	}
	var got *captured
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		user, pass, ok := r.BasicAuth()
		got = &captured{method: r.Method, path: r.URL.Path, user: user, pass: pass, basic: ok, form: r.PostForm}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := NewPlivoNotifier(server.Client(), "MAID", "secret", "+15550001", "+15550002")
	n.baseURL = server.URL

	if err := n.Send(context.Background(), "Individual: $110.00"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got == nil {
		t.Fatal("no request received")
	}

	if got.method != http.MethodPost {
		t.Errorf("method = %s, want POST", got.method)
	}
	if got.path != "/Account/MAID/Message/" {
		t.Errorf("path = %s, want /Account/MAID/Message/", got.path)
	}
	if !got.basic || got.user != "MAID" || got.pass != "secret" {
		t.Errorf("basic auth = %q:%q (%v), want MAID:secret", got.user, got.pass, got.basic)
	}
	for field, want := range map[string]string{
		"src":  "+15550001",
		"dst":  "+15550002",
		"text": "Individual: $110.00",
	} {
		if v := got.form.Get(field); v != want {
			t.Errorf("%s = %q, want %q", field, v, want)
		}
	}
}

func TestPlivoNotifier_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "authentication failed"}`))
	}))
	defer server.Close()

	n := NewPlivoNotifier(server.Client(), "MAID", "wrong", "+15550001", "+15550002")
	n.baseURL = server.URL

	err := n.Send(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"unexpected status 401", "authentication failed"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err = %v, want it to contain %q", err, want)
		}
	}
}

func TestLogNotifier_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	restore := logger.Replace(zap.New(core))
	defer restore()

	if err := (LogNotifier{}).Send(context.Background(), "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	entries := logs.FilterMessage("notification").All()
	if len(entries) != 1 {
		t.Fatalf("logged %d notifications, want 1", len(entries))
	}
	if text := entries[0].ContextMap()["text"]; text != "hello" {
		t.Errorf("text = %v, want hello", text)
	}
}
