package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/fd1az/reserve-relayer/internal/apperror"
)

func TestGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/orders" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("makerTokenAddress"); got != "0xabc" {
			t.Errorf("makerTokenAddress = %q", got)
		}
		if r.Header.Get("X-Test") != "1" {
			t.Errorf("default header missing")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"salt":"42"}]`))
	}))
	defer srv.Close()

	c, err := New(
		WithBaseURL(srv.URL+"/"),
		WithProviderName("test-feed"),
		WithHeaders(map[string]string{"X-Test": "1"}),
	)
	if err != nil {
		t.Fatal(err)
	}

	var out []struct {
		Salt string `json:"salt"`
	}
	err = c.GetJSON(context.Background(), "/v0/orders", url.Values{"makerTokenAddress": {"0xabc"}}, &out)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if len(out) != 1 || out[0].Salt != "42" {
		t.Errorf("out = %+v", out)
	}
}

func TestGetJSON_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := New(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}

	err = c.GetJSON(context.Background(), "/x", nil, nil)
	if !apperror.IsCode(err, apperror.CodeExternalServiceError) {
		t.Fatalf("err = %v, want EXTERNAL_SERVICE_ERROR", err)
	}
}

func TestGetJSON_BadBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c, _ := New(WithBaseURL(srv.URL))
	var out map[string]any
	if err := c.GetJSON(context.Background(), "/x", nil, &out); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetJSON_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c, _ := New(WithBaseURL(srv.URL), WithRequestTimeout(50*time.Millisecond))
	err := c.GetJSON(context.Background(), "/slow", nil, nil)
	if !apperror.IsCode(err, apperror.CodeFeedConnectionError) {
		t.Fatalf("err = %v, want FEED_CONNECTION_ERROR", err)
	}
}

func TestCustomErrorHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, _ := New(WithBaseURL(srv.URL), WithErrorHandler(func(int, []byte) error { return nil }))
	if _, err := c.Get(context.Background(), "/missing", nil); err != nil {
		t.Fatalf("custom handler should accept 404, got %v", err)
	}
}
