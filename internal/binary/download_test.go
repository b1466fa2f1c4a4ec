package binary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/watchthelight/hginstall/internal/errors"
)

func TestDownloaderFetch(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantKind   error
	}{
		{
			name:       "successful_download",
			statusCode: http.StatusOK,
			body:       "test archive content",
		},
		{
			name:       "404_not_found",
			statusCode: http.StatusNotFound,
			body:       "not found",
			wantKind:   errors.ErrNotFound,
		},
		{
			name:       "500_server_error",
			statusCode: http.StatusInternalServerError,
			body:       "server error",
			wantKind:   errors.ErrNetwork,
		},
		{
			name:       "403_forbidden",
			statusCode: http.StatusForbidden,
			wantKind:   errors.ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") != DefaultUserAgent {
					t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
				}

				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.body)); err != nil {
					t.Errorf("failed to write response: %v", err)
				}
			}))
			defer server.Close()

			data, err := NewDownloader("").Fetch(context.Background(), server.URL)

			if tt.wantKind != nil {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, tt.wantKind) {
					t.Errorf("error = %v, want kind %v", err, tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(data) != tt.body {
				t.Errorf("content mismatch:\ngot:  %q\nwant: %q", string(data), tt.body)
			}
		})
	}
}

func TestDownloaderNoRetry(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewDownloader("").Fetch(context.Background(), server.URL)
	if !errors.Is(err, errors.ErrNetwork) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
}

func TestDownloaderUserAgent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "hginstall/1.2.3" {
			t.Errorf("User-Agent = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if _, err := NewDownloader("hginstall/1.2.3").Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDownloaderSizeLimit(t *testing.T) {
	body := strings.Repeat("x", 64)

	t.Run("declared_length", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		defer server.Close()

		d := NewDownloader("")
		d.maxSize = 16
		if _, err := d.Fetch(context.Background(), server.URL); !errors.Is(err, errors.ErrNetwork) {
			t.Errorf("expected ErrNetwork for oversized body, got %v", err)
		}
	})

	t.Run("chunked", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for range 4 {
				w.Write([]byte(body))
				w.(http.Flusher).Flush()
			}
		}))
		defer server.Close()

		d := NewDownloader("")
		d.maxSize = 100
		if _, err := d.Fetch(context.Background(), server.URL); !errors.Is(err, errors.ErrNetwork) {
			t.Errorf("expected ErrNetwork for oversized body, got %v", err)
		}
	})

	t.Run("exact_limit", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		}))
		defer server.Close()

		d := NewDownloader("")
		d.maxSize = int64(len(body))
		data, err := d.Fetch(context.Background(), server.URL)
		if err != nil || len(data) != len(body) {
			t.Errorf("Fetch() = %d bytes, %v", len(data), err)
		}
	})
}

func TestDownloaderRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/final":
			w.Write([]byte("ok"))
		case "/loop":
			http.Redirect(w, r, server.URL+"/loop", http.StatusFound)
		default:
			http.Redirect(w, r, server.URL+"/final", http.StatusFound)
		}
	}))
	defer server.Close()

	d := NewDownloader("")

	data, err := d.Fetch(context.Background(), server.URL+"/start")
	if err != nil || string(data) != "ok" {
		t.Errorf("single redirect: got %q, %v", data, err)
	}

	if _, err := d.Fetch(context.Background(), server.URL+"/loop"); !errors.Is(err, errors.ErrNetwork) {
		t.Errorf("redirect loop: expected ErrNetwork, got %v", err)
	}
}

func TestDownloaderContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewDownloader("").Fetch(ctx, server.URL)
	if !errors.Is(err, errors.ErrNetwork) {
		t.Errorf("expected ErrNetwork on timeout, got %v", err)
	}
}

func TestDownloaderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	if _, err := NewDownloader("").Fetch(context.Background(), url); !errors.Is(err, errors.ErrNetwork) {
		t.Errorf("expected ErrNetwork for a closed server, got %v", err)
	}
}
