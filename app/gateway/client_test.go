package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lysyi3m/folio-pulse/app/content"
)

func TestClientFetchDecodesEnvelope(t *testing.T) {
	var gotPath, gotAuth, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[{"id":9007199254740993,"title":"Big id","created_at":"2024-03-01T00:00:00Z"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL+"/",
		WithTokenSource(StaticToken("secret")),
		WithUserAgent("folio-pulse/test"))

	records, err := client.Fetch(context.Background(), content.KindProject)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}

	if gotPath != "/content/projects" {
		t.Errorf("Expected path /content/projects, got %s", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Expected bearer token header, got '%s'", gotAuth)
	}
	if gotUA != "folio-pulse/test" {
		t.Errorf("Expected user agent header, got '%s'", gotUA)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if id, ok := records[0]["id"].(json.Number); !ok || id.String() != "9007199254740993" {
		t.Errorf("Expected id to survive as json.Number, got %#v", records[0]["id"])
	}
}

func TestClientFetchEndpoints(t *testing.T) {
	paths := make(chan string, len(content.AllKinds))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	expected := map[content.Kind]string{
		content.KindExperience:  "/content/experience",
		content.KindCertificate: "/certificates",
		content.KindAchievement: "/achievements",
	}
	for kind, want := range expected {
		if _, err := client.Fetch(context.Background(), kind); err != nil {
			t.Fatalf("Fetch(%s) returned error: %v", kind, err)
		}
		if got := <-paths; got != want {
			t.Errorf("Fetch(%s) requested %s, expected %s", kind, got, want)
		}
	}
}

func TestClientFetchNullDataIsEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"data":null}`))
	}))
	defer server.Close()

	records, err := NewClient(server.URL).Fetch(context.Background(), content.KindSkill)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("Expected empty non-nil records, got %v", records)
	}
}

func TestClientFetchErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "unsuccessful envelope",
			status: http.StatusOK,
			body:   `{"success":false,"error":"database offline"}`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.Message != "database offline" {
					t.Errorf("Expected APIError with message, got %v", err)
				}
			},
		},
		{
			name:   "server error without envelope",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
					t.Errorf("Expected APIError with status 502, got %v", err)
				}
			},
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			body:   `{"success":false,"error":"expired"}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrUnauthorized) {
					t.Errorf("Expected ErrUnauthorized, got %v", err)
				}
			},
		},
		{
			name:   "malformed body",
			status: http.StatusOK,
			body:   `{"success":true,"data":{"not":"a list"}}`,
			check: func(t *testing.T, err error) {
				if err == nil {
					t.Error("Expected error for non-array data")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			records, err := NewClient(server.URL).Fetch(context.Background(), content.KindMessage)
			if err == nil {
				t.Fatalf("Expected error, got %d records", len(records))
			}
			tt.check(t, err)
		})
	}
}

func TestClientFetchUnknownKind(t *testing.T) {
	_, err := NewClient("http://example.invalid").Fetch(context.Background(), content.Kind("gallery"))
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}

func TestClientFetchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(50*time.Millisecond))
	if _, err := client.Fetch(context.Background(), content.KindProject); err == nil {
		t.Error("Expected timeout error")
	}
}
