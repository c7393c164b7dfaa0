package media

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestUpload(t *testing.T) {
	var gotAuth, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		gotName = header.Filename
		data, _ := io.ReadAll(file)
		gotBody = string(data)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url": "https://cdn.example.com/abc123.png"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	url, err := c.Upload(context.Background(), "diagram.png", strings.NewReader("png bytes"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if url != "https://cdn.example.com/abc123.png" {
		t.Errorf("unexpected url %q", url)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("unexpected auth header %q", gotAuth)
	}
	if gotName != "diagram.png" {
		t.Errorf("unexpected filename %q", gotName)
	}
	if gotBody != "png bytes" {
		t.Errorf("unexpected body %q", gotBody)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "boom", "returned 500"},
		{"api error field", http.StatusOK, `{"error": "file too large"}`, "file too large"},
		{"missing url", http.StatusOK, `{}`, "no url"},
		{"bad json", http.StatusOK, `not json`, "decode upload response"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := New(srv.URL, "")
			_, err := c.Upload(context.Background(), "x.png", strings.NewReader("x"))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestUploadDisabled(t *testing.T) {
	c := New("", "")
	if c.Enabled() {
		t.Error("client with empty base URL should be disabled")
	}
	if _, err := c.Upload(context.Background(), "x.png", strings.NewReader("x")); err == nil {
		t.Error("expected error when media host not configured")
	}
}
