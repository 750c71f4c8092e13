package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/The-x-35/vibegame-sub000/internal/models"
	"github.com/The-x-35/vibegame-sub000/internal/txerrors"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"insufficient funds"}`, "insufficient funds"},
		{"nested error", `{"error":{"message":"route not found"}}`, "route not found"},
		{"error string", `{"error":"quote expired"}`, "quote expired"},
		{"plain text", "  bad gateway \n", "bad gateway"},
		{"empty", "", ""},
		{"no known field", `{"code":7}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorMessage([]byte(tt.body)); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestStatusError(t *testing.T) {
	c := NewClient("signer", nil, 0).ForwardsCallerCredential()

	tests := []struct {
		status int
		body   string
		want   txerrors.Kind
	}{
		{200, `{}`, ""},
		{401, `{"message":"token expired"}`, txerrors.KindUnauthenticated},
		{403, ``, txerrors.KindUnauthenticated},
		{400, `{"message":"policy denied"}`, txerrors.KindUpstreamRejected},
		{429, ``, txerrors.KindUpstreamUnavailable},
		{500, `oops`, txerrors.KindUpstreamUnavailable},
		{503, ``, txerrors.KindUpstreamUnavailable},
	}

	for _, tt := range tests {
		err := c.StatusError("sign", &Response{StatusCode: tt.status, Body: []byte(tt.body)})
		if got := txerrors.KindOf(err); got != tt.want {
			t.Errorf("Status %d: expected kind %q, got %q", tt.status, tt.want, got)
		}
	}

	err := c.StatusError("sign", &Response{StatusCode: 400, Body: []byte(`{"message":"policy denied"}`)})
	e, _ := txerrors.As(err)
	if e.Message != "policy denied" {
		t.Errorf("Expected verbatim upstream message, got %q", e.Message)
	}
	if e.Upstream != "signer" {
		t.Errorf("Expected upstream signer, got %q", e.Upstream)
	}
}

func TestStatusErrorServiceCredentials(t *testing.T) {
	c := NewClient("minter", nil, 0)
	err := c.StatusError("mint", &Response{StatusCode: 401, Body: []byte(`{"error":"invalid api key"}`)})
	if !txerrors.IsKind(err, txerrors.KindUpstreamUnavailable) {
		t.Errorf("Expected service credential failure to be %s, got %v", txerrors.KindUpstreamUnavailable, err)
	}
}

func TestDo(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	httpClient, err := NewHTTPClient(models.UpstreamConfig{})
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}
	c := NewClient("minter", httpClient, 0)

	resp, err := c.Do(context.Background(), http.MethodPost, server.URL, map[string]string{"Authorization": "Bearer abc"}, map[string]string{"a": "b"})
	if err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Expected Authorization header to be forwarded, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Expected JSON content type, got %q", gotContentType)
	}

	var out struct {
		Ok bool `json:"ok"`
	}
	if err := c.Decode("mint", resp, &out); err != nil || !out.Ok {
		t.Errorf("Expected decoded body, got %+v (%v)", out, err)
	}
}

func TestDoOversizedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer server.Close()

	c := NewClient("aggregator", server.Client(), 10)
	_, err := c.Do(context.Background(), http.MethodGet, server.URL, nil, nil)
	if !txerrors.IsKind(err, txerrors.KindUpstreamUnavailable) {
		t.Errorf("Expected %s for oversized body, got %v", txerrors.KindUpstreamUnavailable, err)
	}
}

func TestDoUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	c := NewClient("signer", server.Client(), 0)
	_, err := c.Do(context.Background(), http.MethodPost, url, nil, nil)
	if !txerrors.IsSignerUnreachable(err) {
		t.Errorf("Expected signer unreachable error, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	c := NewClient("aggregator", nil, 0)
	var out map[string]any
	err := c.Decode("order", &Response{StatusCode: 200, Body: []byte("<html>")}, &out)
	if !txerrors.IsKind(err, txerrors.KindUpstreamUnavailable) {
		t.Errorf("Expected malformed response to be %s, got %v", txerrors.KindUpstreamUnavailable, err)
	}
}
