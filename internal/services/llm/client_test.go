package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"polyglot/internal/services"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": content,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Fatalf("encode response: %v", err)
		}
	}
}

func TestClientTranslateSendsRequest(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		completionHandler(t, "<p>Hola</p>")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test-key", BaseURL: server.URL})
	got, err := client.Translate(context.Background(), "<p>Hello</p>")
	if err != nil {
		t.Fatalf("Translate returned error: %v", err)
	}
	if got != "<p>Hola</p>" {
		t.Fatalf("unexpected translation %q", got)
	}
	if captured.Model != DefaultModel {
		t.Fatalf("expected default model, got %q", captured.Model)
	}
	if captured.Temperature != 0.3 || captured.MaxTokens != 4000 {
		t.Fatalf("unexpected sampling params: %+v", captured)
	}
	if len(captured.Messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(captured.Messages))
	}
	if captured.Messages[0].Role != "system" || captured.Messages[0].Content != DefaultSystemPrompt {
		t.Fatalf("unexpected system message %+v", captured.Messages[0])
	}
	if captured.Messages[1].Role != "user" || captured.Messages[1].Content != "<p>Hello</p>" {
		t.Fatalf("unexpected user message %+v", captured.Messages[1])
	}
}

func TestClientTranslateMissingKey(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.Translate(context.Background(), "hello")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T %v", err, err)
	}
	if err.Error() != "API key not configured" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatal("expected configuration marker")
	}
	if calls != 0 {
		t.Fatalf("expected no outbound calls, got %d", calls)
	}
}

func TestClientTranslateRemoteErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Translate(context.Background(), "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T %v", err, err)
	}
	if apiErr.Status != http.StatusInternalServerError || apiErr.Message != "overloaded" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
	if !errors.Is(err, services.ErrRemote) {
		t.Fatal("expected remote marker")
	}
}

func TestClientTranslateRemoteStatusFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	_, err := client.Translate(context.Background(), "hello")
	if err == nil || err.Error() != "API request failed with status 429" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestClientTranslateInvalidFormat(t *testing.T) {
	cases := map[string]string{
		"no choices":   `{"choices":[]}`,
		"no message":   `{"choices":[{"finish_reason":"stop"}]}`,
		"no content":   `{"choices":[{"message":{"role":"assistant"}}]}`,
		"not json":     `<html>`,
		"empty object": `{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
			_, err := client.Translate(context.Background(), "hello")
			var apiErr *APIError
			if !errors.As(err, &apiErr) || apiErr.Message != "Invalid API response format" {
				t.Fatalf("expected invalid format error, got %v", err)
			}
		})
	}
}

func TestClientTranslateEmptyContentIsNotAnError(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, ""))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	got, err := client.Translate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty content, got %q", got)
	}
}

func TestClientTranslateTransportTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(
		Config{APIKey: "k", BaseURL: server.URL},
		WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
	)
	_, err := client.Translate(context.Background(), "hello")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %T %v", err, err)
	}
	if !strings.HasPrefix(err.Error(), "API request failed: ") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatal("expected transport marker")
	}
	if !IsTimeout(err) {
		t.Fatal("expected timeout classification")
	}
}

func TestClientCheckConnection(t *testing.T) {
	var prompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		prompt = req.Messages[1].Content
		completionHandler(t, "Hola Mundo")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "demo-model"})
	if !client.TestConnection(context.Background()) {
		t.Fatal("expected connection test to succeed")
	}
	if prompt != testPrompt {
		t.Fatalf("unexpected test prompt %q", prompt)
	}
	if msg := client.ConnectionMessage(nil); msg != "Connection successful! Using model: demo-model" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestClientCheckConnectionEmptyReply(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "   "))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL})
	err := client.CheckConnection(context.Background())
	if err == nil || err.Error() != "API returned empty response" {
		t.Fatalf("unexpected error %v", err)
	}
	if client.TestConnection(context.Background()) {
		t.Fatal("expected TestConnection to report false")
	}
}

func TestClampTimeoutSeconds(t *testing.T) {
	cases := map[int]int{0: 120, -5: 120, 10: 30, 45: 45, 900: 300}
	for in, want := range cases {
		if got := ClampTimeoutSeconds(in); got != want {
			t.Fatalf("ClampTimeoutSeconds(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestSummarizePayload(t *testing.T) {
	if got := SummarizePayload("  "); got != "<empty>" {
		t.Fatalf("unexpected summary %q", got)
	}
	long := strings.Repeat("a ", 200)
	if got := SummarizePayload(long); !strings.HasSuffix(got, "...") || len([]rune(got)) != 163 {
		t.Fatalf("unexpected truncated summary %q", got)
	}
	if got := SummarizePayload("a\n\tb"); got != "a b" {
		t.Fatalf("unexpected whitespace collapse %q", got)
	}
}
