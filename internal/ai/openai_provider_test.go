package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/biasbench/biasbench/internal/model"
)

func makeTestServer(t *testing.T, statusCode int, body any) (*httptest.Server, *http.Client) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, srv.Client()
}

func choices(content string) map[string]any {
	return map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"content": content}},
		},
	}
}

func TestComplete_Success(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, choices("hello there"))

	c := NewOpenAIClient("groq", srv.URL, "test-key", client)
	got, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "hello there" {
		t.Errorf("got %q, want %q", got, "hello there")
	}
}

func TestComplete_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"slow down"}`))
	}))
	defer srv.Close()

	c := NewOpenAIClient("groq", srv.URL, "test-key", srv.Client())
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error on 429 response")
	}
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected *model.HTTPError, got %T", err)
	}
	if !httpErr.RateLimited() || httpErr.RetryAfter.Seconds() != 7 {
		t.Errorf("HTTPError = %+v", httpErr)
	}
	if httpErr.Provider != "groq" {
		t.Errorf("Provider = %q, want groq", httpErr.Provider)
	}
}

func TestComplete_ProviderErrorPayload(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, map[string]any{
		"error": map[string]any{"message": "model decommissioned", "type": "invalid_request_error"},
	})

	c := NewOpenAIClient("groq", srv.URL, "k", client)
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error for provider error payload")
	}
}

func TestComplete_EmptyChoices(t *testing.T) {
	srv, client := makeTestServer(t, http.StatusOK, map[string]any{"choices": []any{}})

	c := NewOpenAIClient("groq", srv.URL, "k", client)
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error when LLM returns no choices")
	}
}

func TestComplete_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewOpenAIClient("groq", srv.URL, "k", srv.Client())
	_, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi"})
	if err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestComplete_SendsRequestShape(t *testing.T) {
	var gotReq chatRequest
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(choices("{}"))
	}))
	defer srv.Close()

	c := NewOpenAIClient("groq", srv.URL+"/", "my-secret-key", srv.Client())
	_, err := c.Complete(context.Background(), CompletionRequest{
		Model:       "llama-3.3-70b-versatile",
		System:      "be a judge",
		Prompt:      "evaluate",
		Temperature: 0.1,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer my-secret-key" {
		t.Errorf("Authorization header = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q, want /chat/completions", gotPath)
	}
	if gotReq.ResponseFormat == nil || gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v, want json_object", gotReq.ResponseFormat)
	}
	if gotReq.Temperature != 0.1 {
		t.Errorf("temperature = %v, want 0.1", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Content != "evaluate" {
		t.Errorf("messages = %+v", gotReq.Messages)
	}
}

func TestComplete_OmitsResponseFormatForText(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
		json.NewEncoder(w).Encode(choices("plain"))
	}))
	defer srv.Close()

	c := NewOpenAIClient("groq", srv.URL, "k", srv.Client())
	if _, err := c.Complete(context.Background(), CompletionRequest{Model: "m", Prompt: "hi", Temperature: 0.7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := raw["response_format"]; ok {
		t.Error("response_format should be omitted for plain text requests")
	}
}
