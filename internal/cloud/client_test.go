// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// testClient builds a configured client pointed at a test server, with
// retries and rate limiting neutralized for speed.
func testClient(serverURL string) *Client {
	return NewClient("sk-test-abcdefghijklmnopqrstuvwxyz").
		WithBaseURL(serverURL).
		WithModel("test-model").
		WithMaxRetries(1).
		WithRateLimit(rate.NewLimiter(rate.Inf, 0))
}

// =============================================================================
// CLIENT CONFIGURATION TESTS
// =============================================================================

func TestNewClient(t *testing.T) {
	client := NewClient("sk-test-key").WithBaseURL("https://api.example.com/v1")
	if !client.IsConfigured() {
		t.Error("client with key and base URL should be configured")
	}

	if NewClient("").WithBaseURL("https://api.example.com").IsConfigured() {
		t.Error("client without API key should not be configured")
	}
	if NewClient("sk-test-key").IsConfigured() {
		t.Error("client without base URL should not be configured")
	}
}

func TestWithBaseURL_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	client := testClient(srv.URL + "/v1/")
	if _, err := client.Chat(context.Background(), []ChatMessage{NewTextMessage("user", "hi")}); err != nil {
		t.Fatalf("Chat: %v", err)
	}
}

// TestKeyFingerprint verifies the key never leaks into log-safe output.
func TestKeyFingerprint(t *testing.T) {
	client := NewClient("sk-test-secret")
	fp := client.KeyFingerprint()
	if len(fp) != 8 {
		t.Errorf("fingerprint length = %d, want 8 hex chars", len(fp))
	}
	if fp == "sk-test-" {
		t.Error("fingerprint must not be a key prefix")
	}
	if NewClient("").KeyFingerprint() != "none" {
		t.Errorf("empty key fingerprint = %q", NewClient("").KeyFingerprint())
	}
}

// =============================================================================
// MESSAGE HELPER TESTS
// =============================================================================

func TestMessageHelpers(t *testing.T) {
	msg := NewTextMessage("user", "hello")
	if msg.Role != "user" || msg.Content != "hello" {
		t.Errorf("NewTextMessage = %+v", msg)
	}

	sys := NewSystemMessage("prompt")
	if sys.Role != "system" || sys.Content != "prompt" {
		t.Errorf("NewSystemMessage = %+v", sys)
	}

	img := NewImageMessage("user", "look", "data:image/png;base64,xx")
	parts, ok := img.Content.([]ContentPart)
	if !ok || len(parts) != 2 {
		t.Fatalf("NewImageMessage content = %#v", img.Content)
	}
	if parts[0].Type != "text" || parts[0].Text != "look" {
		t.Errorf("text part = %+v", parts[0])
	}
	if parts[1].Type != "image_url" || parts[1].ImageURL.URL != "data:image/png;base64,xx" {
		t.Errorf("image part = %+v", parts[1])
	}
}

func TestImageMessageMarshal(t *testing.T) {
	raw, err := json.Marshal(NewImageMessage("user", "看", "http://x/p.png"))
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Role    string `json:"role"`
		Content []struct {
			Type     string `json:"type"`
			Text     string `json:"text,omitempty"`
			ImageURL *struct {
				URL string `json:"url"`
			} `json:"image_url,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("wire shape not an array of parts: %v", err)
	}
	if decoded.Content[1].ImageURL.URL != "http://x/p.png" {
		t.Errorf("decoded = %+v", decoded)
	}
}

// =============================================================================
// BATCH CHAT TESTS
// =============================================================================

func TestChat_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test-abcdefghijklmnopqrstuvwxyz" {
			t.Errorf("Authorization = %q", got)
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" || req.Stream {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"你好"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Chat(context.Background(), []ChatMessage{NewTextMessage("user", "hi")})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.GetContent() != "你好" {
		t.Errorf("GetContent = %q", resp.GetContent())
	}
}

func TestChat_NotConfigured(t *testing.T) {
	_, err := NewClient("").Chat(context.Background(), nil)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v", err)
	}
}

func TestChat_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Chat(context.Background(), nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("err = %v", err)
	}
}

func TestChat_ErrorStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusPaymentRequired, ErrInsufficientCredits},
		{http.StatusNotFound, ErrModelNotFound},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, `{"error":{"code":"e","message":"nope"}}`)
			}))
			defer srv.Close()

			_, err := testClient(srv.URL).Chat(context.Background(), nil)
			if !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestChat_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"code":"overloaded","message":"try again"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	client := testClient(srv.URL).WithMaxRetries(3)
	resp, err := client.Chat(context.Background(), nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.GetContent() != "ok" {
		t.Errorf("GetContent = %q", resp.GetContent())
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d", calls.Load())
	}
}

func TestChat_BadRequestNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":"bad","message":"malformed"}}`)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).WithMaxRetries(3).Chat(context.Background(), nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("err = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want no retries", calls.Load())
	}
}

// =============================================================================
// RETRY LOGIC TESTS
// =============================================================================

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"rate limited", fmt.Errorf("wrapped: %w", ErrRateLimited), true},
		{"server error 500", &APIError{Status: 500, Message: "boom"}, true},
		{"server error 503", &APIError{Status: 503, Message: "busy"}, true},
		{"client error 400", &APIError{Status: 400, Message: "bad"}, false},
		{"auth failed", ErrAuthFailed, false},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryable(tc.err); got != tc.retryable {
				t.Errorf("isRetryable(%v) = %v, want %v", tc.err, got, tc.retryable)
			}
		})
	}
}

func TestBackoff(t *testing.T) {
	if d := backoff(0); d != 500*time.Millisecond {
		t.Errorf("backoff(0) = %v", d)
	}
	if d := backoff(1); d != time.Second {
		t.Errorf("backoff(1) = %v", d)
	}
	if d := backoff(10); d != retryMaxDelay {
		t.Errorf("backoff(10) = %v, want cap %v", d, retryMaxDelay)
	}
}

// =============================================================================
// ERROR TYPE TESTS
// =============================================================================

func TestAPIErrorFormat(t *testing.T) {
	withCode := &APIError{Code: "invalid_api_key", Message: "bad key", Status: 401}
	if got := withCode.Error(); got != "API error [invalid_api_key] (HTTP 401): bad key" {
		t.Errorf("Error() = %q", got)
	}
	noCode := &APIError{Message: "boom", Status: 500}
	if got := noCode.Error(); got != "API error (HTTP 500): boom" {
		t.Errorf("Error() = %q", got)
	}
}
