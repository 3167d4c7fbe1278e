package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPWebhookSender_SignsAndDelivers(t *testing.T) {
	var gotBody []byte
	var gotSignature, gotDelivery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSignature = r.Header.Get("X-Pitchside-Signature")
		gotDelivery = r.Header.Get("X-Pitchside-Delivery")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := NewHTTPWebhookSender()
	result := sender.Send(context.Background(), WebhookRequest{
		URL:        srv.URL,
		Secret:     "s3cret",
		DeliveryID: "delivery-1",
		Payload: WebhookPayload{
			EventID:    "evt-1",
			FromStatus: "pending",
			ToStatus:   "active",
			Cause:      "user",
			OccurredAt: "2024-03-10T12:00:00Z",
		},
	})

	if !result.IsSuccess() {
		t.Fatalf("result = %+v, want success", result)
	}
	if gotDelivery != "delivery-1" {
		t.Errorf("delivery header = %q", gotDelivery)
	}
	if !VerifySignature("s3cret", gotBody, gotSignature) {
		t.Error("signature does not verify against the body")
	}
	if VerifySignature("wrong", gotBody, gotSignature) {
		t.Error("signature verifies with the wrong secret")
	}

	var payload WebhookPayload
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("unmarshal body: %v", err)
	}
	if payload.EventID != "evt-1" || payload.ToStatus != "active" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestHTTPWebhookSender_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	sender := NewHTTPWebhookSender()
	result := sender.Send(context.Background(), WebhookRequest{
		URL:     srv.URL,
		Timeout: 20 * time.Millisecond,
	})

	if result.Error == nil {
		t.Fatal("expected timeout error")
	}
	if !result.IsRetryable() {
		t.Error("timeouts must be retryable")
	}
}

func TestWebhookResult_Classification(t *testing.T) {
	tests := []struct {
		name      string
		result    WebhookResult
		success   bool
		retryable bool
	}{
		{"200", WebhookResult{StatusCode: 200}, true, false},
		{"204", WebhookResult{StatusCode: 204}, true, false},
		{"400", WebhookResult{StatusCode: 400}, false, false},
		{"404", WebhookResult{StatusCode: 404}, false, false},
		{"429", WebhookResult{StatusCode: 429}, false, true},
		{"500", WebhookResult{StatusCode: 500}, false, true},
		{"network error", WebhookResult{Error: context.DeadlineExceeded}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.result.IsRetryable(); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}
