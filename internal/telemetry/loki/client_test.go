package loki

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestNewClient_EmptyURL(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for empty base URL")
	}
}

func TestClient_PushEventJSON_LabelsAndTimestamp(t *testing.T) {
	var got pushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/loki/api/v1/push" {
			t.Errorf("path = %s, want /loki/api/v1/push", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal push body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	created := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	event := []byte(`{"tenant_id":"staff","event_type":"session_invalid","source":"gate","created_at":"` +
		created.Format(time.RFC3339) + `"}`)
	if err := c.PushEventJSON(context.Background(), event); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}

	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	labels := got.Streams[0].Stream
	if labels["job"] != "edge-gate" {
		t.Errorf("job label = %q, want edge-gate", labels["job"])
	}
	if labels["tenant_id"] != "staff" {
		t.Errorf("tenant_id label = %q, want staff", labels["tenant_id"])
	}
	if labels["event_type"] != "session_invalid" {
		t.Errorf("event_type label = %q, want session_invalid", labels["event_type"])
	}
	if labels["source"] != "gate" {
		t.Errorf("source label = %q, want gate", labels["source"])
	}
	values := got.Streams[0].Values
	if len(values) != 1 || len(values[0]) != 2 {
		t.Fatalf("values = %v, want one [ts, line] entry", values)
	}
	if want := strconv.FormatInt(created.UnixNano(), 10); values[0][0] != want {
		t.Errorf("timestamp = %s, want %s", values[0][0], want)
	}
	if values[0][1] != string(event) {
		t.Errorf("line = %s, want raw event JSON", values[0][1])
	}
}

func TestClient_PushEventJSON_UnparsablePayloadStillShips(t *testing.T) {
	var got pushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal push body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.PushEventJSON(context.Background(), []byte("not json")); err != nil {
		t.Fatalf("PushEventJSON: %v", err)
	}

	if len(got.Streams) != 1 {
		t.Fatalf("streams = %d, want 1", len(got.Streams))
	}
	labels := got.Streams[0].Stream
	if len(labels) != 1 || labels["job"] != "edge-gate" {
		t.Errorf("labels = %v, want only job=edge-gate", labels)
	}
	if got.Streams[0].Values[0][1] != "not json" {
		t.Errorf("line = %q, want raw payload", got.Streams[0].Values[0][1])
	}
}

func TestClient_Push_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if err := c.Push(context.Background(), time.Now(), "line", nil); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestClient_Push_SanitizesLabelValues(t *testing.T) {
	var got pushRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("unmarshal push body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	labels := map[string]string{
		"tenant_id": " staff tenant! ",
		"empty":     "   ",
	}
	if err := c.Push(context.Background(), time.Now(), "line", labels); err != nil {
		t.Fatalf("Push: %v", err)
	}

	stream := got.Streams[0].Stream
	if stream["tenant_id"] != "staff_tenant_" {
		t.Errorf("tenant_id label = %q, want staff_tenant_", stream["tenant_id"])
	}
	if _, ok := stream["empty"]; ok {
		t.Error("whitespace-only label value should be dropped")
	}
}
