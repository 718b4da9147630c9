// Package loki ships gate security events to Grafana Loki over the push API.
package loki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	pushPath       = "/loki/api/v1/push"
	defaultJob     = "edge-gate"
	requestTimeout = 10 * time.Second
)

// Client pushes log entries to a single Loki instance.
type Client struct {
	baseURL string
	job     string
	httpc   *http.Client
}

// NewClient returns a client for the Loki instance at baseURL
// (e.g. http://localhost:3100). Entries are labeled job=edge-gate.
func NewClient(baseURL string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("loki: base URL is empty")
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		job:     defaultJob,
		httpc:   &http.Client{Timeout: requestTimeout},
	}, nil
}

// pushRequest is the Loki push API request body (v1).
type pushRequest struct {
	Streams []stream `json:"streams"`
}

// stream is a single stream with labels and log entries.
type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"` // each entry is [timestamp_ns, log_line]
}

// labelSanitize replaces characters that are invalid in Loki label values.
var labelSanitize = regexp.MustCompile(`[^a-zA-Z0-9_\-:]`)

// eventFields carries the subset of a gate event used for stream labels and
// the entry timestamp. User and session IDs are deliberately not labels;
// their cardinality would explode the number of streams.
type eventFields struct {
	TenantID  string `json:"tenant_id"`
	EventType string `json:"event_type"`
	Source    string `json:"source"`
	CreatedAt string `json:"created_at"` // RFC3339
}

func (f eventFields) labels() map[string]string {
	labels := map[string]string{}
	if f.TenantID != "" {
		labels["tenant_id"] = f.TenantID
	}
	if f.EventType != "" {
		labels["event_type"] = f.EventType
	}
	if f.Source != "" {
		labels["source"] = f.Source
	}
	return labels
}

func (f eventFields) timestamp() time.Time {
	if t, err := time.Parse(time.RFC3339Nano, f.CreatedAt); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedAt); err == nil {
		return t
	}
	return time.Now().UTC()
}

// PushEventJSON parses a gate event (the Kafka message value), derives labels
// and the entry timestamp from it, and pushes the raw JSON as the log line.
// An unparsable payload is still shipped, with current time and no extra labels.
func (c *Client) PushEventJSON(ctx context.Context, rawJSON []byte) error {
	var fields eventFields
	if err := json.Unmarshal(rawJSON, &fields); err != nil {
		return c.Push(ctx, time.Now().UTC(), string(rawJSON), nil)
	}
	return c.Push(ctx, fields.timestamp(), string(rawJSON), fields.labels())
}

// Push sends a single log line. labels are sanitized and added to the stream
// alongside the job label. Returns an error if the HTTP request fails or Loki
// answers non-2xx.
func (c *Client) Push(ctx context.Context, timestamp time.Time, line string, labels map[string]string) error {
	streamLabels := make(map[string]string, len(labels)+1)
	streamLabels["job"] = c.job
	for k, v := range labels {
		sanitized := labelSanitize.ReplaceAllString(strings.TrimSpace(v), "_")
		if sanitized != "" {
			streamLabels[k] = sanitized
		}
	}
	body := pushRequest{
		Streams: []stream{{
			Stream: streamLabels,
			Values: [][]string{{strconv.FormatInt(timestamp.UnixNano(), 10), line}},
		}},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pushPath, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("loki: push returned %s", resp.Status)
	}
	return nil
}
