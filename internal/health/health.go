package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StatusOK is the only status a running relay reports.
const StatusOK = "ok"

// DefaultProbeTimeout bounds a status probe when the caller sets no deadline.
const DefaultProbeTimeout = 5 * time.Second

// Report is the body of the relay's health endpoint.
type Report struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Healthy reports whether the relay said it is running.
func (r *Report) Healthy() bool {
	return r != nil && r.Status == StatusOK
}

// ForService returns the report served by a relay named serviceName.
func ForService(serviceName string) Report {
	return Report{
		Status:  StatusOK,
		Message: serviceName + " Running",
	}
}

// ProbeResult is the outcome of probing a running relay.
type ProbeResult struct {
	URL        string
	StatusCode int
	Latency    time.Duration
	Report     *Report
}

// Probe fetches the health report from the relay at baseURL.
// A nil client uses http.DefaultClient.
func Probe(ctx context.Context, client *http.Client, baseURL string) (*ProbeResult, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultProbeTimeout)
		defer cancel()
	}

	target := strings.TrimRight(baseURL, "/") + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid relay URL: %w", err)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := &ProbeResult{
		URL:        target,
		StatusCode: resp.StatusCode,
		Latency:    time.Since(start),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return result, fmt.Errorf("failed to read health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("relay returned %s", resp.Status)
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return result, fmt.Errorf("failed to parse health response: %w", err)
	}
	result.Report = &report
	return result, nil
}
