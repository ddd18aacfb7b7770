package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
	"github.com/acquisitions/acquisitions-api/internal/core/ports"
)

// Remote delegates classification to an HTTP decision backend.
//
// Request:  POST <url> {"ip","user_agent","method","path","query","headers"}
// Response: 200 {"denied": bool, "category": "none|bot|shield|rate_limit"}
//
// The client sets no timeout of its own; the admission engine bounds every
// call through ctx.
type Remote struct {
	url    string
	client *http.Client
}

var _ ports.Classifier = (*Remote)(nil)

// NewRemote returns a Remote posting to url. A nil client uses http.DefaultClient.
func NewRemote(url string, client *http.Client) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{url: url, client: client}
}

type remoteRequest struct {
	IP        string            `json:"ip"`
	UserAgent string            `json:"user_agent"`
	Method    string            `json:"method"`
	Path      string            `json:"path"`
	Query     string            `json:"query,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type remoteResponse struct {
	Denied   bool   `json:"denied"`
	Category string `json:"category"`
}

// Evaluate implements ports.Classifier.
func (r *Remote) Evaluate(ctx context.Context, req ports.RequestDescriptor) (ports.Verdict, error) {
	headers := make(map[string]string, len(req.Header))
	for k := range req.Header {
		if k == "Cookie" || k == "Authorization" {
			continue
		}
		headers[k] = req.Header.Get(k)
	}

	body, err := json.Marshal(remoteRequest{
		IP:        req.IP,
		UserAgent: req.UserAgent,
		Method:    req.Method,
		Path:      req.Path,
		Query:     req.RawQuery,
		Headers:   headers,
	})
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("classifier: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("classifier: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return ports.Verdict{}, fmt.Errorf("classifier: call backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.Verdict{}, fmt.Errorf("classifier: backend returned %d", resp.StatusCode)
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.Verdict{}, fmt.Errorf("classifier: decode response: %w", err)
	}

	category, err := parseCategory(out.Category)
	if err != nil {
		return ports.Verdict{}, err
	}
	return ports.Verdict{Denied: out.Denied, Category: category}, nil
}

func parseCategory(s string) (domain.Reason, error) {
	switch domain.Reason(s) {
	case "", domain.ReasonNone:
		return domain.ReasonNone, nil
	case domain.ReasonBot, domain.ReasonShield, domain.ReasonRateLimit:
		return domain.Reason(s), nil
	default:
		return "", fmt.Errorf("classifier: unknown category %q", s)
	}
}
