package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"engine-bridge/core/response"
)

// Outcome classifies one readiness probe. Outcomes are ephemeral: they are
// produced and consumed inside the polling loop, only the last one survives
// in failure diagnostics.
type Outcome int

const (
	// OutcomeUnreachable means nothing answered on host:port.
	OutcomeUnreachable Outcome = iota
	// OutcomeNotReady means something answered but the API is still booting.
	OutcomeNotReady
	// OutcomeReady means the engine API is up.
	OutcomeReady
	// OutcomeFatal means the engine answered with an unambiguous fatal
	// status; waiting longer cannot help.
	OutcomeFatal
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnreachable:
		return "unreachable"
	case OutcomeNotReady:
		return "reachable_but_not_ready"
	case OutcomeReady:
		return "ready"
	case OutcomeFatal:
		return "errored_permanently"
	default:
		return "unknown"
	}
}

// Prober performs a single readiness check.
type Prober interface {
	Probe(ctx context.Context) Outcome
}

// BaseURL builds the engine API root for a host and port. The host may or
// may not carry a scheme.
func BaseURL(host string, port int) string {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return fmt.Sprintf("%s:%d/ep", host, port)
}

type httpProber struct {
	url    string
	client *http.Client
}

func newHTTPProber(baseURL string) *httpProber {
	return &httpProber{
		url: baseURL + "/test",
		// per-probe cap; the overall budget belongs to the polling loop
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *httpProber) Probe(ctx context.Context) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return OutcomeFatal
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Classify(response.Normalize(0, nil, err), 0)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return Classify(response.Normalize(resp.StatusCode, body, nil), resp.StatusCode)
}

// Classify maps a normalized probe response onto a lifecycle outcome.
// 503 and 404 mean the HTTP listener is up before the API is, which the
// engine does while booting; other server errors are treated as fatal.
func Classify(res response.Result, status int) Outcome {
	if res.Err == nil {
		return OutcomeReady
	}
	if res.Err.Kind == response.KindUnreachable {
		return OutcomeUnreachable
	}
	switch {
	case status == http.StatusServiceUnavailable || status == http.StatusNotFound:
		return OutcomeNotReady
	case status >= 500:
		return OutcomeFatal
	default:
		return OutcomeNotReady
	}
}
