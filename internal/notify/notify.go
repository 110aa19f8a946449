// Package notify delivers short text alerts about job outcomes.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"wallet/internal/logger"
)

const plivoBaseURL = "https://api.plivo.com/v1"

// PlivoNotifier sends SMS through the Plivo Message API.
type PlivoNotifier struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	authID     string
	authToken  string
	src        string
	dst        string
}

// NewPlivoNotifier creates a notifier sending from src to dst.
func NewPlivoNotifier(httpClient *http.Client, authID, authToken, src, dst string) *PlivoNotifier {
	return &PlivoNotifier{
		httpClient: httpClient,
		baseURL:    plivoBaseURL,
		authID:     authID,
		authToken:  authToken,
		src:        src,
		dst:        dst,
	}
}

// Send posts text as one message.
func (n *PlivoNotifier) Send(ctx context.Context, text string) error {
	form := url.Values{
		"src":  {n.src},
		"dst":  {n.dst},
		"text": {text},
	}
	endpoint := fmt.Sprintf("%s/Account/%s/Message/", n.baseURL, url.PathEscape(n.authID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building plivo request: %w", err)
	}
	req.SetBasicAuth(n.authID, n.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("plivo http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("plivo request: unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// LogNotifier writes messages to the application log instead of sending them.
type LogNotifier struct{}

// Send logs text.
func (LogNotifier) Send(_ context.Context, text string) error {
	logger.Get().Infow("notification", "text", text)
	return nil
}
