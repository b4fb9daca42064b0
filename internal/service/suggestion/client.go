// Package suggestion requests AI follow-up questions for a live session and
// keeps them in an ordered list.
package suggestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrSuggestionRequestFailed wraps every failed suggestion request.
var ErrSuggestionRequestFailed = errors.New("suggestion request failed")

// Request is the context sent to the suggestion service.
type Request struct {
	SessionID      string   `json:"sessionId"`
	Role           string   `json:"role"`
	JobDescription string   `json:"jobDescription"`
	Experience     string   `json:"experience"`
	Skills         []string `json:"skills"`
	Transcript     string   `json:"transcript"`
}

type response struct {
	ExpectedQuestions []string `json:"expectedQuestions"`
}

// Client generates questions for a request.
type Client interface {
	Suggest(ctx context.Context, req Request) ([]string, error)
}

// HTTPClient calls POST {base}/suggestions.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a suggestion service client.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Suggest(ctx context.Context, req Request) ([]string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/suggestions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuggestionRequestFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSuggestionRequestFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: http %d: %s", ErrSuggestionRequestFailed, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: response parse error: %v", ErrSuggestionRequestFailed, err)
	}
	return out.ExpectedQuestions, nil
}

// MockClient derives questions locally from the skills and the transcript.
type MockClient struct {
	Delay time.Duration
}

func (m MockClient) Suggest(ctx context.Context, req Request) ([]string, error) {
	if m.Delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.Delay):
		}
	}

	var out []string
	if tail := lastWords(req.Transcript, 8); tail != "" {
		out = append(out, fmt.Sprintf("You mentioned %q. Can you go deeper on that?", tail))
	}
	if len(req.Skills) > 0 {
		skill := req.Skills[len(req.Transcript)%len(req.Skills)]
		out = append(out, fmt.Sprintf("How have you applied %s in a recent project?", skill))
	}
	if len(out) == 0 && req.Role != "" {
		out = append(out, fmt.Sprintf("What drew you to the %s role?", req.Role))
	}
	return out, nil
}

func lastWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}
