// Package metadata fetches the static job context of an interview session.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// ErrMeetingNotFound is returned when the service has no meeting for an id.
var ErrMeetingNotFound = errors.New("meeting not found")

// Meeting is the job context of one interview.
type Meeting struct {
	ID                string   `json:"id"`
	CandidateName     string   `json:"candidateName,omitempty"`
	Title             string   `json:"title"`
	JobDescription    string   `json:"jobDescription"`
	ExperienceLevel   string   `json:"experienceLevel"`
	Skills            []string `json:"skills"`
	ExpectedQuestions []string `json:"expectedQuestions"`
}

// Fetcher loads meeting metadata by id.
type Fetcher interface {
	Fetch(ctx context.Context, meetingID string) (Meeting, error)
}

// Client fetches meetings over HTTP from GET {base}/meeting/{id}.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a metadata client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type meetingResponse struct {
	Status  int `json:"status"`
	Meeting struct {
		ID                json.Number `json:"id"`
		Name              string      `json:"name"`
		Role              string      `json:"role"`
		JobDesc           string      `json:"job_desc"`
		Experience        string      `json:"experience"`
		Skills            string      `json:"skills"`
		ExpectedQuestions string      `json:"expected_questions"`
	} `json:"meeting"`
}

// Fetch loads one meeting.
func (c *Client) Fetch(ctx context.Context, meetingID string) (Meeting, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/meeting/"+meetingID, nil)
	if err != nil {
		return Meeting{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Meeting{}, fmt.Errorf("fetch meeting %s: %w", meetingID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return Meeting{}, fmt.Errorf("meeting %s: %w", meetingID, ErrMeetingNotFound)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Meeting{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Meeting{}, fmt.Errorf("fetch meeting %s: http %d: %s", meetingID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var mr meetingResponse
	if err := json.Unmarshal(body, &mr); err != nil {
		return Meeting{}, fmt.Errorf("meeting %s: response parse error: %w", meetingID, err)
	}

	m := mr.Meeting
	id := m.ID.String()
	if id == "" {
		id = meetingID
	}
	return Meeting{
		ID:                id,
		CandidateName:     m.Name,
		Title:             m.Role,
		JobDescription:    m.JobDesc,
		ExperienceLevel:   m.Experience,
		Skills:            splitSkills(m.Skills),
		ExpectedQuestions: parseQuestions(m.ExpectedQuestions),
	}, nil
}

// splitSkills parses the comma separated skills column.
func splitSkills(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseQuestions accepts a JSON array of strings or one question per line.
func parseQuestions(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if strings.HasPrefix(s, "[") {
		var qs []string
		if err := json.Unmarshal([]byte(s), &qs); err == nil {
			return compact(qs)
		}
	}
	return compact(strings.Split(s, "\n"))
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, q := range in {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}

// Static serves meetings from memory. Unknown ids get the fallback meeting.
type Static struct {
	mu       sync.RWMutex
	meetings map[string]Meeting
	fallback Meeting
}

// NewStatic creates a static fetcher.
func NewStatic(fallback Meeting) *Static {
	return &Static{meetings: make(map[string]Meeting), fallback: fallback}
}

// Put registers a meeting.
func (s *Static) Put(m Meeting) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = m
}

func (s *Static) Fetch(ctx context.Context, meetingID string) (Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if m, ok := s.meetings[meetingID]; ok {
		return m, nil
	}
	m := s.fallback
	m.ID = meetingID
	return m, nil
}

// DemoMeeting is the fallback used by the mock provider.
var DemoMeeting = Meeting{
	CandidateName:   "Alex Morgan",
	Title:           "Senior Frontend Developer",
	JobDescription:  "Build and maintain the customer facing web application.",
	ExperienceLevel: "Senior",
	Skills:          []string{"React", "JavaScript", "TypeScript", "CSS", "Testing", "Problem Solving"},
	ExpectedQuestions: []string{
		"Can you describe your experience with React hooks and when you'd use useCallback vs useMemo?",
		"How do you approach testing React components?",
		"Tell me about a challenging project you worked on recently.",
	},
}
