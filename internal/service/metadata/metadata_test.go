package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/meeting/17" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{
			"status": 200,
			"meeting": {
				"id": 17,
				"name": "Jordan",
				"role": "Platform Engineer",
				"job_desc": "Own the deploy pipeline",
				"experience": "Mid",
				"skills": "Go, Kubernetes , ,Terraform",
				"expected_questions": "[\"How do you roll back?\", \" \"]"
			},
			"model_config": {"from_attributes": true}
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", 0)
	m, err := c.Fetch(context.Background(), "17")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Meeting{
		ID:                "17",
		CandidateName:     "Jordan",
		Title:             "Platform Engineer",
		JobDescription:    "Own the deploy pipeline",
		ExperienceLevel:   "Mid",
		Skills:            []string{"Go", "Kubernetes", "Terraform"},
		ExpectedQuestions: []string{"How do you roll back?"},
	}
	if !reflect.DeepEqual(m, want) {
		t.Errorf("unexpected meeting:\n got %+v\nwant %+v", m, want)
	}

	_, err = c.Fetch(context.Background(), "99")
	if !errors.Is(err, ErrMeetingNotFound) {
		t.Errorf("expected ErrMeetingNotFound, got %v", err)
	}
}

func TestClient_FetchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "db down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, 0).Fetch(context.Background(), "1"); err == nil {
		t.Error("expected error on 500")
	}
}

func TestParseQuestions(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"json", `["a", "b"]`, []string{"a", "b"}},
		{"lines", "first?\n\n second? \n", []string{"first?", "second?"}},
		{"broken json", `[not json`, []string{"[not json"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseQuestions(tt.in)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseQuestions(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStatic_Fetch(t *testing.T) {
	s := NewStatic(DemoMeeting)
	s.Put(Meeting{ID: "a", Title: "Data Engineer"})

	m, _ := s.Fetch(context.Background(), "a")
	if m.Title != "Data Engineer" {
		t.Errorf("expected registered meeting, got %+v", m)
	}

	m, _ = s.Fetch(context.Background(), "other")
	if m.ID != "other" || m.Title != DemoMeeting.Title {
		t.Errorf("expected fallback meeting with id 'other', got %+v", m)
	}
}
