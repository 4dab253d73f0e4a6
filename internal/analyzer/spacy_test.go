package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSpacyAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-internal-key"); got != "sekrit" {
			t.Errorf("expected internal key header, got %q", got)
		}

		var req processRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if !req.WantTokens || !req.WantSents {
			t.Error("expected tokens and sentences to be requested")
		}

		_ = json.NewEncoder(w).Encode(processResponse{
			Tokens: []Token{{Text: "hi", Lemma: "hi", POS: "INTJ", Index: 0}},
			Sents:  []Sentence{{Start: 0, End: 2}},
		})
	}))
	defer srv.Close()

	s := NewSpacy(srv.URL, "sekrit", time.Second)
	a, err := s.Analyze(context.Background(), "hi")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(a.Tokens) != 1 || a.Tokens[0].POS != "INTJ" {
		t.Errorf("unexpected tokens %v", a.Tokens)
	}
	if len(a.Sentences) != 1 {
		t.Errorf("unexpected sentences %v", a.Sentences)
	}
}

func TestSpacyErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	s := NewSpacy(srv.URL, "", time.Second)
	if _, err := s.Analyze(context.Background(), "hi"); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
