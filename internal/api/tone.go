package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unsaid-app/attune/internal/events"
	"github.com/unsaid-app/attune/internal/signal"
)

type toneRequest struct {
	Text    string          `json:"text"`
	Context *signal.Context `json:"context,omitempty"`
}

// classifyTone handles POST /tone.
func (s *Server) classifyTone(w http.ResponseWriter, r *http.Request) {
	var req toneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &ValidationError{Fields: []string{"body"}})
		return
	}
	if err := s.validateText(req.Text, req.Context); err != nil {
		s.writeError(w, err)
		return
	}

	sigs := s.deps.Extractor.Extract(req.Text, req.Context)
	result, err := s.deps.Classifier.Classify(r.Context(), req.Text, sigs, req.Context)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.deps.Events.Publish(events.SubjectToneClassified, events.ToneClassified{
		EventID:    uuid.NewString(),
		UserID:     r.Header.Get("X-User-ID"),
		Tone:       string(result.Classification),
		Confidence: result.Confidence,
		Signals:    len(result.Evidence),
		Fallback:   result.Fallback,
		Timestamp:  time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, result)
}

// validateText enforces the shared text and context constraints.
func (s *Server) validateText(text string, sctx *signal.Context) error {
	var fields []string
	if strings.TrimSpace(text) == "" {
		fields = append(fields, "text")
	} else if len(text) > s.deps.Rules.Limits.MaxTextLen {
		fields = append(fields, "text")
	}
	if sctx != nil {
		switch sctx.StressLevel {
		case "", "low", "high":
		default:
			fields = append(fields, "context.stressLevel")
		}
		switch sctx.RelationshipPhase {
		case "", "new", "established":
		default:
			fields = append(fields, "context.relationshipPhase")
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
