package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/unsaid-app/attune/internal/attachment"
	"github.com/unsaid-app/attune/internal/events"
	"github.com/unsaid-app/attune/internal/signal"
	"github.com/unsaid-app/attune/internal/suggest"
	"github.com/unsaid-app/attune/internal/tone"
)

type suggestionsRequest struct {
	Text                    string          `json:"text"`
	Context                 *signal.Context `json:"context,omitempty"`
	ToneOverride            string          `json:"toneOverride,omitempty"`
	AttachmentStyleOverride string          `json:"attachmentStyleOverride,omitempty"`
	Sensitivity             string          `json:"sensitivity,omitempty"`
}

type suggestionsResponse struct {
	QuickFixes []suggest.Suggestion `json:"quickFixes"`
	Advice     []suggest.Suggestion `json:"advice"`
	Evidence   []signal.Signal      `json:"evidence"`
	Tone       tone.Bucket          `json:"tone"`
	Fallback   bool                 `json:"fallback"`
}

// suggestions handles POST /suggestions: classify, estimate, generate.
func (s *Server) suggestions(w http.ResponseWriter, r *http.Request) {
	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &ValidationError{Fields: []string{"body"}})
		return
	}
	if err := s.validateText(req.Text, req.Context); err != nil {
		s.writeError(w, err)
		return
	}

	sens := suggest.SensitivityMedium
	if req.Sensitivity != "" {
		parsed, err := suggest.ParseSensitivity(req.Sensitivity)
		if err != nil {
			s.writeError(w, &ValidationError{Fields: []string{"sensitivity"}})
			return
		}
		sens = parsed
	}

	var toneOverride tone.Bucket
	if req.ToneOverride != "" {
		parsed, err := tone.Parse(req.ToneOverride)
		if err != nil {
			s.writeError(w, &ValidationError{Fields: []string{"toneOverride"}})
			return
		}
		toneOverride = parsed
	}

	var styleOverride attachment.Style
	if req.AttachmentStyleOverride != "" {
		parsed, err := attachment.Parse(req.AttachmentStyleOverride)
		if err != nil {
			s.writeError(w, &ValidationError{Fields: []string{"attachmentStyleOverride"}})
			return
		}
		styleOverride = parsed
	}

	sigs := s.deps.Extractor.Extract(req.Text, req.Context)
	result, err := s.deps.Classifier.Classify(r.Context(), req.Text, sigs, req.Context)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if toneOverride != "" {
		result.Classification = toneOverride
		result.Confidence = 1
		result.LowConfidence = false
	}

	est := s.attachmentEstimate(r, styleOverride)
	list := s.deps.Generator.Generate(result, est, sens)

	resp := suggestionsResponse{
		QuickFixes: []suggest.Suggestion{},
		Advice:     []suggest.Suggestion{},
		Evidence:   sigs,
		Tone:       result.Classification,
		Fallback:   result.Fallback,
	}
	for _, sg := range list {
		if sg.Type == suggest.Advice {
			resp.Advice = append(resp.Advice, sg)
		} else {
			resp.QuickFixes = append(resp.QuickFixes, sg)
		}
	}

	s.deps.Events.Publish(events.SubjectSuggestionsGenerated, events.SuggestionsGenerated{
		EventID:     uuid.NewString(),
		UserID:      r.Header.Get("X-User-ID"),
		Tone:        string(result.Classification),
		Count:       len(list),
		Sensitivity: string(sens),
		Timestamp:   time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, resp)
}

// attachmentEstimate resolves the estimate used for augmentation: an explicit
// override wins, then the caller's stored profile if a user id is present.
// Estimate lookup failures only cost personalization, never the response.
func (s *Server) attachmentEstimate(r *http.Request, override attachment.Style) *attachment.Estimate {
	if override != "" {
		return &attachment.Estimate{Primary: override, Confidence: 1}
	}
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		return nil
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	est, err := s.deps.Engine.Estimate(ctx, userID)
	if err != nil {
		s.deps.Logger.Warn("attachment estimate unavailable", "user_id", userID, "error", err)
		return nil
	}
	return est
}
