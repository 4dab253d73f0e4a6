package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/unsaid-app/attune/internal/attachment"
	"github.com/unsaid-app/attune/internal/events"
	"github.com/unsaid-app/attune/internal/signal"
)

type observeRequest struct {
	Text string       `json:"text"`
	Meta *observeMeta `json:"meta,omitempty"`
}

type observeMeta struct {
	Timestamp *time.Time      `json:"timestamp,omitempty"`
	Context   *signal.Context `json:"context,omitempty"`
}

type estimateResponse struct {
	Estimate *attachment.Estimate `json:"estimate"`
}

// observe handles POST /communicator/observe. Once the learning window is
// complete the profile is frozen and the call just returns the estimate.
func (s *Server) observe(w http.ResponseWriter, r *http.Request) {
	var req observeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, &ValidationError{Fields: []string{"body"}})
		return
	}
	var sctx *signal.Context
	if req.Meta != nil {
		sctx = req.Meta.Context
	}
	if err := s.validateText(req.Text, sctx); err != nil {
		s.writeError(w, err)
		return
	}

	ts := time.Now().UTC()
	if req.Meta != nil && req.Meta.Timestamp != nil {
		ts = *req.Meta.Timestamp
	}

	userID := userIDFrom(r.Context())
	sigs := s.deps.Extractor.Extract(req.Text, sctx)

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()
	est, err := s.deps.Engine.Observe(ctx, userID, sigs, ts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.deps.Events.Publish(events.SubjectProfileObserved, events.ProfileObserved{
		EventID:        uuid.NewString(),
		UserID:         userID,
		DaysObserved:   est.DaysObserved,
		WindowComplete: est.WindowComplete,
		Timestamp:      time.Now().UTC(),
	})

	writeJSON(w, http.StatusOK, estimateResponse{Estimate: est})
}

type profileResponse struct {
	Estimate       *attachment.Estimate         `json:"estimate"`
	RawScores      map[attachment.Style]float64 `json:"rawScores"`
	DaysObserved   int                          `json:"daysObserved"`
	WindowComplete bool                         `json:"windowComplete"`
}

// profile handles GET /communicator/profile.
func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	snap, err := s.deps.Engine.Export(ctx, userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}

	raw := make(map[attachment.Style]float64, len(attachment.Styles))
	for _, style := range attachment.Styles {
		raw[style] = 0
	}
	for _, day := range snap.Days {
		for style, v := range day.Scores {
			raw[style] += v
		}
	}

	writeJSON(w, http.StatusOK, profileResponse{
		Estimate:       snap.Estimate,
		RawScores:      raw,
		DaysObserved:   snap.DaysObserved,
		WindowComplete: snap.WindowComplete,
	})
}

// reset handles POST /communicator/reset. Idempotent.
func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	est, err := s.deps.Engine.Reset(ctx, userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimateResponse{Estimate: est})
}

// export handles GET /communicator/export: the privacy-safe snapshot, no raw
// text fields anywhere.
func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	snap, err := s.deps.Engine.Export(ctx, userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}
