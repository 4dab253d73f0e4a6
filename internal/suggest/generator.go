// Package suggest turns a tone classification and an attachment estimate
// into a small ranked list of rewrite suggestions and coaching advice.
package suggest

import (
	"fmt"
	"sort"

	"github.com/unsaid-app/attune/internal/attachment"
	"github.com/unsaid-app/attune/internal/rules"
	"github.com/unsaid-app/attune/internal/tone"
)

// Type classifies how a suggestion is meant to be used.
type Type string

const (
	Rewrite  Type = "rewrite"
	QuickFix Type = "quickFix"
	Advice   Type = "advice"
)

// Sensitivity controls how much coaching the user has asked for.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityMedium Sensitivity = "medium"
	SensitivityHigh   Sensitivity = "high"
)

// ParseSensitivity validates a sensitivity value from external input.
func ParseSensitivity(s string) (Sensitivity, error) {
	switch Sensitivity(s) {
	case SensitivityLow, SensitivityMedium, SensitivityHigh:
		return Sensitivity(s), nil
	}
	return "", fmt.Errorf("unknown sensitivity %q", s)
}

// Suggestion is a single ranked coaching item. Produced fresh per call.
type Suggestion struct {
	Text        string      `json:"text"`
	Type        Type        `json:"type"`
	Confidence  float64     `json:"confidence"`
	Rationale   string      `json:"rationale"`
	BasedOnTone tone.Bucket `json:"basedOnTone"`

	priority string
}

// Generator maps tone buckets and attachment estimates onto the loaded
// suggestion templates. Stateless; safe for concurrent use.
type Generator struct {
	cfg rules.SuggestionRules
}

func NewGenerator(cfg rules.SuggestionRules) *Generator {
	return &Generator{cfg: cfg}
}

// Generate builds the ranked suggestion list. Tone-keyed templates come
// first, then attachment-keyed ones; a low-confidence classification widens
// the set with the neutral templates. The result is filtered by sensitivity,
// sorted by confidence, capped, and never empty.
func (g *Generator) Generate(tr *tone.Result, est *attachment.Estimate, sens Sensitivity) []Suggestion {
	var out []Suggestion

	for _, tpl := range g.cfg.Templates {
		if tpl.Tone == string(tr.Classification) {
			out = append(out, g.suggestion(tpl, tr.Classification))
		}
	}
	if tr.LowConfidence && tr.Classification != tone.Neutral {
		for _, tpl := range g.cfg.Templates {
			if tpl.Tone == string(tone.Neutral) {
				out = append(out, g.suggestion(tpl, tr.Classification))
			}
		}
	}

	if est != nil && est.Primary != "" {
		pattern := detectPattern(tr)
		for _, tpl := range g.cfg.Templates {
			if tpl.Style != string(est.Primary) {
				continue
			}
			if tpl.Pattern != "any" && tpl.Pattern != pattern {
				continue
			}
			out = append(out, g.suggestion(tpl, tr.Classification))
		}
	}

	out = filter(out, sens)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	if len(out) > g.cfg.Max {
		out = out[:g.cfg.Max]
	}

	// A user-facing response always carries at least one suggestion.
	if len(out) == 0 {
		out = append(out, g.suggestion(g.cfg.Fallback, tr.Classification))
	}
	return out
}

func (g *Generator) suggestion(tpl rules.Template, basedOn tone.Bucket) Suggestion {
	return Suggestion{
		Text:        tpl.Text,
		Type:        Type(tpl.Type),
		Confidence:  tpl.Confidence,
		Rationale:   tpl.Rationale,
		BasedOnTone: basedOn,
		priority:    tpl.Priority,
	}
}

// detectPattern reads the evidence signals for pursuing vs withdrawing
// phrasing, the cue the attachment augmentation keys on.
func detectPattern(tr *tone.Result) string {
	var pursuing, withdrawing bool
	for _, sig := range tr.Evidence {
		if sig.AttachmentHints[string(attachment.Anxious)] > 0 {
			pursuing = true
		}
		if sig.AttachmentHints[string(attachment.Avoidant)] > 0 {
			withdrawing = true
		}
	}
	switch {
	case pursuing && !withdrawing:
		return "pursuing"
	case withdrawing && !pursuing:
		return "withdrawing"
	default:
		return "mixed"
	}
}

func filter(in []Suggestion, sens Sensitivity) []Suggestion {
	var out []Suggestion
	for _, s := range in {
		switch sens {
		case SensitivityLow:
			if s.priority == "high" {
				out = append(out, s)
			}
		case SensitivityMedium:
			if s.priority != "praise" {
				out = append(out, s)
			}
		default:
			out = append(out, s)
		}
	}
	return out
}
