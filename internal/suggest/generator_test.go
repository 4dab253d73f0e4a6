package suggest

import (
	"testing"

	"github.com/unsaid-app/attune/internal/attachment"
	"github.com/unsaid-app/attune/internal/rules"
	"github.com/unsaid-app/attune/internal/signal"
	"github.com/unsaid-app/attune/internal/tone"
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	cfg, err := rules.Load("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	return NewGenerator(cfg.Suggestions)
}

func toneResult(b tone.Bucket, confidence float64, evidence ...signal.Signal) *tone.Result {
	return &tone.Result{
		Classification: b,
		Confidence:     confidence,
		Evidence:       evidence,
		LowConfidence:  confidence < 0.3,
	}
}

func anxiousEvidence() signal.Signal {
	return signal.Signal{
		ID:              "micro.mad_at_me",
		Category:        signal.CategoryMicroExpression,
		Weight:          0.9,
		AttachmentHints: map[string]float64{"anxious": 1.0},
	}
}

func withdrawingEvidence() signal.Signal {
	return signal.Signal{
		ID:              "micro.its_fine",
		Category:        signal.CategoryMicroExpression,
		Weight:          0.7,
		AttachmentHints: map[string]float64{"avoidant": 1.0},
	}
}

func TestGenerateAlertSoftening(t *testing.T) {
	g := newGenerator(t)

	out := g.Generate(toneResult(tone.Alert, 0.9), nil, SensitivityHigh)
	if len(out) == 0 {
		t.Fatal("expected suggestions for alert tone")
	}
	if out[0].Type != Rewrite {
		t.Errorf("expected the top alert suggestion to be a rewrite, got %s", out[0].Type)
	}
	for _, s := range out {
		if s.BasedOnTone != tone.Alert {
			t.Errorf("suggestion %q based on %s, want alert", s.Text, s.BasedOnTone)
		}
	}
}

func TestGenerateOrderedByConfidence(t *testing.T) {
	g := newGenerator(t)

	out := g.Generate(toneResult(tone.Caution, 0.8), nil, SensitivityHigh)
	for i := 1; i < len(out); i++ {
		if out[i].Confidence > out[i-1].Confidence {
			t.Errorf("suggestions out of order at %d: %f > %f", i, out[i].Confidence, out[i-1].Confidence)
		}
	}
}

func TestGenerateCap(t *testing.T) {
	g := newGenerator(t)

	est := &attachment.Estimate{Primary: attachment.Anxious, Confidence: 0.8}
	out := g.Generate(toneResult(tone.Alert, 0.9, anxiousEvidence()), est, SensitivityHigh)
	if len(out) > 3 {
		t.Errorf("expected at most 3 suggestions, got %d", len(out))
	}
}

// Low sensitivity with a clear tone yields only the generic fallback — never
// congratulatory filler, never an empty list.
func TestGenerateLowSensitivityClearTone(t *testing.T) {
	g := newGenerator(t)

	out := g.Generate(toneResult(tone.Clear, 0.8), nil, SensitivityLow)
	if len(out) != 1 {
		t.Fatalf("expected exactly the fallback suggestion, got %d", len(out))
	}
	if out[0].priority == "praise" {
		t.Error("low sensitivity must not include praise suggestions")
	}
}

func TestGenerateMediumDropsPraise(t *testing.T) {
	g := newGenerator(t)

	out := g.Generate(toneResult(tone.Clear, 0.8), nil, SensitivityMedium)
	for _, s := range out {
		if s.priority == "praise" {
			t.Errorf("medium sensitivity must drop praise suggestions, got %q", s.Text)
		}
	}
	if len(out) == 0 {
		t.Error("expected at least one suggestion")
	}
}

func TestGenerateAnxiousPursuingAddsDeescalation(t *testing.T) {
	g := newGenerator(t)

	est := &attachment.Estimate{Primary: attachment.Anxious, Confidence: 0.7}
	out := g.Generate(toneResult(tone.Caution, 0.8, anxiousEvidence()), est, SensitivityHigh)

	found := false
	for _, s := range out {
		if s.Text == "It sounds like the silence is the hard part. Try naming that once, then give the reply some room." {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the de-escalation suggestion for anxious+pursuing, got %+v", out)
	}
}

func TestGenerateAvoidantWithoutWithdrawalPattern(t *testing.T) {
	g := newGenerator(t)

	// Avoidant profile but pursuing evidence: the invitation template
	// requires withdrawing phrasing, so it must not fire.
	est := &attachment.Estimate{Primary: attachment.Avoidant, Confidence: 0.7}
	out := g.Generate(toneResult(tone.Caution, 0.8, anxiousEvidence()), est, SensitivityHigh)

	for _, s := range out {
		if s.Text == "\"It's fine\" can close the door. If part of you wants to be understood, try one sentence about what actually bothered you." {
			t.Error("invitation suggestion fired without withdrawing evidence")
		}
	}
}

func TestGenerateDisorganizedFocus(t *testing.T) {
	g := newGenerator(t)

	est := &attachment.Estimate{Primary: attachment.Disorganized, Confidence: 0.6}
	out := g.Generate(toneResult(tone.Caution, 0.8, anxiousEvidence(), withdrawingEvidence()), est, SensitivityHigh)

	found := false
	for _, s := range out {
		if s.Text == "This message pulls in two directions. Pick the one point you most want heard and lead with it." {
			found = true
		}
	}
	if !found {
		t.Errorf("expected the focus suggestion for a disorganized profile, got %+v", out)
	}
}

func TestGenerateLowConfidenceWidens(t *testing.T) {
	g := newGenerator(t)

	narrow := g.Generate(toneResult(tone.Clear, 0.8), nil, SensitivityHigh)
	widened := g.Generate(toneResult(tone.Clear, 0.2), nil, SensitivityHigh)

	if len(widened) <= len(narrow) && len(narrow) < 3 {
		t.Errorf("low confidence should widen the set: %d vs %d", len(widened), len(narrow))
	}
}

func TestGenerateNeverEmpty(t *testing.T) {
	g := newGenerator(t)

	for _, sens := range []Sensitivity{SensitivityLow, SensitivityMedium, SensitivityHigh} {
		for _, b := range tone.Buckets {
			out := g.Generate(toneResult(b, 0.5), nil, sens)
			if len(out) == 0 {
				t.Errorf("empty suggestion list for %s/%s", b, sens)
			}
		}
	}
}

func TestParseSensitivity(t *testing.T) {
	for _, s := range []Sensitivity{SensitivityLow, SensitivityMedium, SensitivityHigh} {
		got, err := ParseSensitivity(string(s))
		if err != nil || got != s {
			t.Errorf("ParseSensitivity(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseSensitivity("extreme"); err == nil {
		t.Error("expected error for unknown sensitivity")
	}
}
