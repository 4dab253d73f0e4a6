package tone

import (
	"context"
	"math"
	"reflect"
	"testing"

	"github.com/unsaid-app/attune/internal/analyzer"
	"github.com/unsaid-app/attune/internal/rules"
	sig "github.com/unsaid-app/attune/internal/signal"
)

func newFixture(t *testing.T) (*sig.Extractor, *Classifier) {
	t.Helper()
	cfg, err := rules.Load("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	ext, err := sig.New(cfg)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return ext, NewClassifier(cfg, analyzer.NewBasic())
}

func classify(t *testing.T, ext *sig.Extractor, c *Classifier, text string, sctx *sig.Context) *Result {
	t.Helper()
	res, err := c.Classify(context.Background(), text, ext.Extract(text, sctx), sctx)
	if err != nil {
		t.Fatalf("classify %q: %v", text, err)
	}
	return res
}

func TestClassifyEmptyTextRejected(t *testing.T) {
	_, c := newFixture(t)
	for _, text := range []string{"", "   ", "\n\t"} {
		if _, err := c.Classify(context.Background(), text, nil, nil); err == nil {
			t.Errorf("expected error for %q", text)
		}
	}
}

func TestClassifyScoresSumToOne(t *testing.T) {
	ext, c := newFixture(t)

	texts := []string{
		"ok",
		"I HATE this!! you never listen!!",
		"it's fine. really. moving on.",
		"let's work through this together because i appreciate you",
		"um i guess maybe... are you mad at me??",
	}
	for _, text := range texts {
		res := classify(t, ext, c, text, nil)

		var sum float64
		for _, b := range Buckets {
			score := res.Scores[b]
			if score < 0 || score > 1 {
				t.Errorf("%q: score for %s out of bounds: %f", text, b, score)
			}
			sum += score
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("%q: scores sum to %f, want 1", text, sum)
		}
		if res.Confidence < 0 || res.Confidence > 1 {
			t.Errorf("%q: confidence out of bounds: %f", text, res.Confidence)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	ext, c := newFixture(t)
	text := "I HATE this!! but i guess it's fine... are you mad at me??"

	first := classify(t, ext, c, text, nil)
	for i := 0; i < 10; i++ {
		got := classify(t, ext, c, text, nil)
		if got.Classification != first.Classification {
			t.Fatalf("classification changed: %s vs %s", got.Classification, first.Classification)
		}
		if !reflect.DeepEqual(got.Scores, first.Scores) {
			t.Fatalf("scores changed between runs")
		}
	}
}

func TestClassifyHostileText(t *testing.T) {
	ext, c := newFixture(t)
	res := classify(t, ext, c, "I HATE this, you NEVER LISTEN!! this is ridiculous!!", nil)

	if res.Classification != Alert {
		t.Errorf("expected alert, got %s (scores %v)", res.Classification, res.Scores)
	}
	if len(res.Evidence) == 0 {
		t.Error("expected supporting evidence")
	}
}

// Terse withdrawal with no hostile lexical markers must not read as alert.
func TestClassifyTerseWithdrawalNotAlert(t *testing.T) {
	ext, c := newFixture(t)
	res := classify(t, ext, c, "It's fine. Really. Let's just move on.", nil)

	if res.Classification == Alert {
		t.Errorf("expected neutral or caution, got alert (scores %v)", res.Scores)
	}
	if res.Classification != Neutral && res.Classification != Caution {
		t.Errorf("expected neutral or caution, got %s", res.Classification)
	}
}

func TestClassifyPlainTextIsNeutral(t *testing.T) {
	ext, c := newFixture(t)
	res := classify(t, ext, c, "see you at seven", nil)

	if res.Classification != Neutral {
		t.Errorf("expected neutral, got %s (scores %v)", res.Classification, res.Scores)
	}
	if len(res.Evidence) != 0 {
		t.Errorf("expected no evidence, got %v", res.Evidence)
	}
}

func TestClassifyStressAmplification(t *testing.T) {
	ext, c := newFixture(t)
	text := "you never listen!! this is ridiculous"

	calm := classify(t, ext, c, text, nil)
	stressed := classify(t, ext, c, text, &sig.Context{StressLevel: "high"})

	if stressed.Scores[Alert] <= calm.Scores[Alert] {
		t.Errorf("high stress should amplify alert: %f vs %f", stressed.Scores[Alert], calm.Scores[Alert])
	}
}

func TestClassifyNewRelationshipDampensAlert(t *testing.T) {
	ext, c := newFixture(t)
	text := "you never listen!! this is ridiculous"

	base := classify(t, ext, c, text, nil)
	fresh := classify(t, ext, c, text, &sig.Context{RelationshipPhase: "new"})

	if fresh.Scores[Alert] >= base.Scores[Alert] {
		t.Errorf("new phase should dampen alert: %f vs %f", fresh.Scores[Alert], base.Scores[Alert])
	}
}

func TestParseBucket(t *testing.T) {
	for _, b := range Buckets {
		got, err := Parse(string(b))
		if err != nil || got != b {
			t.Errorf("Parse(%q) = %v, %v", b, got, err)
		}
	}
	if _, err := Parse("angry"); err == nil {
		t.Error("expected error for unknown bucket")
	}
}
