package signal

import (
	"reflect"
	"testing"

	"github.com/unsaid-app/attune/internal/rules"
)

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	cfg, err := rules.Load("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new extractor: %v", err)
	}
	return e
}

func ids(sigs []Signal) []string {
	out := make([]string, len(sigs))
	for i, s := range sigs {
		out[i] = s.ID
	}
	return out
}

func count(sigs []Signal, id string) int {
	n := 0
	for _, s := range sigs {
		if s.ID == id {
			n++
		}
	}
	return n
}

func TestExtractPunctuation(t *testing.T) {
	e := newExtractor(t)

	tests := []struct {
		name string
		text string
		want string
	}{
		{"repeated exclamation", "stop it!!", "punct.exclaim"},
		{"repeated question", "where are you??", "punct.question"},
		{"mixed run counts as exclaim", "seriously?!", "punct.exclaim"},
		{"ellipsis", "i just... don't know", "punct.ellipsis"},
		{"caps run", "this is FINE apparently", "punct.caps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigs := e.Extract(tt.text, nil)
			if count(sigs, tt.want) == 0 {
				t.Errorf("Extract(%q) missing %s, got %v", tt.text, tt.want, ids(sigs))
			}
		})
	}
}

func TestExtractSingleBangIsNotASignal(t *testing.T) {
	e := newExtractor(t)
	sigs := e.Extract("sounds great!", nil)
	if count(sigs, "punct.exclaim") != 0 {
		t.Errorf("single ! should not fire, got %v", ids(sigs))
	}
}

func TestExtractHesitationAndDiscourse(t *testing.T) {
	e := newExtractor(t)
	sigs := e.Extract("i guess we could, but maybe not because of work", nil)

	if count(sigs, "hesitation.i_guess") == 0 {
		t.Errorf("missing hesitation.i_guess in %v", ids(sigs))
	}
	if count(sigs, "hesitation.maybe") == 0 {
		t.Errorf("missing hesitation.maybe in %v", ids(sigs))
	}
	if count(sigs, "discourse.contrastive.but") == 0 {
		t.Errorf("missing discourse.contrastive.but in %v", ids(sigs))
	}
	if count(sigs, "discourse.causal.because") == 0 {
		t.Errorf("missing discourse.causal.because in %v", ids(sigs))
	}
}

func TestExtractMicroExpressions(t *testing.T) {
	e := newExtractor(t)

	sigs := e.Extract("Are you mad at me? Did I do something?", nil)
	anxious := 0
	for _, s := range sigs {
		if s.AttachmentHints["anxious"] > 0 {
			anxious++
		}
	}
	if anxious < 2 {
		t.Errorf("expected at least 2 anxious-hinted signals, got %d (%v)", anxious, ids(sigs))
	}
}

func TestExtractDuplicatesEachCount(t *testing.T) {
	e := newExtractor(t)
	sigs := e.Extract("it's fine. honestly it's fine.", nil)
	if got := count(sigs, "micro.its_fine"); got != 2 {
		t.Errorf("expected 2 micro.its_fine signals, got %d", got)
	}
}

func TestExtractSelfContradiction(t *testing.T) {
	e := newExtractor(t)

	// Pursuit and withdrawal in the same message.
	sigs := e.Extract("Are you mad at me? Whatever, forget it.", nil)
	if count(sigs, "micro.self_contradiction") != 1 {
		t.Errorf("expected self-contradiction signal, got %v", ids(sigs))
	}

	// Withdrawal alone does not contradict.
	sigs = e.Extract("Whatever, forget it.", nil)
	if count(sigs, "micro.self_contradiction") != 0 {
		t.Errorf("unexpected self-contradiction signal in %v", ids(sigs))
	}
}

func TestExtractDeterministicOrder(t *testing.T) {
	e := newExtractor(t)
	text := "I guess you never listen!! But it's fine... moving on. Are you mad at me??"

	first := e.Extract(text, nil)
	for i := 0; i < 10; i++ {
		if got := e.Extract(text, nil); !reflect.DeepEqual(ids(got), ids(first)) {
			t.Fatalf("extraction order changed between runs:\n%v\n%v", ids(first), ids(got))
		}
	}
}

func TestExtractSpans(t *testing.T) {
	e := newExtractor(t)
	text := "are you mad at me"
	sigs := e.Extract(text, nil)

	for _, s := range sigs {
		if s.Span == nil {
			continue
		}
		if s.Span.Start < 0 || s.Span.End > len(text) || s.Span.Start >= s.Span.End {
			t.Errorf("signal %s has invalid span %+v", s.ID, s.Span)
		}
	}
}
