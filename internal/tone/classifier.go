package tone

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/unsaid-app/attune/internal/analyzer"
	"github.com/unsaid-app/attune/internal/rules"
	"github.com/unsaid-app/attune/internal/signal"
)

// ErrEmptyText is returned when classify is called with empty input.
var ErrEmptyText = errors.New("empty text")

// Structural cues derived from the linguistic analysis, kept small relative
// to the rule-table weights so they nudge rather than dominate.
const (
	terseSentenceTokens = 4
	terseCueWeight      = 0.3
	questionCueWeight   = 0.2
)

// Result is a single tone classification. Produced fresh per call, never
// persisted by this package.
type Result struct {
	Classification Bucket             `json:"tone"`
	Confidence     float64            `json:"confidence"`
	Scores         map[Bucket]float64 `json:"scores"`
	Evidence       []signal.Signal    `json:"evidence"`
	LowConfidence  bool               `json:"lowConfidence"`
	Fallback       bool               `json:"fallback"`
}

// Classifier combines extracted signals with contextual hints into a tone
// bucket. Stateless and deterministic for fixed rule tables.
type Classifier struct {
	cfg       *rules.Config
	analyzer  analyzer.Analyzer
	microTone map[string]rules.ToneWeights
}

func NewClassifier(cfg *rules.Config, an analyzer.Analyzer) *Classifier {
	microTone := make(map[string]rules.ToneWeights, len(cfg.Micro)+1)
	for _, p := range cfg.Micro {
		microTone[p.ID] = p.Tone
	}
	microTone[cfg.Contradict.ID] = cfg.Contradict.Tone
	return &Classifier{cfg: cfg, analyzer: an, microTone: microTone}
}

// Classify scores each bucket from the signal set, applies context
// amplification, and normalizes so the scores sum to 1. It never fails for
// non-empty text; the worst case is neutral with low confidence.
func (c *Classifier) Classify(ctx context.Context, text string, sigs []signal.Signal, sctx *signal.Context) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	raw := map[Bucket]float64{Alert: 0, Caution: 0, Clear: 0, Neutral: c.cfg.Tone.NeutralBaseline}

	for _, sig := range sigs {
		for bucket, w := range c.toneWeights(sig) {
			raw[Bucket(bucket)] += sig.Weight * w
		}
		for style, hint := range sig.AttachmentHints {
			for bucket, w := range c.cfg.Tone.StyleAffinity[style] {
				raw[Bucket(bucket)] += sig.Weight * hint * w
			}
		}
	}

	analysis, _ := c.analyzer.Analyze(ctx, text)
	if analysis != nil {
		c.applyStructuralCues(raw, text, analysis)
	}

	// Context amplification happens before normalization.
	if sctx != nil {
		if sctx.StressLevel == "high" {
			raw[Alert] *= c.cfg.Tone.StressAmplifier
			raw[Caution] *= c.cfg.Tone.StressAmplifier
		}
		if sctx.RelationshipPhase == "new" {
			raw[Alert] *= c.cfg.Tone.NewPhaseDampener
		}
	}

	scores := softmax(raw)
	chosen := c.pick(scores)

	res := &Result{
		Classification: chosen,
		Confidence:     scores[chosen],
		Scores:         scores,
		Evidence:       sigs,
		LowConfidence:  scores[chosen] < c.cfg.Tone.LowConfidence,
	}
	if analysis != nil {
		res.Fallback = analysis.Fallback
	}
	return res, nil
}

func (c *Classifier) toneWeights(sig signal.Signal) rules.ToneWeights {
	switch sig.Category {
	case signal.CategoryPunctuation:
		return c.cfg.Punctuation[strings.TrimPrefix(sig.ID, "punct.")].Tone
	case signal.CategoryHesitation:
		return c.cfg.Hesitation.Tone
	case signal.CategoryDiscourse:
		parts := strings.SplitN(sig.ID, ".", 3)
		if len(parts) < 2 {
			return nil
		}
		return c.cfg.Discourse[parts[1]].Tone
	case signal.CategoryLexical:
		return c.cfg.Lexical.Tone
	case signal.CategoryMicroExpression:
		return c.microTone[sig.ID]
	}
	return nil
}

// applyStructuralCues nudges caution for terse multi-sentence messages and
// question-dense messages. These cues come from the analyzer, so they improve
// when the advanced analyzer is available.
func (c *Classifier) applyStructuralCues(raw map[Bucket]float64, text string, a *analyzer.Analysis) {
	if len(a.Sentences) > 1 && len(a.Tokens) > 0 {
		avg := float64(len(a.Tokens)) / float64(len(a.Sentences))
		if avg <= terseSentenceTokens {
			raw[Caution] += terseCueWeight
		}
	}

	questions := 0
	for _, s := range a.Sentences {
		if s.End <= len(text) && strings.Contains(text[s.Start:s.End], "?") {
			questions++
		}
	}
	if len(a.Sentences) > 0 && questions*2 >= len(a.Sentences) && questions > 0 {
		raw[Caution] += questionCueWeight
	}
}

// pick selects the max-scoring bucket with the conservative tie-break:
// within epsilon, caution beats alert and neutral beats clear.
func (c *Classifier) pick(scores map[Bucket]float64) Bucket {
	best := Neutral
	for _, b := range Buckets {
		if scores[b] > scores[best] {
			best = b
		}
	}
	eps := c.cfg.Tone.TieEpsilon
	if best == Alert && scores[Alert]-scores[Caution] <= eps {
		return Caution
	}
	if best == Clear && scores[Clear]-scores[Neutral] <= eps {
		return Neutral
	}
	return best
}

func softmax(raw map[Bucket]float64) map[Bucket]float64 {
	var sum float64
	exp := make(map[Bucket]float64, len(raw))
	for _, b := range Buckets {
		e := math.Exp(raw[b])
		exp[b] = e
		sum += e
	}
	out := make(map[Bucket]float64, len(raw))
	for _, b := range Buckets {
		out[b] = exp[b] / sum
	}
	return out
}
