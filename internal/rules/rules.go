package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// ToneWeights maps tone bucket names to contribution factors for a rule.
type ToneWeights map[string]float64

// PunctuationRule scores a single punctuation pattern.
type PunctuationRule struct {
	MinRun int         `yaml:"min_run"`
	Weight float64     `yaml:"weight"`
	Tone   ToneWeights `yaml:"tone"`
}

// MarkerRule scores a set of literal token/phrase markers with a shared weight.
type MarkerRule struct {
	Weight  float64     `yaml:"weight"`
	Tone    ToneWeights `yaml:"tone"`
	Markers []string    `yaml:"markers"`
}

// PhraseRule is a micro-expression phrase with attachment-style hints.
type PhraseRule struct {
	ID     string             `yaml:"id"`
	Phrase string             `yaml:"phrase"`
	Weight float64            `yaml:"weight"`
	Hints  map[string]float64 `yaml:"hints"`
	Tone   ToneWeights        `yaml:"tone"`
}

// ToneRules holds the classifier tunables.
type ToneRules struct {
	NeutralBaseline  float64                `yaml:"neutral_baseline"`
	StressAmplifier  float64                `yaml:"stress_amplifier"`
	NewPhaseDampener float64                `yaml:"new_phase_dampener"`
	TieEpsilon       float64                `yaml:"tie_epsilon"`
	LowConfidence    float64                `yaml:"low_confidence"`
	StyleAffinity    map[string]ToneWeights `yaml:"style_affinity"`
}

// AttachmentRules holds the scoring-engine tunables.
type AttachmentRules struct {
	WindowDays         int     `yaml:"window_days"`
	DailyLimit         int     `yaml:"daily_limit"`
	DecayHalfLifeDays  float64 `yaml:"decay_half_life_days"`
	SecondaryMargin    float64 `yaml:"secondary_margin"`
	MaxFutureSkewHours int     `yaml:"max_future_skew_hours"`
}

// Template is a single suggestion template keyed by tone bucket or attachment style.
type Template struct {
	ID         string  `yaml:"id"`
	Tone       string  `yaml:"tone,omitempty"`
	Style      string  `yaml:"style,omitempty"`
	Pattern    string  `yaml:"pattern,omitempty"` // pursuing | withdrawing | any
	Type       string  `yaml:"type"`              // rewrite | quickFix | advice
	Priority   string  `yaml:"priority"`          // high | normal | praise
	Confidence float64 `yaml:"confidence"`
	Text       string  `yaml:"text"`
	Rationale  string  `yaml:"rationale"`
}

// SuggestionRules holds the generator templates and cap.
type SuggestionRules struct {
	Max       int        `yaml:"max"`
	Templates []Template `yaml:"templates"`
	Fallback  Template   `yaml:"fallback"`
}

// Limits bounds request inputs.
type Limits struct {
	MaxTextLen int `yaml:"max_text_len"`
}

// Config is the complete rule table. Loaded once at startup, immutable afterwards.
type Config struct {
	Limits      Limits                     `yaml:"limits"`
	Punctuation map[string]PunctuationRule `yaml:"punctuation"`
	Hesitation  MarkerRule                 `yaml:"hesitation"`
	Discourse   map[string]MarkerRule      `yaml:"discourse"`
	Lexical     MarkerRule                 `yaml:"lexical"`
	Micro       []PhraseRule               `yaml:"micro_expressions"`
	Contradict  PhraseRule                 `yaml:"self_contradiction"`
	Tone        ToneRules                  `yaml:"tone"`
	Attachment  AttachmentRules            `yaml:"attachment"`
	Suggestions SuggestionRules            `yaml:"suggestions"`
}

var validStyles = map[string]bool{
	"anxious":      true,
	"avoidant":     true,
	"secure":       true,
	"disorganized": true,
}

var validBuckets = map[string]bool{
	"alert":   true,
	"caution": true,
	"clear":   true,
	"neutral": true,
}

// Load parses and validates the rule tables. An empty path loads the embedded
// defaults. Any validation failure is returned as an error — the caller is
// expected to treat it as fatal and refuse to serve.
func Load(path string) (*Config, error) {
	raw := defaultRules
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
		raw = b
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate rules: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Limits.MaxTextLen <= 0 {
		return fmt.Errorf("limits.max_text_len must be positive")
	}

	for name, r := range c.Punctuation {
		if r.Weight <= 0 {
			return fmt.Errorf("punctuation.%s: weight must be positive", name)
		}
		if err := checkTone("punctuation."+name, r.Tone); err != nil {
			return err
		}
	}

	if err := checkMarkers("hesitation", c.Hesitation); err != nil {
		return err
	}
	for name, r := range c.Discourse {
		if err := checkMarkers("discourse."+name, r); err != nil {
			return err
		}
	}
	if err := checkMarkers("lexical", c.Lexical); err != nil {
		return err
	}

	seen := make(map[string]bool)
	for i, p := range c.Micro {
		if p.ID == "" || p.Phrase == "" {
			return fmt.Errorf("micro_expressions[%d]: id and phrase are required", i)
		}
		if seen[p.ID] {
			return fmt.Errorf("micro_expressions[%d]: duplicate id %q", i, p.ID)
		}
		seen[p.ID] = true
		if p.Weight <= 0 {
			return fmt.Errorf("micro_expressions[%d] %s: weight must be positive", i, p.ID)
		}
		if len(p.Hints) == 0 {
			return fmt.Errorf("micro_expressions[%d] %s: at least one attachment hint required", i, p.ID)
		}
		for style := range p.Hints {
			if !validStyles[style] {
				return fmt.Errorf("micro_expressions[%d] %s: unknown attachment style %q", i, p.ID, style)
			}
		}
		if err := checkTone("micro_expressions."+p.ID, p.Tone); err != nil {
			return err
		}
	}

	if c.Contradict.Weight <= 0 {
		return fmt.Errorf("self_contradiction: weight must be positive")
	}
	for style := range c.Contradict.Hints {
		if !validStyles[style] {
			return fmt.Errorf("self_contradiction: unknown attachment style %q", style)
		}
	}

	t := c.Tone
	if t.NeutralBaseline <= 0 {
		return fmt.Errorf("tone.neutral_baseline must be positive")
	}
	if t.StressAmplifier <= 1 {
		return fmt.Errorf("tone.stress_amplifier must be > 1")
	}
	if t.NewPhaseDampener <= 0 || t.NewPhaseDampener >= 1 {
		return fmt.Errorf("tone.new_phase_dampener must be in (0,1)")
	}
	if t.TieEpsilon < 0 || t.TieEpsilon > 0.5 {
		return fmt.Errorf("tone.tie_epsilon must be in [0,0.5]")
	}
	if t.LowConfidence <= 0 || t.LowConfidence >= 1 {
		return fmt.Errorf("tone.low_confidence must be in (0,1)")
	}
	for style, tw := range t.StyleAffinity {
		if !validStyles[style] {
			return fmt.Errorf("tone.style_affinity: unknown attachment style %q", style)
		}
		if err := checkTone("tone.style_affinity."+style, tw); err != nil {
			return err
		}
	}

	a := c.Attachment
	if a.WindowDays <= 0 {
		return fmt.Errorf("attachment.window_days must be positive")
	}
	if a.DailyLimit <= 0 {
		return fmt.Errorf("attachment.daily_limit must be positive")
	}
	if a.DecayHalfLifeDays <= 0 {
		return fmt.Errorf("attachment.decay_half_life_days must be positive")
	}
	if a.SecondaryMargin <= 0 || a.SecondaryMargin >= 1 {
		return fmt.Errorf("attachment.secondary_margin must be in (0,1)")
	}
	if a.MaxFutureSkewHours <= 0 {
		return fmt.Errorf("attachment.max_future_skew_hours must be positive")
	}

	s := c.Suggestions
	if s.Max <= 0 {
		return fmt.Errorf("suggestions.max must be positive")
	}
	perBucket := make(map[string]int)
	ids := make(map[string]bool)
	for i, tpl := range s.Templates {
		if err := checkTemplate(fmt.Sprintf("suggestions.templates[%d]", i), tpl); err != nil {
			return err
		}
		if ids[tpl.ID] {
			return fmt.Errorf("suggestions.templates[%d]: duplicate id %q", i, tpl.ID)
		}
		ids[tpl.ID] = true
		if tpl.Tone != "" {
			perBucket[tpl.Tone]++
		}
	}
	for bucket := range validBuckets {
		if perBucket[bucket] == 0 {
			return fmt.Errorf("suggestions: no template for tone bucket %q", bucket)
		}
	}
	if s.Fallback.Text == "" {
		return fmt.Errorf("suggestions.fallback: text is required")
	}

	return nil
}

func checkTemplate(where string, tpl Template) error {
	if tpl.ID == "" || tpl.Text == "" {
		return fmt.Errorf("%s: id and text are required", where)
	}
	if tpl.Tone == "" && tpl.Style == "" {
		return fmt.Errorf("%s: either tone or style key is required", where)
	}
	if tpl.Tone != "" && !validBuckets[tpl.Tone] {
		return fmt.Errorf("%s: unknown tone bucket %q", where, tpl.Tone)
	}
	if tpl.Style != "" && !validStyles[tpl.Style] {
		return fmt.Errorf("%s: unknown attachment style %q", where, tpl.Style)
	}
	switch tpl.Type {
	case "rewrite", "quickFix", "advice":
	default:
		return fmt.Errorf("%s: unknown suggestion type %q", where, tpl.Type)
	}
	switch tpl.Priority {
	case "high", "normal", "praise":
	default:
		return fmt.Errorf("%s: unknown priority %q", where, tpl.Priority)
	}
	if tpl.Confidence <= 0 || tpl.Confidence > 1 {
		return fmt.Errorf("%s: confidence must be in (0,1]", where)
	}
	return nil
}

func checkMarkers(where string, r MarkerRule) error {
	if r.Weight <= 0 {
		return fmt.Errorf("%s: weight must be positive", where)
	}
	if len(r.Markers) == 0 {
		return fmt.Errorf("%s: at least one marker required", where)
	}
	return checkTone(where, r.Tone)
}

func checkTone(where string, tw ToneWeights) error {
	for bucket, w := range tw {
		if !validBuckets[bucket] {
			return fmt.Errorf("%s: unknown tone bucket %q", where, bucket)
		}
		if w <= 0 {
			return fmt.Errorf("%s: tone weight for %q must be positive", where, bucket)
		}
	}
	return nil
}
