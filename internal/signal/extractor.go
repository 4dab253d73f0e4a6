package signal

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/unsaid-app/attune/internal/rules"
)

var (
	punctRunRe = regexp.MustCompile(`[!?]{2,}`)
	ellipsisRe = regexp.MustCompile(`\.{3,}|…`)
	capsRunRe  = regexp.MustCompile(`\b[A-Z]{2,}\b`)
)

// Extractor scans raw text for weighted signals according to the loaded rule
// tables. It is pure: the same text and context always produce the same
// signals, in extraction order, duplicates included.
type Extractor struct {
	cfg            *rules.Config
	hesitationRe   *regexp.Regexp
	discourseRe    map[string]*regexp.Regexp
	discourseNames []string
	lexicalRe      *regexp.Regexp
}

// New compiles the marker tables into matchers. Returns an error if any table
// cannot be compiled; callers treat that as fatal at startup.
func New(cfg *rules.Config) (*Extractor, error) {
	e := &Extractor{cfg: cfg, discourseRe: make(map[string]*regexp.Regexp)}

	var err error
	if e.hesitationRe, err = markerPattern(cfg.Hesitation.Markers); err != nil {
		return nil, fmt.Errorf("compile hesitation markers: %w", err)
	}
	for name, r := range cfg.Discourse {
		re, err := markerPattern(r.Markers)
		if err != nil {
			return nil, fmt.Errorf("compile discourse markers %s: %w", name, err)
		}
		e.discourseRe[name] = re
		e.discourseNames = append(e.discourseNames, name)
	}
	sort.Strings(e.discourseNames)
	if e.lexicalRe, err = markerPattern(cfg.Lexical.Markers); err != nil {
		return nil, fmt.Errorf("compile lexical markers: %w", err)
	}
	return e, nil
}

func markerPattern(markers []string) (*regexp.Regexp, error) {
	quoted := make([]string, len(markers))
	for i, m := range markers {
		quoted[i] = regexp.QuoteMeta(strings.ToLower(m))
	}
	return regexp.Compile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Extract produces the signal list for a text. The context is accepted for
// parity with the classifier contract but does not change which signals fire.
func (e *Extractor) Extract(text string, _ *Context) []Signal {
	var out []Signal
	lower := strings.ToLower(text)

	out = append(out, e.punctuation(text)...)
	out = append(out, e.markers(lower, "hesitation", CategoryHesitation, e.hesitationRe, e.cfg.Hesitation)...)
	for _, name := range e.discourseNames {
		out = append(out, e.markers(lower, "discourse."+name, CategoryDiscourse, e.discourseRe[name], e.cfg.Discourse[name])...)
	}
	out = append(out, e.markers(lower, "lexical", CategoryLexical, e.lexicalRe, e.cfg.Lexical)...)
	out = append(out, e.microExpressions(lower)...)
	return out
}

func (e *Extractor) punctuation(text string) []Signal {
	var out []Signal

	for _, loc := range punctRunRe.FindAllStringIndex(text, -1) {
		run := text[loc[0]:loc[1]]
		name := "question"
		if strings.Contains(run, "!") {
			name = "exclaim"
		}
		r, ok := e.cfg.Punctuation[name]
		if !ok || len(run) < r.MinRun {
			continue
		}
		out = append(out, Signal{
			ID:       "punct." + name,
			Category: CategoryPunctuation,
			Weight:   r.Weight,
			Span:     &Span{Start: loc[0], End: loc[1]},
		})
	}

	if r, ok := e.cfg.Punctuation["ellipsis"]; ok {
		for _, loc := range ellipsisRe.FindAllStringIndex(text, -1) {
			out = append(out, Signal{
				ID:       "punct.ellipsis",
				Category: CategoryPunctuation,
				Weight:   r.Weight,
				Span:     &Span{Start: loc[0], End: loc[1]},
			})
		}
	}

	if r, ok := e.cfg.Punctuation["caps"]; ok {
		for _, loc := range capsRunRe.FindAllStringIndex(text, -1) {
			if loc[1]-loc[0] < r.MinRun {
				continue
			}
			out = append(out, Signal{
				ID:       "punct.caps",
				Category: CategoryPunctuation,
				Weight:   r.Weight,
				Span:     &Span{Start: loc[0], End: loc[1]},
			})
		}
	}

	return out
}

func (e *Extractor) markers(lower, id string, cat Category, re *regexp.Regexp, rule rules.MarkerRule) []Signal {
	var out []Signal
	for _, loc := range re.FindAllStringIndex(lower, -1) {
		out = append(out, Signal{
			ID:       id + "." + sanitize(lower[loc[0]:loc[1]]),
			Category: cat,
			Weight:   rule.Weight,
			Span:     &Span{Start: loc[0], End: loc[1]},
		})
	}
	return out
}

func (e *Extractor) microExpressions(lower string) []Signal {
	var out []Signal
	var sawPursuing, sawWithdrawing bool

	for _, p := range e.cfg.Micro {
		phrase := strings.ToLower(p.Phrase)
		from := 0
		for {
			i := strings.Index(lower[from:], phrase)
			if i < 0 {
				break
			}
			start := from + i
			out = append(out, Signal{
				ID:              p.ID,
				Category:        CategoryMicroExpression,
				Weight:          p.Weight,
				AttachmentHints: p.Hints,
				Span:            &Span{Start: start, End: start + len(phrase)},
			})
			if p.Hints["anxious"] > 0 {
				sawPursuing = true
			}
			if p.Hints["avoidant"] > 0 {
				sawWithdrawing = true
			}
			from = start + len(phrase)
		}
	}

	// Approach and withdrawal in the same message is its own signal.
	if sawPursuing && sawWithdrawing {
		out = append(out, Signal{
			ID:              e.cfg.Contradict.ID,
			Category:        CategoryMicroExpression,
			Weight:          e.cfg.Contradict.Weight,
			AttachmentHints: e.cfg.Contradict.Hints,
		})
	}

	return out
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "'", "")
}
