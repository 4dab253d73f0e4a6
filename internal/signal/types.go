package signal

// Category identifies the micro-linguistic family a signal belongs to.
type Category string

const (
	CategoryPunctuation     Category = "punctuation"
	CategoryHesitation      Category = "hesitation"
	CategoryDiscourse       Category = "discourse"
	CategoryMicroExpression Category = "microExpression"
	CategoryLexical         Category = "lexical"
)

// Span marks the byte range in the source text a signal was matched on.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Signal is a single detected linguistic feature. Immutable once produced.
// AttachmentHints keys are attachment style names, validated against the
// closed style set when the rule tables are loaded.
type Signal struct {
	ID              string             `json:"id"`
	Category        Category           `json:"category"`
	Weight          float64            `json:"weight"`
	AttachmentHints map[string]float64 `json:"attachmentHints,omitempty"`
	Span            *Span              `json:"span,omitempty"`
}

// Context carries optional conversational hints supplied by the caller.
type Context struct {
	RelationshipPhase string `json:"relationshipPhase,omitempty"` // new | established
	StressLevel       string `json:"stressLevel,omitempty"`       // low | high
}
