package attachment

import "fmt"

// Style is the closed set of attachment categories inferred from text.
type Style string

const (
	Anxious      Style = "anxious"
	Avoidant     Style = "avoidant"
	Secure       Style = "secure"
	Disorganized Style = "disorganized"
)

// Styles lists every style in a fixed order for deterministic iteration.
var Styles = []Style{Anxious, Avoidant, Secure, Disorganized}

// Parse validates a style name from external input.
func Parse(s string) (Style, error) {
	switch Style(s) {
	case Anxious, Avoidant, Secure, Disorganized:
		return Style(s), nil
	}
	return "", fmt.Errorf("unknown attachment style %q", s)
}
