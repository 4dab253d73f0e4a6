package tone

import "fmt"

// Bucket is the closed set of coarse tone classifications.
type Bucket string

const (
	Alert   Bucket = "alert"
	Caution Bucket = "caution"
	Clear   Bucket = "clear"
	Neutral Bucket = "neutral"
)

// Buckets lists every bucket in a fixed order, used wherever scores are
// iterated so output stays deterministic.
var Buckets = []Bucket{Alert, Caution, Clear, Neutral}

// Parse validates a bucket name from external input.
func Parse(s string) (Bucket, error) {
	switch Bucket(s) {
	case Alert, Caution, Clear, Neutral:
		return Bucket(s), nil
	}
	return "", fmt.Errorf("unknown tone bucket %q", s)
}
