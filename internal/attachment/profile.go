package attachment

import "time"

// dateLayout is the calendar-day granularity used for bucketing observations.
const dateLayout = "2006-01-02"

// DayBucket accumulates signal weight for one calendar day. Raw per-day
// accumulators are never decayed in place; decay is applied at read time so
// stored history stays reproducible.
type DayBucket struct {
	Date             string            `json:"date"`
	ObservationCount int               `json:"observationCount"`
	Accumulator      map[Style]float64 `json:"signalAccumulator"`
	// No omitempty: a zero-signal day yields an empty map that must survive
	// the JSON round trip through the sqlite/postgres drivers as non-nil.
	CategoryCounts map[string]int `json:"categoryCounts"`
}

// Profile is the per-user scoring state. It holds only derived scores and
// counts — raw message text is never stored.
type Profile struct {
	UserID         string      `json:"userId"`
	CreatedAt      time.Time   `json:"createdAt"`
	DayBuckets     []DayBucket `json:"dayBuckets"`
	WindowDays     int         `json:"windowDays"`
	DailyLimit     int         `json:"dailyLimit"`
	WindowComplete bool        `json:"windowComplete"`
	LastUpdated    time.Time   `json:"lastUpdated"`
}

// Clone returns a deep copy, used by stores that hand profiles across
// goroutine boundaries.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.DayBuckets = make([]DayBucket, len(p.DayBuckets))
	for i, b := range p.DayBuckets {
		nb := b
		nb.Accumulator = make(map[Style]float64, len(b.Accumulator))
		for k, v := range b.Accumulator {
			nb.Accumulator[k] = v
		}
		if b.CategoryCounts != nil {
			nb.CategoryCounts = make(map[string]int, len(b.CategoryCounts))
			for k, v := range b.CategoryCounts {
				nb.CategoryCounts[k] = v
			}
		}
		cp.DayBuckets[i] = nb
	}
	return &cp
}

// Estimate is the derived primary/secondary style read-out.
type Estimate struct {
	Primary        Style             `json:"primary,omitempty"`
	Secondary      Style             `json:"secondary,omitempty"`
	Confidence     float64           `json:"confidence"`
	Scores         map[Style]float64 `json:"scores"`
	DaysObserved   int               `json:"daysObserved"`
	WindowComplete bool              `json:"windowComplete"`
}

// DaySnapshot is the privacy-safe per-day view used by Export.
type DaySnapshot struct {
	Date             string            `json:"date"`
	ObservationCount int               `json:"observationCount"`
	CategoryCounts   map[string]int    `json:"categoryCounts,omitempty"`
	Scores           map[Style]float64 `json:"scores"`
}

// Snapshot is the full privacy-safe export of a profile: derived scores,
// timestamps, and signal categories only.
type Snapshot struct {
	UserID         string        `json:"userId"`
	CreatedAt      time.Time     `json:"createdAt"`
	LastUpdated    time.Time     `json:"lastUpdated"`
	DaysObserved   int           `json:"daysObserved"`
	WindowComplete bool          `json:"windowComplete"`
	Days           []DaySnapshot `json:"days"`
	Estimate       *Estimate     `json:"estimate"`
}
