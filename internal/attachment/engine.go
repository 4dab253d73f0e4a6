package attachment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/unsaid-app/attune/internal/rules"
	"github.com/unsaid-app/attune/internal/signal"
)

// ErrInvalidObservation marks a rejected observation (zero, far-future, or
// non-monotonic timestamp). The profile is left unmutated.
var ErrInvalidObservation = errors.New("invalid observation")

// ErrProfileNotFound is returned by stores when no profile exists for a user.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileStore is the persistence dependency. Implementations live in
// internal/store; Get must return ErrProfileNotFound (possibly wrapped) when
// the user has no profile, and transient failures must not be reported as
// not-found — the engine never treats a store error as an empty profile.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Put(ctx context.Context, userID string, p *Profile) error
	Delete(ctx context.Context, userID string) error
}

// Engine maintains per-user attachment profiles over a bounded learning
// window. Observations for the same user are serialized; different users
// proceed independently.
type Engine struct {
	store  ProfileStore
	cfg    rules.AttachmentRules
	logger *slog.Logger

	// locks holds one entry per user id observed in this process; entries
	// are never evicted because dropping one while a holder is in flight
	// would let two observes for the same user interleave.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(store ProfileStore, cfg rules.AttachmentRules, logger *slog.Logger) *Engine {
	return &Engine{
		store:  store,
		cfg:    cfg,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[userID] = l
	}
	return l
}

// Observe folds a signal set into the user's profile for the observation's
// calendar day. Once the learning window is complete the call is a no-op that
// still returns the frozen estimate. Observations past the daily cap succeed
// without accumulating.
func (e *Engine) Observe(ctx context.Context, userID string, sigs []signal.Signal, ts time.Time) (*Estimate, error) {
	if err := e.checkTimestamp(ts); err != nil {
		return nil, err
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p, err := e.store.Get(ctx, userID)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		p = &Profile{
			UserID:     userID,
			CreatedAt:  ts.UTC(),
			WindowDays: e.cfg.WindowDays,
			DailyLimit: e.cfg.DailyLimit,
		}
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if p.WindowComplete {
		return e.estimate(p), nil
	}

	date := ts.UTC().Format(dateLayout)
	if n := len(p.DayBuckets); n > 0 && date < p.DayBuckets[n-1].Date {
		return nil, fmt.Errorf("%w: timestamp predates newest observed day %s", ErrInvalidObservation, p.DayBuckets[n-1].Date)
	}

	bucket := e.findBucket(p, date)
	mutated := bucket != nil && bucket.ObservationCount < p.DailyLimit
	if bucket == nil {
		p.DayBuckets = append(p.DayBuckets, DayBucket{
			Date:           date,
			Accumulator:    make(map[Style]float64, len(Styles)),
			CategoryCounts: make(map[string]int),
		})
		bucket = &p.DayBuckets[len(p.DayBuckets)-1]
		mutated = true
	}

	if bucket.ObservationCount < p.DailyLimit {
		// Buckets reloaded from serialized profiles may carry nil maps.
		if bucket.Accumulator == nil {
			bucket.Accumulator = make(map[Style]float64, len(Styles))
		}
		if bucket.CategoryCounts == nil {
			bucket.CategoryCounts = make(map[string]int)
		}
		for _, sig := range sigs {
			bucket.CategoryCounts[string(sig.Category)]++
			for name, hint := range sig.AttachmentHints {
				style, err := Parse(name)
				if err != nil {
					continue // hints are validated at rules load; skip defensively-unparseable keys
				}
				bucket.Accumulator[style] += sig.Weight * hint
			}
		}
		bucket.ObservationCount++
	}

	if len(p.DayBuckets) >= p.WindowDays {
		p.WindowComplete = true
		mutated = true
		e.logger.Info("learning window complete", "user_id", userID, "days", len(p.DayBuckets))
	}

	if mutated {
		p.LastUpdated = ts.UTC()
		if err := e.store.Put(ctx, userID, p); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
	}

	return e.estimate(p), nil
}

// Estimate returns the current decayed estimate for a user. An unknown user
// yields an empty estimate rather than an error.
func (e *Engine) Estimate(ctx context.Context, userID string) (*Estimate, error) {
	p, err := e.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return e.estimate(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return e.estimate(p), nil
}

// Reset clears the profile and restarts the window. Idempotent.
func (e *Engine) Reset(ctx context.Context, userID string) (*Estimate, error) {
	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := e.store.Delete(ctx, userID); err != nil && !errors.Is(err, ErrProfileNotFound) {
		return nil, fmt.Errorf("delete profile: %w", err)
	}
	return e.estimate(nil), nil
}

// Export returns the privacy-safe snapshot for a user: derived scores,
// timestamps, and signal category tallies. No raw text exists in the profile
// and none appears here.
func (e *Engine) Export(ctx context.Context, userID string) (*Snapshot, error) {
	p, err := e.store.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return &Snapshot{UserID: userID, Estimate: e.estimate(nil)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	snap := &Snapshot{
		UserID:         p.UserID,
		CreatedAt:      p.CreatedAt,
		LastUpdated:    p.LastUpdated,
		DaysObserved:   len(p.DayBuckets),
		WindowComplete: p.WindowComplete,
		Estimate:       e.estimate(p),
	}
	for _, b := range p.DayBuckets {
		scores := make(map[Style]float64, len(Styles))
		for _, s := range Styles {
			scores[s] = b.Accumulator[s]
		}
		snap.Days = append(snap.Days, DaySnapshot{
			Date:             b.Date,
			ObservationCount: b.ObservationCount,
			CategoryCounts:   b.CategoryCounts,
			Scores:           scores,
		})
	}
	return snap, nil
}

func (e *Engine) checkTimestamp(ts time.Time) error {
	if ts.IsZero() {
		return fmt.Errorf("%w: zero timestamp", ErrInvalidObservation)
	}
	skew := time.Duration(e.cfg.MaxFutureSkewHours) * time.Hour
	if ts.After(time.Now().Add(skew)) {
		return fmt.Errorf("%w: timestamp too far in the future", ErrInvalidObservation)
	}
	return nil
}

func (e *Engine) findBucket(p *Profile, date string) *DayBucket {
	for i := range p.DayBuckets {
		if p.DayBuckets[i].Date == date {
			return &p.DayBuckets[i]
		}
	}
	return nil
}

// estimate aggregates day buckets with exponential decay anchored at the
// newest observed day, so a frozen window reads identically forever.
func (e *Engine) estimate(p *Profile) *Estimate {
	est := &Estimate{Scores: make(map[Style]float64, len(Styles))}
	for _, s := range Styles {
		est.Scores[s] = 0
	}
	if p == nil || len(p.DayBuckets) == 0 {
		return est
	}

	est.DaysObserved = len(p.DayBuckets)
	est.WindowComplete = p.WindowComplete

	newest, err := time.Parse(dateLayout, p.DayBuckets[len(p.DayBuckets)-1].Date)
	if err != nil {
		newest = p.LastUpdated
	}

	var total float64
	for _, b := range p.DayBuckets {
		day, err := time.Parse(dateLayout, b.Date)
		if err != nil {
			continue
		}
		age := newest.Sub(day).Hours() / 24
		decay := math.Pow(0.5, age/e.cfg.DecayHalfLifeDays)
		for style, v := range b.Accumulator {
			est.Scores[style] += v * decay
			total += v * decay
		}
	}

	if total > 0 {
		for s := range est.Scores {
			est.Scores[s] /= total
		}
	}

	primary, runnerUp := Style(""), Style("")
	for _, s := range Styles {
		if primary == "" || est.Scores[s] > est.Scores[primary] {
			runnerUp = primary
			primary = s
		} else if runnerUp == "" || est.Scores[s] > est.Scores[runnerUp] {
			runnerUp = s
		}
	}
	if total == 0 {
		return est
	}

	est.Primary = primary
	separation := est.Scores[primary]
	if runnerUp != "" {
		separation = est.Scores[primary] - est.Scores[runnerUp]
		if separation <= e.cfg.SecondaryMargin && est.Scores[runnerUp] > 0 {
			est.Secondary = runnerUp
		}
	}

	coverage := float64(est.DaysObserved) / float64(p.WindowDays)
	if coverage > 1 {
		coverage = 1
	}
	est.Confidence = clamp01(coverage * (0.5 + separation))
	return est
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
