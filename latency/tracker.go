package latency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/scylladb/scylla-routing-golang/logx"
)

const (
	// DefaultExclusionThreshold deprioritizes nodes at least twice as slow as the cluster best.
	DefaultExclusionThreshold = 2.0
	// DefaultRetryPeriod is how long a penalized node stays deprioritized before it is probed again.
	DefaultRetryPeriod = 10 * time.Second
	// DefaultUpdatePeriod is how often the cluster-wide best average is refreshed.
	DefaultUpdatePeriod = 100 * time.Millisecond
	// DefaultMinimumMeasurements is how many samples a node needs before its average is trusted.
	DefaultMinimumMeasurements = 50
	// DefaultScale controls how fast old samples decay out of the average.
	DefaultScale = 100 * time.Millisecond
	// DefaultRecoverySuccesses is how many consecutive successes release a penalized node early.
	DefaultRecoverySuccesses = 8
	// DefaultScoreCutOff is the accumulated error score that opens a penalty window.
	DefaultScoreCutOff = 124
	// DefaultReleaseScore is the score a node carries out of a penalty window.
	DefaultReleaseScore = 60
	// DefaultScoreResetInterval clears the accumulated error score after the given quiet period.
	DefaultScoreResetInterval = 10 * time.Second
)

// Config configures how the Tracker folds measurements and when it penalizes nodes.
type Config struct {
	// ExclusionThreshold sets how many times worse than the cluster best
	// average a node may get before it is deprioritized.
	ExclusionThreshold float64
	// RetryPeriod bounds both the penalty window length and the freshness of
	// averages: records older than this are ignored to give the node a chance.
	RetryPeriod time.Duration
	// UpdatePeriod makes the background worker refresh the cluster-wide best
	// average at this interval (set >0 to enable or <0 to disable).
	UpdatePeriod time.Duration
	// MinimumMeasurements is the number of samples required before a node
	// average takes part in comparisons.
	MinimumMeasurements int
	// Scale shapes the decay of old samples: the previous average keeps
	// weight exp(-elapsed/Scale) when a new sample is folded in.
	Scale time.Duration
	// RecoverySuccesses releases a penalized node after this many
	// consecutive successful queries.
	RecoverySuccesses int
	// ErrorScore maps failures to score deltas. Zero-delta failures are
	// client-side and leave the node record untouched.
	ErrorScore ErrorScoreFunc
	// ScoreCutOff opens a penalty window once the accumulated score reaches it.
	ScoreCutOff uint64
	// ReleaseScore is stored when a penalty window opens, so the node leaves
	// the window warmer than a fresh one.
	ReleaseScore uint64
	// ScoreResetInterval clears the accumulated score after a quiet period.
	ScoreResetInterval time.Duration
	// OnPenalise, when set, is invoked each time a node enters a penalty window.
	OnPenalise func(host uuid.UUID)
	// Clock supplies time, swappable in tests.
	Clock clock.Clock
}

// NewDefaultConfig returns the default Tracker configuration.
func NewDefaultConfig() Config {
	return Config{
		ExclusionThreshold:  DefaultExclusionThreshold,
		RetryPeriod:         DefaultRetryPeriod,
		UpdatePeriod:        DefaultUpdatePeriod,
		MinimumMeasurements: DefaultMinimumMeasurements,
		Scale:               DefaultScale,
		RecoverySuccesses:   DefaultRecoverySuccesses,
		ErrorScore:          DefaultErrorScore,
		ScoreCutOff:         DefaultScoreCutOff,
		ReleaseScore:        DefaultReleaseScore,
		ScoreResetInterval:  DefaultScoreResetInterval,
		Clock:               clock.New(),
	}
}

// Validate ensures tracker parameters are correctly defined.
func (cfg Config) Validate() error {
	if cfg.ExclusionThreshold < 1 {
		return fmt.Errorf("latency tracker: ExclusionThreshold must be >= 1 (got %v)", cfg.ExclusionThreshold)
	}
	if cfg.RetryPeriod <= 0 {
		return fmt.Errorf("latency tracker: RetryPeriod must be > 0 (got %s)", cfg.RetryPeriod)
	}
	if cfg.UpdatePeriod == 0 {
		return errors.New("latency tracker: UpdatePeriod cannot be zero (set >0 to enable or <0 to disable)")
	}
	if cfg.MinimumMeasurements <= 0 {
		return fmt.Errorf("latency tracker: MinimumMeasurements must be > 0 (got %d)", cfg.MinimumMeasurements)
	}
	if cfg.Scale <= 0 {
		return fmt.Errorf("latency tracker: Scale must be > 0 (got %s)", cfg.Scale)
	}
	if cfg.RecoverySuccesses <= 0 {
		return fmt.Errorf("latency tracker: RecoverySuccesses must be > 0 (got %d)", cfg.RecoverySuccesses)
	}
	if cfg.ErrorScore == nil {
		return errors.New("latency tracker: ErrorScore must be provided")
	}
	if cfg.ScoreCutOff == 0 {
		return errors.New("latency tracker: ScoreCutOff must be > 0")
	}
	if cfg.ReleaseScore >= cfg.ScoreCutOff {
		return fmt.Errorf("latency tracker: ReleaseScore must be below ScoreCutOff (got %d >= %d)", cfg.ReleaseScore, cfg.ScoreCutOff)
	}
	if cfg.ScoreResetInterval <= 0 {
		return fmt.Errorf("latency tracker: ScoreResetInterval must be > 0 (got %s)", cfg.ScoreResetInterval)
	}
	if cfg.Clock == nil {
		return errors.New("latency tracker: Clock must be provided")
	}
	return nil
}

// timestampedAverage is an immutable latency record, swapped wholesale on update.
type timestampedAverage struct {
	average time.Duration
	count   int64
	updated time.Time
}

type nodeStats struct {
	sample         atomic.Pointer[timestampedAverage]
	score          atomic.Uint64
	scoreUpdated   atomic.Int64
	penalisedUntil atomic.Int64
	successStreak  atomic.Uint32
}

// Tracker keeps a decaying latency average and an error score per node, all
// lock-free so the query hot path never blocks on it.
type Tracker struct {
	cfg Config
	log logx.Logger

	nodes   sync.Map // uuid.UUID -> *nodeStats
	minimum atomic.Int64

	updaterStarted atomic.Bool
	ctx            context.Context
	stopFn         context.CancelFunc
}

// NodeLatency is a point-in-time view of a node's latency record.
type NodeLatency struct {
	Average      time.Duration
	Measurements int64
	Updated      time.Time
}

// New builds a Tracker with the provided configuration.
func New(cfg Config, logger logx.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logx.Noop{}
	}
	ctx, stopFn := context.WithCancel(context.Background())
	return &Tracker{
		cfg:    cfg,
		log:    logger.Named("latency"),
		ctx:    ctx,
		stopFn: stopFn,
	}, nil
}

// RecordSuccess folds a successful query into the node's record. A negative
// duration means the latency is unavailable; the success still counts toward
// releasing a penalized node.
func (t *Tracker) RecordSuccess(host uuid.UUID, d time.Duration) {
	t.startUpdater()
	stats := t.statsFor(host)
	if d >= 0 {
		t.observe(stats, d)
	}
	streak := stats.successStreak.Add(1)
	if int(streak) < t.cfg.RecoverySuccesses {
		return
	}
	now := t.cfg.Clock.Now().UTC()
	until := stats.penalisedUntil.Load()
	if until == 0 || now.UnixNano() >= until {
		return
	}
	if stats.penalisedUntil.CompareAndSwap(until, 0) {
		stats.successStreak.Store(0)
		t.log.Info("node released from penalty window", logx.A("host", host.String()))
	}
}

// RecordFailure folds a failed query into the node's record. Client-side
// failures (zero score delta) are ignored entirely. Server-side failures with
// a non-negative duration, timeouts included, still update the latency
// average; a negative duration skips the fold.
func (t *Tracker) RecordFailure(host uuid.UUID, d time.Duration, err error) {
	delta := t.cfg.ErrorScore(err)
	if delta == 0 {
		return
	}
	t.startUpdater()
	stats := t.statsFor(host)
	if d >= 0 {
		t.observe(stats, d)
	}
	stats.successStreak.Store(0)

	now := t.cfg.Clock.Now().UTC()
	if until := stats.penalisedUntil.Load(); until > 0 && now.UnixNano() < until {
		return
	}
	if t.bumpScore(stats, delta, now) >= t.cfg.ScoreCutOff {
		t.penalise(host, stats, now)
	}
}

// Slow reports whether the node should be deprioritized when building a plan:
// either it is inside a penalty window, or its fresh latency average exceeds
// the cluster best by more than the exclusion threshold.
func (t *Tracker) Slow(host uuid.UUID) bool {
	value, ok := t.nodes.Load(host)
	if !ok {
		return false
	}
	stats := value.(*nodeStats)
	now := t.cfg.Clock.Now().UTC()
	if until := stats.penalisedUntil.Load(); until > 0 && now.UnixNano() < until {
		return true
	}
	minimum := t.minimum.Load()
	if minimum <= 0 {
		return false
	}
	sample := stats.sample.Load()
	if sample == nil || sample.count < int64(t.cfg.MinimumMeasurements) {
		return false
	}
	if now.Sub(sample.updated) > t.cfg.RetryPeriod {
		return false
	}
	return float64(sample.average) > t.cfg.ExclusionThreshold*float64(minimum)
}

// NodeLatency returns the current latency record for the node, if any.
func (t *Tracker) NodeLatency(host uuid.UUID) (NodeLatency, bool) {
	value, ok := t.nodes.Load(host)
	if !ok {
		return NodeLatency{}, false
	}
	sample := value.(*nodeStats).sample.Load()
	if sample == nil {
		return NodeLatency{}, false
	}
	return NodeLatency{
		Average:      sample.average,
		Measurements: sample.count,
		Updated:      sample.updated,
	}, true
}

// MinAverage returns the cluster-wide best average, or zero when no node has
// enough fresh measurements yet.
func (t *Tracker) MinAverage() time.Duration {
	return time.Duration(t.minimum.Load())
}

// Prune drops records of nodes that left the cluster.
func (t *Tracker) Prune(alive map[uuid.UUID]struct{}) {
	t.nodes.Range(func(key, _ any) bool {
		if _, ok := alive[key.(uuid.UUID)]; !ok {
			t.nodes.Delete(key)
		}
		return true
	})
}

// Stop terminates the background updater. The tracker keeps accepting
// records, but the cluster-wide best average is no longer refreshed.
func (t *Tracker) Stop() {
	t.stopFn()
}

func (t *Tracker) statsFor(host uuid.UUID) *nodeStats {
	if value, ok := t.nodes.Load(host); ok {
		return value.(*nodeStats)
	}
	value, _ := t.nodes.LoadOrStore(host, &nodeStats{})
	return value.(*nodeStats)
}

// observe folds the duration into the node's decaying average. The previous
// average keeps weight exp(-elapsed/Scale), so idle nodes forget quickly
// while a busy node's average moves smoothly.
func (t *Tracker) observe(stats *nodeStats, d time.Duration) {
	now := t.cfg.Clock.Now().UTC()
	for {
		prev := stats.sample.Load()
		next := &timestampedAverage{average: d, count: 1, updated: now}
		if prev != nil {
			w := 1.0
			if elapsed := now.Sub(prev.updated); elapsed > 0 {
				w = math.Exp(-float64(elapsed) / float64(t.cfg.Scale))
			}
			next.average = time.Duration(float64(prev.average)*w + float64(d)*(1.0-w))
			next.count = prev.count + 1
		}
		if stats.sample.CompareAndSwap(prev, next) {
			return
		}
	}
}

// bumpScore adds the delta to the node's error score, first clearing scores
// older than ScoreResetInterval. Accounting is best effort: concurrent
// updates may drop a point, never block.
func (t *Tracker) bumpScore(stats *nodeStats, delta uint64, now time.Time) uint64 {
	nowNanos := now.UnixNano()
	last := stats.scoreUpdated.Load()
	if last == 0 || nowNanos-last >= int64(t.cfg.ScoreResetInterval) {
		if stats.scoreUpdated.CompareAndSwap(last, nowNanos) {
			stats.score.Store(delta)
			return delta
		}
	}
	stats.scoreUpdated.Store(nowNanos)
	return stats.score.Add(delta)
}

func (t *Tracker) penalise(host uuid.UUID, stats *nodeStats, now time.Time) {
	until := now.Add(t.cfg.RetryPeriod).UnixNano()
	stats.score.Store(t.cfg.ReleaseScore)
	// In-window failures never reach bumpScore, so the quiet period before a
	// score reset runs from the window end, not from the bump that opened it.
	// Otherwise a RetryPeriod at or above ScoreResetInterval would wipe the
	// carried ReleaseScore on the first failure after expiry.
	stats.scoreUpdated.Store(until)
	stats.penalisedUntil.Store(until)
	t.log.Warn("node entered penalty window",
		logx.A("host", host.String()),
		logx.A("retry_period", t.cfg.RetryPeriod.String()),
	)
	if t.cfg.OnPenalise != nil {
		t.cfg.OnPenalise(host)
	}
}

func (t *Tracker) startUpdater() {
	if t.cfg.UpdatePeriod <= 0 {
		return
	}
	if t.updaterStarted.CompareAndSwap(false, true) {
		go func() {
			ticker := t.cfg.Clock.Ticker(t.cfg.UpdatePeriod)
			defer ticker.Stop()
			for {
				select {
				case <-t.ctx.Done():
					return
				case <-ticker.C:
					t.refreshMinimum()
				}
			}
		}()
	}
}

// refreshMinimum recomputes the cluster-wide best average over nodes with
// enough fresh measurements. Stale records are skipped so a node that went
// quiet cannot pin the baseline.
func (t *Tracker) refreshMinimum() {
	now := t.cfg.Clock.Now().UTC()
	var minimum int64
	t.nodes.Range(func(_, value any) bool {
		sample := value.(*nodeStats).sample.Load()
		if sample == nil || sample.count < int64(t.cfg.MinimumMeasurements) {
			return true
		}
		if now.Sub(sample.updated) > t.cfg.RetryPeriod {
			return true
		}
		if minimum == 0 || int64(sample.average) < minimum {
			minimum = int64(sample.average)
		}
		return true
	})
	t.minimum.Store(minimum)
}
