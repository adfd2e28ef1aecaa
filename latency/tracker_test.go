package latency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(cfg *Config)
		ok     bool
	}{
		{"default", func(*Config) {}, true},
		{"updater disabled", func(cfg *Config) { cfg.UpdatePeriod = -1 }, true},
		{"threshold below one", func(cfg *Config) { cfg.ExclusionThreshold = 0.5 }, false},
		{"zero retry period", func(cfg *Config) { cfg.RetryPeriod = 0 }, false},
		{"zero update period", func(cfg *Config) { cfg.UpdatePeriod = 0 }, false},
		{"zero minimum measurements", func(cfg *Config) { cfg.MinimumMeasurements = 0 }, false},
		{"zero scale", func(cfg *Config) { cfg.Scale = 0 }, false},
		{"zero recovery successes", func(cfg *Config) { cfg.RecoverySuccesses = 0 }, false},
		{"nil error score", func(cfg *Config) { cfg.ErrorScore = nil }, false},
		{"zero cutoff", func(cfg *Config) { cfg.ScoreCutOff = 0 }, false},
		{"release above cutoff", func(cfg *Config) { cfg.ReleaseScore = cfg.ScoreCutOff }, false},
		{"zero reset interval", func(cfg *Config) { cfg.ScoreResetInterval = 0 }, false},
		{"nil clock", func(cfg *Config) { cfg.Clock = nil }, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewDefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// newTestTracker builds a tracker on a mock clock moved off the epoch, with
// the background updater disabled so refreshes happen only on demand.
func newTestTracker(t *testing.T, mutate func(cfg *Config)) (*Tracker, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Add(12 * time.Hour)
	cfg := NewDefaultConfig()
	cfg.Clock = mock
	cfg.UpdatePeriod = -1
	if mutate != nil {
		mutate(&cfg)
	}
	tracker, err := New(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(tracker.Stop)
	return tracker, mock
}

func TestTrackerPenaltyWindow(t *testing.T) {
	t.Parallel()

	tracker, mock := newTestTracker(t, func(cfg *Config) {
		cfg.ScoreCutOff = 3
		cfg.ReleaseScore = 1
	})
	host := uuid.New()

	tracker.RecordFailure(host, 5*time.Millisecond, errors.New("overloaded"))
	tracker.RecordFailure(host, 5*time.Millisecond, errors.New("overloaded"))
	assert.False(t, tracker.Slow(host))

	tracker.RecordFailure(host, 5*time.Millisecond, errors.New("overloaded"))
	assert.True(t, tracker.Slow(host))

	mock.Add(DefaultRetryPeriod + time.Second)
	assert.False(t, tracker.Slow(host))
}

func TestTrackerClientSideErrorsIgnored(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker(t, func(cfg *Config) {
		cfg.ScoreCutOff = 1
	})
	host := uuid.New()

	for range 10 {
		tracker.RecordFailure(host, 5*time.Millisecond, context.Canceled)
	}

	assert.False(t, tracker.Slow(host))
	_, ok := tracker.NodeLatency(host)
	assert.False(t, ok, "client-side failures must leave no record")
}

func TestTrackerRecoveryStreak(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker(t, func(cfg *Config) {
		cfg.ScoreCutOff = 2
		cfg.ReleaseScore = 1
		cfg.RecoverySuccesses = 2
	})
	host := uuid.New()

	tracker.RecordFailure(host, time.Millisecond, errors.New("overloaded"))
	tracker.RecordFailure(host, time.Millisecond, errors.New("overloaded"))
	require.True(t, tracker.Slow(host))

	tracker.RecordSuccess(host, time.Millisecond)
	assert.True(t, tracker.Slow(host), "one success must not release the node")

	tracker.RecordSuccess(host, time.Millisecond)
	assert.False(t, tracker.Slow(host))
}

func TestTrackerReleaseScoreCarriesAcrossWindows(t *testing.T) {
	t.Parallel()

	var penalties int
	tracker, mock := newTestTracker(t, func(cfg *Config) {
		cfg.OnPenalise = func(uuid.UUID) { penalties++ }
	})
	host := uuid.New()

	// Four timeouts at the default weight of 40 cross the default cutoff.
	for range 4 {
		tracker.RecordFailure(host, 50*time.Millisecond, timeoutError{})
	}
	require.Equal(t, 1, penalties)
	require.True(t, tracker.Slow(host))

	mock.Add(DefaultRetryPeriod + time.Second)
	require.False(t, tracker.Slow(host))

	// The node left the window carrying ReleaseScore, so two more timeouts
	// reopen it where a fresh node would need four.
	tracker.RecordFailure(host, 50*time.Millisecond, timeoutError{})
	assert.Equal(t, 1, penalties, "one failure on the carried score must not reopen the window")

	tracker.RecordFailure(host, 50*time.Millisecond, timeoutError{})
	assert.Equal(t, 2, penalties, "second failure on the carried score must reopen the window")
	assert.True(t, tracker.Slow(host))
}

func TestTrackerDecayingAverage(t *testing.T) {
	t.Parallel()

	tracker, mock := newTestTracker(t, nil)
	host := uuid.New()

	tracker.RecordSuccess(host, 100*time.Millisecond)
	mock.Add(DefaultScale)
	tracker.RecordSuccess(host, 200*time.Millisecond)

	nl, ok := tracker.NodeLatency(host)
	require.True(t, ok)
	assert.Equal(t, int64(2), nl.Measurements)
	// One scale unit elapsed, so the old average keeps weight e^-1.
	assert.InDelta(t, 163.212e6, float64(nl.Average), 1e6)

	tracker.RecordSuccess(host, -1)
	nl, ok = tracker.NodeLatency(host)
	require.True(t, ok)
	assert.Equal(t, int64(2), nl.Measurements, "unknown latency must not be folded")
}

func TestTrackerTimeoutFoldsLatency(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker(t, nil)
	host := uuid.New()

	tracker.RecordFailure(host, 500*time.Millisecond, timeoutError{})

	nl, ok := tracker.NodeLatency(host)
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, nl.Average)
	assert.Equal(t, int64(1), nl.Measurements)
}

func TestTrackerSlowAgainstBaseline(t *testing.T) {
	t.Parallel()

	tracker, mock := newTestTracker(t, func(cfg *Config) {
		cfg.MinimumMeasurements = 2
	})
	fast := uuid.New()
	slow := uuid.New()
	sparse := uuid.New()

	for range 2 {
		tracker.RecordSuccess(fast, 100*time.Millisecond)
		tracker.RecordSuccess(slow, 300*time.Millisecond)
		mock.Add(time.Millisecond)
	}
	tracker.RecordSuccess(sparse, time.Second)

	tracker.refreshMinimum()
	assert.InDelta(t, float64(100*time.Millisecond), float64(tracker.MinAverage()), 2)

	assert.False(t, tracker.Slow(fast))
	assert.True(t, tracker.Slow(slow))
	assert.False(t, tracker.Slow(sparse), "too few measurements to judge")

	mock.Add(DefaultRetryPeriod + time.Second)
	assert.False(t, tracker.Slow(slow), "stale averages must not deprioritize")
}

func TestTrackerPrune(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker(t, nil)
	kept := uuid.New()
	gone := uuid.New()

	tracker.RecordSuccess(kept, time.Millisecond)
	tracker.RecordSuccess(gone, time.Millisecond)

	tracker.Prune(map[uuid.UUID]struct{}{kept: {}})

	_, ok := tracker.NodeLatency(kept)
	assert.True(t, ok)
	_, ok = tracker.NodeLatency(gone)
	assert.False(t, ok)
}

func TestTrackerConcurrentAccess(t *testing.T) {
	t.Parallel()

	tracker, _ := newTestTracker(t, nil)
	healthy := uuid.New()
	failing := uuid.New()

	const workers = 4
	const perWorker = 50

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				tracker.RecordSuccess(healthy, time.Millisecond)
				tracker.RecordFailure(failing, time.Millisecond, errors.New("overloaded"))
				tracker.Slow(healthy)
				tracker.NodeLatency(failing)
			}
		}()
	}
	wg.Wait()

	nl, ok := tracker.NodeLatency(healthy)
	require.True(t, ok)
	assert.Equal(t, int64(workers*perWorker), nl.Measurements, "folds must not be lost under contention")
	assert.Equal(t, time.Millisecond, nl.Average)

	assert.False(t, tracker.Slow(healthy))
	assert.True(t, tracker.Slow(failing), "accumulated failures must cross the default cutoff")
}

func TestTrackerOnPenalise(t *testing.T) {
	t.Parallel()

	var penalised []uuid.UUID
	tracker, _ := newTestTracker(t, func(cfg *Config) {
		cfg.ScoreCutOff = 1
		cfg.ReleaseScore = 0
		cfg.OnPenalise = func(host uuid.UUID) {
			penalised = append(penalised, host)
		}
	})
	host := uuid.New()

	tracker.RecordFailure(host, time.Millisecond, errors.New("overloaded"))
	tracker.RecordFailure(host, time.Millisecond, errors.New("overloaded"))

	require.Len(t, penalised, 1, "failures inside the window must not re-penalise")
	assert.Equal(t, host, penalised[0])
}
