package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTask(t *testing.T, source string, now func() time.Time, observe func(Outcome)) *Task {
	t.Helper()
	task, err := NewTask(Opts{
		Source:   source,
		Dir:      filepath.Join(t.TempDir(), "backups"),
		At:       "03:30",
		Now:      now,
		Location: time.UTC,
		Observe:  observe,
	})
	require.NoError(t, err)
	return task
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("03:05")
	require.NoError(t, err)
	assert.Equal(t, 3, h)
	assert.Equal(t, 5, m)

	for _, bad := range []string{"", "3", "24:00", "12:60", "aa:bb", "-1:10"} {
		_, _, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidTime, bad)
	}
}

func TestNextRun(t *testing.T) {
	task := newTestTask(t, "unused", nil, nil)

	before := time.Date(2025, 5, 10, 1, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 5, 10, 3, 30, 0, 0, time.UTC), task.NextRun(before))

	exactly := time.Date(2025, 5, 10, 3, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 5, 11, 3, 30, 0, 0, time.UTC), task.NextRun(exactly))

	after := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 1, 3, 30, 0, 0, time.UTC), task.NextRun(after))
}

func TestRunBackupCopiesFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"1":{"language":"fr"}}`), 0o600))

	now := time.Date(2025, 5, 10, 3, 30, 0, 0, time.UTC)
	var outcomes []Outcome
	task := newTestTask(t, src, func() time.Time { return now }, func(o Outcome) { outcomes = append(outcomes, o) })

	path, err := task.RunBackup()
	require.NoError(t, err)
	assert.Equal(t, "user_data_20250510T033000.json", filepath.Base(path))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"1":{"language":"fr"}}`, string(got))
	assert.Equal(t, []Outcome{OutcomeOK}, outcomes)
}

func TestRunBackupMissingSourceIsNoop(t *testing.T) {
	var outcomes []Outcome
	task := newTestTask(t, filepath.Join(t.TempDir(), "absent.json"), nil, func(o Outcome) { outcomes = append(outcomes, o) })

	path, err := task.RunBackup()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, []Outcome{OutcomeSkipped}, outcomes)

	list, err := task.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunBackupFailure(t *testing.T) {
	src := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(src, []byte(`{}`), 0o600))

	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	task, err := NewTask(Opts{Source: src, Dir: filepath.Join(blocker, "backups"), At: "00:00"})
	require.NoError(t, err)

	_, err = task.RunBackup()
	assert.ErrorIs(t, err, ErrBackup)
}

func TestListIsChronological(t *testing.T) {
	src := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(src, []byte(`{}`), 0o600))

	now := time.Date(2025, 1, 1, 3, 30, 0, 0, time.UTC)
	task := newTestTask(t, src, func() time.Time { return now }, nil)

	for i := 0; i < 3; i++ {
		_, err := task.RunBackup()
		require.NoError(t, err)
		now = now.AddDate(0, 0, 1)
	}

	list, err := task.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "user_data_20250101T033000.json", filepath.Base(list[0]))
	assert.Equal(t, "user_data_20250103T033000.json", filepath.Base(list[2]))
}

func TestRunStopsOnCancel(t *testing.T) {
	task := newTestTask(t, "unused", nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		task.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type timerCall struct {
	delay time.Duration
	fire  chan time.Time
}

type fakeTimer struct {
	calls chan timerCall
}

func (f *fakeTimer) Start(d time.Duration) (<-chan time.Time, func() bool) {
	call := timerCall{delay: d, fire: make(chan time.Time, 1)}
	f.calls <- call
	return call.fire, func() bool { return true }
}

func (f *fakeTimer) Next(t *testing.T) timerCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("backup loop did not schedule a tick")
		return timerCall{}
	}
}

type scheduled struct {
	task     *Task
	clock    *fakeClock
	timer    *fakeTimer
	outcomes chan Outcome
	stop     func()
}

func startScheduled(t *testing.T, source, dir string, start time.Time) *scheduled {
	t.Helper()

	s := &scheduled{
		clock:    &fakeClock{now: start},
		timer:    &fakeTimer{calls: make(chan timerCall, 4)},
		outcomes: make(chan Outcome, 4),
	}
	task, err := NewTask(Opts{
		Source:   source,
		Dir:      dir,
		At:       "03:30",
		Now:      s.clock.Now,
		Location: time.UTC,
		Timer:    s.timer.Start,
		Observe:  func(o Outcome) { s.outcomes <- o },
	})
	require.NoError(t, err)
	s.task = task

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		task.Run(ctx)
		close(done)
	}()
	s.stop = func() {
		cancel()
		<-done
	}
	t.Cleanup(s.stop)
	return s
}

func (s *scheduled) outcome(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-s.outcomes:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("no backup outcome")
		return ""
	}
}

func TestRunTakesBackupOnTick(t *testing.T) {
	src := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(src, []byte(`{"7":{"language":"it"}}`), 0o600))
	dir := filepath.Join(t.TempDir(), "backups")

	s := startScheduled(t, src, dir, time.Date(2025, 5, 10, 3, 29, 59, 0, time.UTC))

	first := s.timer.Next(t)
	assert.Equal(t, time.Second, first.delay)

	tick := time.Date(2025, 5, 10, 3, 30, 0, 0, time.UTC)
	s.clock.Set(tick)
	first.fire <- tick

	assert.Equal(t, OutcomeOK, s.outcome(t))
	second := s.timer.Next(t)
	assert.Equal(t, 24*time.Hour, second.delay)

	list, err := s.task.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "user_data_20250510T033000.json", filepath.Base(list[0]))
}

func TestRunRetriesFailureOnNextTickOnly(t *testing.T) {
	src := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(src, []byte(`{}`), 0o600))
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	s := startScheduled(t, src, filepath.Join(blocker, "backups"), time.Date(2025, 5, 10, 3, 0, 0, 0, time.UTC))

	first := s.timer.Next(t)
	tick := time.Date(2025, 5, 10, 3, 30, 0, 0, time.UTC)
	s.clock.Set(tick)
	first.fire <- tick

	assert.Equal(t, OutcomeFailed, s.outcome(t))
	second := s.timer.Next(t)
	assert.Equal(t, 24*time.Hour, second.delay)

	// the loop now waits on the next tick, nothing was retried in between
	select {
	case o := <-s.outcomes:
		t.Fatalf("unexpected retry with outcome %s", o)
	default:
	}

	tick = tick.AddDate(0, 0, 1)
	s.clock.Set(tick)
	second.fire <- tick
	assert.Equal(t, OutcomeFailed, s.outcome(t))
}

func TestRunDoesNotRepeatTickWhenClockStepsBack(t *testing.T) {
	src := filepath.Join(t.TempDir(), "user_data.json")
	require.NoError(t, os.WriteFile(src, []byte(`{}`), 0o600))

	s := startScheduled(t, src, filepath.Join(t.TempDir(), "backups"), time.Date(2025, 5, 10, 3, 29, 59, 0, time.UTC))

	first := s.timer.Next(t)
	stepped := time.Date(2025, 5, 10, 3, 29, 58, 0, time.UTC)
	s.clock.Set(stepped)
	first.fire <- stepped

	assert.Equal(t, OutcomeOK, s.outcome(t))
	second := s.timer.Next(t)
	assert.Equal(t, 24*time.Hour+2*time.Second, second.delay)
}
