// Package backup copies the preference file into a directory of timestamped snapshots once a day.
package backup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ipril-bot/internal/fsstore"
)

const (
	filePrefix = "user_data_"
	fileExt    = ".json"
	// stampLayout sorts lexically in capture order.
	stampLayout = "20060102T150405"
)

var (
	ErrBackup      = errors.New("backup failed")
	ErrInvalidTime = errors.New("invalid backup time, want HH:MM")
)

// Outcome is reported to the optional observer after every run.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
)

// Opts is a carrier of options for Task.
type Opts struct {
	Source string
	Dir    string
	// At is the local time of day in HH:MM.
	At string

	Logger   *slog.Logger
	Observe  func(Outcome)
	Now      func() time.Time
	Location *time.Location
	// Timer overrides time.NewTimer, used by tests. It returns the channel and a stop func.
	Timer func(d time.Duration) (<-chan time.Time, func() bool)
}

type Task struct {
	source  string
	dir     string
	hour    int
	minute  int
	loc     *time.Location
	now     func() time.Time
	timer   func(d time.Duration) (<-chan time.Time, func() bool)
	logger  *slog.Logger
	observe func(Outcome)
}

func NewTask(opts Opts) (*Task, error) {
	hour, minute, err := ParseClock(opts.At)
	if err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observe == nil {
		opts.Observe = func(Outcome) {}
	}
	if opts.Timer == nil {
		opts.Timer = func(d time.Duration) (<-chan time.Time, func() bool) {
			tm := time.NewTimer(d)
			return tm.C, tm.Stop
		}
	}

	return &Task{
		source:  opts.Source,
		dir:     opts.Dir,
		hour:    hour,
		minute:  minute,
		loc:     opts.Location,
		now:     opts.Now,
		timer:   opts.Timer,
		logger:  opts.Logger.With("component", "backup"),
		observe: opts.Observe,
	}, nil
}

// ParseClock parses "HH:MM" in 24-hour format.
func ParseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hour, minute, nil
}

// NextRun returns the first scheduled instant strictly after now.
func (t *Task) NextRun(now time.Time) time.Time {
	now = now.In(t.loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), t.hour, t.minute, 0, 0, t.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is done, taking one backup per day. Failures are logged
// and wait for the next scheduled tick. A tick is never scheduled at or before
// the previous one, even if the clock steps back.
func (t *Task) Run(ctx context.Context) {
	var last time.Time
	for {
		now := t.now()
		from := now
		if from.Before(last) {
			from = last
		}
		next := t.NextRun(from)
		t.logger.InfoContext(ctx, "next backup scheduled", "at", next.Format(time.RFC3339))

		fired, stop := t.timer(next.Sub(now))
		select {
		case <-ctx.Done():
			stop()
			t.logger.InfoContext(ctx, "backup loop stopping")
			return
		case <-fired:
		}
		last = next

		if _, err := t.RunBackup(); err != nil {
			t.logger.ErrorContext(ctx, "scheduled backup failed, will retry next cycle", "error", err)
		}
	}
}

// RunBackup copies the source file into the backup directory and returns the new path.
// A missing source is not an error: it returns an empty path.
func (t *Task) RunBackup() (string, error) {
	stamp := t.now().In(t.loc).Format(stampLayout)
	dst := filepath.Join(t.dir, filePrefix+stamp+fileExt)

	n, err := fsstore.CopyAtomic(t.source, dst, fsstore.FileOptions{})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.logger.Info("nothing to back up yet", "op", "backup", "source", t.source)
			t.observe(OutcomeSkipped)
			return "", nil
		}
		t.observe(OutcomeFailed)
		return "", fmt.Errorf("%w: %s -> %s: %w", ErrBackup, t.source, dst, err)
	}

	t.logger.Info("backup written", "op", "backup", "path", dst, "bytes", n)
	t.observe(OutcomeOK)
	return dst, nil
}

// List returns existing backups, oldest first.
func (t *Task) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(t.dir, filePrefix+"*"+fileExt))
	if err != nil {
		return nil, err
	}
	// Glob sorts, and the stamp layout sorts in time order.
	return matches, nil
}
