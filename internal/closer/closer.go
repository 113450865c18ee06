// Package closer runs registered shutdown hooks once, on a signal or an explicit Close.
package closer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"
)

const DefaultTimeout = 10 * time.Second

type hook struct {
	name string
	fn   func(ctx context.Context) error
}

type Closer struct {
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.Mutex
	once  sync.Once
	done  chan struct{}
	hooks []hook
	err   error
}

// NewCloser returns a Closer that also closes itself on the first of sig.
func NewCloser(logger *slog.Logger, timeout time.Duration, sig ...os.Signal) *Closer {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Closer{
		logger:  logger.With("component", "closer"),
		timeout: timeout,
		done:    make(chan struct{}),
	}
	if len(sig) > 0 {
		go func() {
			ch := make(chan os.Signal, 1)
			signal.Notify(ch, sig...)
			defer signal.Stop(ch)

			select {
			case s := <-ch:
				c.logger.Info("shutting down", "signal", s.String())
				_ = c.Close()
			case <-c.done:
			}
		}()
	}
	return c
}

// Add registers fn under name. Hooks run concurrently and share the shutdown deadline.
func (c *Closer) Add(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook{name: name, fn: fn})
}

// Close runs the hooks once; later calls return the first result.
func (c *Closer) Close() error {
	c.once.Do(func() {
		defer close(c.done)

		c.mu.Lock()
		hooks := append([]hook(nil), c.hooks...)
		c.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		errs := make([]error, len(hooks))
		var wg sync.WaitGroup
		wg.Add(len(hooks))
		for i, h := range hooks {
			i, h := i, h // keep per-iteration semantics on go < 1.22
			go func() {
				defer wg.Done()
				if err := h.fn(ctx); err != nil {
					c.logger.Error("shutdown hook failed", "hook", h.name, "error", err)
					errs[i] = fmt.Errorf("%s: %w", h.name, err)
				}
			}()
		}
		wg.Wait()

		c.err = errors.Join(errs...)
	})
	return c.err
}
