// Package archive periodically snapshots the presence roster as JSONL and
// ships it to one or more destinations.
package archive

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alfredjeanlab/drivehub/internal/presence"
)

// Destination is a snapshot target (S3, local file).
type Destination interface {
	// Name identifies the destination in logs.
	Name() string
	// Write replaces the destination's snapshot with data.
	Write(ctx context.Context, data []byte) error
}

// Source supplies the roster to archive. *presence.Tracker implements it.
type Source interface {
	Roster(stale time.Duration) []presence.Entry
}

// Scheduler runs periodic snapshots to its destinations.
type Scheduler struct {
	source       Source
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger
	now          func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that snapshots source every interval.
func NewScheduler(source Source, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:       source,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
		now:          time.Now,
	}
}

// Start runs one snapshot immediately and then one per tick until Stop.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for an in-flight snapshot to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.SnapshotOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SnapshotOnce(ctx)
		}
	}
}

// SnapshotOnce exports the current roster to every destination. A failing
// destination is logged and does not stop the others.
func (s *Scheduler) SnapshotOnce(ctx context.Context) {
	var buf bytes.Buffer
	if err := ExportJSONL(&buf, s.source.Roster(0), s.now()); err != nil {
		s.logger.Error("archive export failed", "err", err)
		return
	}
	data := buf.Bytes()

	failed := 0
	for _, dest := range s.destinations {
		if err := dest.Write(ctx, data); err != nil {
			failed++
			s.logger.Error("archive destination write failed", "destination", dest.Name(), "err", err)
		}
	}

	s.logger.Info("archive snapshot completed",
		"destinations", len(s.destinations),
		"failed", failed,
		"bytes", len(data))
}
