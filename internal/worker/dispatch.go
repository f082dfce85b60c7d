package worker

import (
	"context"
	"errors"

	"github.com/OCAP2/stats/internal/dispatcher"
)

// Job kinds handled by the worker.
const (
	KindReplay = "replay"
	KindSquads = "squads"
)

// ResultFunc observes the outcome of every replay job.
type ResultFunc func(dispatcher.Job, Result, error)

// HandlerOptions tunes how replay jobs are queued.
type HandlerOptions struct {
	Workers   int
	QueueSize int
	OnResult  ResultFunc
}

// RegisterHandlers registers the replay and squad import handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher, opts HandlerOptions) {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}

	// Squad imports are sync so the registry is in place before replays queue up.
	d.Register(KindSquads, m.handleSquads, dispatcher.Logged())

	d.Register(KindReplay, func(ctx context.Context, j dispatcher.Job) error {
		res, err := m.handleReplay(ctx, j)
		if opts.OnResult != nil {
			opts.OnResult(j, res, err)
		}
		if errors.Is(err, ErrDuplicateMission) {
			return nil
		}
		return err
	}, dispatcher.Buffered(opts.QueueSize), dispatcher.Workers(opts.Workers), dispatcher.Blocking(), dispatcher.Logged())
}

// handleReplay skips jobs that start after cancellation. A started file runs
// to completion.
func (m *Manager) handleReplay(ctx context.Context, j dispatcher.Job) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{File: j.Path}, err
	}
	return m.ProcessFile(context.WithoutCancel(ctx), j.Path)
}

func (m *Manager) handleSquads(ctx context.Context, j dispatcher.Job) error {
	n, err := m.ImportSquads(ctx, j.Path)
	if err != nil {
		return err
	}
	m.deps.LogManager.Logger().Info("Squads imported", "file", j.Path, "count", n)
	return nil
}
