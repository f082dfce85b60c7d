package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/OCAP2/stats/internal/config"
	"github.com/OCAP2/stats/internal/dispatcher"
	"github.com/OCAP2/stats/internal/storage"
	"github.com/OCAP2/stats/internal/worker"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	workers    int
	quarantine string
	squadsFile string
}

type tally struct {
	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
	cancelled atomic.Int64
}

func newIngestCmd(a *app) *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest <file|dir>...",
		Short: "Decode replays and store their statistics",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(cmd, a, opts, args)
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", runtime.NumCPU(), "number of files processed concurrently")
	cmd.Flags().StringVar(&opts.quarantine, "quarantine", "", "move malformed replays here (overrides ingest.quarantineDir)")
	cmd.Flags().StringVar(&opts.squadsFile, "squads", "", "import this squad registry before ingesting")

	return cmd
}

func runIngest(cmd *cobra.Command, a *app, opts *ingestOptions, args []string) error {
	ctx := cmd.Context()

	files, err := collectReplays(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no replay files found")
	}

	engine := config.GetEngineConfig()
	quarantineDir := engine.QuarantineDir
	if opts.quarantine != "" {
		quarantineDir = opts.quarantine
	}

	backend, err := a.openBackend(ctx, config.GetStorageConfig())
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			a.Logger.Error("Failed to close storage backend", "error", err)
		}
	}()

	var metrics worker.MissionWriter
	if im := a.connectInflux(ctx); im != nil {
		metrics = im
		defer func() {
			if err := im.Close(); err != nil {
				a.Logger.Error("Failed to close InfluxDB", "error", err)
			}
		}()
	}

	manager, err := a.newManager(backend, metrics)
	if err != nil {
		return err
	}

	d, err := dispatcher.New(a.Logger)
	if err != nil {
		return fmt.Errorf("creating dispatcher: %w", err)
	}

	var t tally
	manager.RegisterHandlers(d, worker.HandlerOptions{
		Workers:   opts.workers,
		QueueSize: opts.workers * 2,
		OnResult: func(j dispatcher.Job, _ worker.Result, err error) {
			a.done.Add(1)
			switch {
			case err == nil:
				t.processed.Add(1)
			case errors.Is(err, worker.ErrDuplicateMission):
				t.skipped.Add(1)
			case errors.Is(err, context.Canceled):
				t.cancelled.Add(1)
			default:
				t.failed.Add(1)
				a.failed.Add(1)
				if worker.IsMalformed(err) && quarantineDir != "" {
					if qerr := quarantine(quarantineDir, j.Path); qerr != nil {
						a.Logger.Error("Failed to quarantine replay", "file", j.Path, "error", qerr)
					} else {
						a.Logger.Warn("Quarantined malformed replay", "file", j.Path, "dir", quarantineDir)
					}
				}
			}
		},
	})

	if opts.squadsFile != "" {
		if err := d.Dispatch(ctx, dispatcher.Job{Kind: worker.KindSquads, Path: opts.squadsFile}); err != nil {
			d.Close()
			return err
		}
	} else if err := manager.LoadRegistry(ctx, engine.SquadsFile); err != nil {
		a.Logger.Warn("Continuing without squad registry", "error", err)
	}

	a.Logger.Info("Ingesting replays", "files", len(files), "workers", opts.workers)
	queued := 0
	for _, f := range files {
		if ctx.Err() != nil {
			a.Logger.Warn("Interrupted, waiting for queued files", "queued", queued, "remaining", len(files)-queued)
			break
		}
		if err := d.Dispatch(ctx, dispatcher.Job{Kind: worker.KindReplay, Path: f}); err != nil {
			a.Logger.Error("Failed to queue replay", "file", f, "error", err)
			continue
		}
		queued++
	}
	d.Close()

	fmt.Fprintf(cmd.OutOrStdout(), "processed %d, skipped %d, failed %d, cancelled %d\n",
		t.processed.Load(), t.skipped.Load(), t.failed.Load(), t.cancelled.Load())
	if exp, ok := backend.(storage.Exporter); ok {
		for _, path := range exp.ExportedFiles() {
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s\n", path)
		}
	}
	if n := t.failed.Load(); n > 0 {
		return fmt.Errorf("%d replay(s) failed", n)
	}
	return nil
}

// collectReplays expands directories into the replay files they contain.
// Results are sorted and de-duplicated.
func collectReplays(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isReplay(d.Name()) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func isReplay(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".json") || strings.HasSuffix(name, ".json.gz")
}

// quarantine moves path into dir, keeping its base name.
func quarantine(dir, path string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(dir, filepath.Base(path)))
}
