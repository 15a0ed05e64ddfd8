// Package pipeline orchestrates the staged storage flow: intake from author
// outputs, metadata stamping, storage preparation, registry sync, and
// archival into the per-backend trees.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"sceneflow/internal/config"
	"sceneflow/internal/logging"
	"sceneflow/internal/metadata"
	"sceneflow/internal/mover"
	"sceneflow/internal/ownership"
	"sceneflow/internal/prepare"
	"sceneflow/internal/registry"
	"sceneflow/internal/report"
	"sceneflow/internal/services"
)

const lockFileName = "sceneflow.lock"

// errNotEligible marks keys held back by the archive success gate.
var errNotEligible = errors.New("reconstruction not successful")

// Options configures a batch run.
type Options struct {
	Keys []string
	// IntakeKeys narrows the intake stage to a subset of Keys; keys outside
	// it are expected to be staged already and still flow through the later
	// stages. Empty means intake runs over all of Keys.
	IntakeKeys []string
	Author     string
	Week       string
	// From is the first stage to execute; earlier stages show as not run.
	From Stage
	// Backend selects the archive tree; empty uses the configured default.
	Backend string
	// RequireSuccess holds keys without a successful reconstruction back
	// from archival.
	RequireSuccess bool
	// Out receives the progress table. Defaults to stdout.
	Out io.Writer
	// Owner overrides the ownership changer derived from configuration.
	Owner ownership.Changer
}

// Summary is the outcome of a batch run.
type Summary struct {
	RunDir string
	Stages map[Stage]*report.Report
}

// AllSucceeded reports whether no key failed in any executed stage.
func (s *Summary) AllSucceeded() bool {
	for _, rep := range s.Stages {
		if !rep.AllSucceeded() {
			return false
		}
	}
	return true
}

// Runner executes pipeline stages over a fixed key batch.
type Runner struct {
	cfg     *config.Config
	logger  *slog.Logger
	opts    Options
	owner   ownership.Changer
	backend string
	out     io.Writer
}

// New validates the batch options against the configuration.
func New(cfg *config.Config, logger *slog.Logger, opts Options) (*Runner, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if len(opts.Keys) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "no keys to process", nil)
	}
	if opts.From == 0 {
		opts.From = StageIntake
	}
	if _, ok := stageNames[opts.From]; !ok {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", fmt.Sprintf("invalid start stage %d", opts.From), nil)
	}
	if opts.From <= StageMetadata {
		if strings.TrimSpace(opts.Author) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "author is required", nil)
		}
		if strings.TrimSpace(opts.Week) == "" {
			return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", "week is required", nil)
		}
	}

	backend := strings.TrimSpace(opts.Backend)
	if backend == "" {
		backend = cfg.Archive.DefaultBackend
	}
	if !cfg.KnownBackend(backend) {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "new", fmt.Sprintf("unknown backend %q", backend), nil)
	}

	owner := opts.Owner
	if owner == nil {
		owner = ownership.New(cfg.Ownership.Helper, logger)
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	return &Runner{
		cfg:     cfg,
		logger:  logger,
		opts:    opts,
		owner:   owner,
		backend: backend,
		out:     out,
	}, nil
}

// Run executes every stage from the configured start through archival.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	var stages []Stage
	for _, stage := range Stages() {
		if stage >= r.opts.From {
			stages = append(stages, stage)
		}
	}
	return r.run(ctx, stages)
}

// RunSingle executes exactly one stage, for the standalone stage commands.
func (r *Runner) RunSingle(ctx context.Context, stage Stage) (*Summary, error) {
	return r.run(ctx, []Stage{stage})
}

func (r *Runner) run(ctx context.Context, stages []Stage) (*Summary, error) {
	if err := r.cfg.EnsureDirectories(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "run", "prepare directories", err)
	}

	lock := flock.New(filepath.Join(r.cfg.Paths.LogDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !ok {
		return nil, errors.New("another sceneflow batch is already running")
	}
	defer func() { _ = lock.Unlock() }()

	runID := fmt.Sprintf("%s-%s", time.Now().UTC().Format("20060102-150405"), uuid.NewString()[:8])
	runDir := filepath.Join(r.cfg.Paths.LogDir, "runs", runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run directory: %w", err)
	}
	r.logger.Info("batch started",
		logging.String(logging.FieldRunID, runID),
		logging.Int("keys", len(r.opts.Keys)))

	prog := newProgress(r.opts.Keys, r.out)
	executing := make(map[Stage]bool, len(stages))
	for _, stage := range stages {
		executing[stage] = true
	}
	for _, stage := range Stages() {
		if !executing[stage] {
			prog.markAll(stage, CellNotRun)
		}
	}
	prog.render()

	summary := &Summary{RunDir: runDir, Stages: make(map[Stage]*report.Report, len(stages))}
	for i, stage := range stages {
		stageLogger, logFile, err := r.stageLogger(runDir, stage)
		if err != nil {
			return summary, err
		}

		rep := report.New()
		fatal := r.runStage(ctx, stage, rep, stageLogger)
		_ = logFile.Close()
		summary.Stages[stage] = rep
		prog.apply(stage, rep)
		for _, key := range r.opts.Keys {
			if _, ok := rep.Result(key); !ok {
				prog.mark(key, stage, CellNotRun)
			}
		}

		if fatal != nil {
			for _, rest := range stages[i+1:] {
				prog.markAll(rest, CellNotRun)
			}
			prog.render()
			r.logger.Error("batch aborted",
				logging.String(logging.FieldStage, stage.String()),
				logging.Error(fatal))
			return summary, fatal
		}
		prog.render()
	}

	r.logger.Info("batch finished", logging.String(logging.FieldRunID, runID))
	return summary, nil
}

func (r *Runner) stageLogger(runDir string, stage Stage) (*slog.Logger, io.Closer, error) {
	path := filepath.Join(runDir, stage.String()+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
	if err != nil {
		return nil, nil, fmt.Errorf("open stage log: %w", err)
	}
	logger, err := logging.NewWriterLogger(file, logging.Options{
		Level:  r.cfg.Logging.Level,
		Format: "console",
	})
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}
	return logging.NewComponentLogger(logger, stage.String()), file, nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, rep *report.Report, logger *slog.Logger) error {
	handler, cleanup, err := r.stageHandler(stage, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	for _, key := range r.stageKeys(stage) {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := handler(ctx, key)
		switch {
		case err == nil:
			rep.Succeed(key)
			logger.Info("key processed", logging.String(logging.FieldKey, key))
		case errors.Is(err, errNotEligible):
			rep.Skip(key, errNotEligible.Error())
			logger.Warn("key held back", logging.String(logging.FieldKey, key), logging.Error(err))
		case services.Fatal(err):
			rep.Fail(key, err)
			logger.Error("fatal failure", logging.String(logging.FieldKey, key), logging.Error(err))
			return err
		default:
			rep.Record(key, err)
			if reason, skipped := services.SkipReason(err); skipped {
				logger.Warn("key skipped",
					logging.String(logging.FieldKey, key),
					logging.String("reason", reason))
			} else {
				logger.Error("key failed", logging.String(logging.FieldKey, key), logging.Error(err))
			}
		}
	}
	return nil
}

// stageKeys returns the keys one stage iterates. Only intake honors the
// narrower IntakeKeys set.
func (r *Runner) stageKeys(stage Stage) []string {
	if stage == StageIntake && len(r.opts.IntakeKeys) > 0 {
		return r.opts.IntakeKeys
	}
	return r.opts.Keys
}

type keyHandler func(ctx context.Context, key string) error

func (r *Runner) stageHandler(stage Stage, logger *slog.Logger) (keyHandler, func(), error) {
	switch stage {
	case StageIntake:
		return func(ctx context.Context, key string) error {
			return r.intakeKey(ctx, key, logger)
		}, nil, nil
	case StageMetadata:
		return func(_ context.Context, key string) error {
			return r.stampMetadata(key)
		}, nil, nil
	case StagePrepare:
		return func(ctx context.Context, key string) error {
			return prepare.Run(ctx, r.stagingPath(key), logger)
		}, nil, nil
	case StageSync:
		store, err := registry.Open(r.cfg.Paths.RegistryPath)
		if err != nil {
			return nil, nil, services.Wrap(services.ErrConfiguration, stage.String(), "open registry", "", err)
		}
		handler := func(ctx context.Context, key string) error {
			_, err := registry.SyncKey(ctx, store, r.stagingPath(key), logger)
			return err
		}
		return handler, func() { _ = store.Close() }, nil
	case StageArchive:
		return func(ctx context.Context, key string) error {
			return r.archiveKey(ctx, key, logger)
		}, nil, nil
	default:
		return nil, nil, fmt.Errorf("unhandled stage %s", stage)
	}
}

func (r *Runner) stagingPath(key string) string {
	return filepath.Join(r.cfg.Paths.StagingDir, key)
}

func (r *Runner) intakeKey(ctx context.Context, key string, logger *slog.Logger) error {
	src := filepath.Join(r.cfg.AuthorOutputsDir(r.opts.Author), key)
	opts := mover.Options{
		ChangeOwner: func(ctx context.Context, path string) error {
			id := ownership.Identity{UID: r.cfg.Ownership.StagingUID, GID: r.cfg.Ownership.StagingGID}
			return r.owner.Change(ctx, path, id)
		},
	}
	return mover.Move(ctx, src, r.stagingPath(key), opts, logger)
}

func (r *Runner) stampMetadata(key string) error {
	keyDir := r.stagingPath(key)
	if _, err := os.Stat(keyDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: key %s is not staged", services.ErrNotFound, key)
		}
		return fmt.Errorf("stat staged key: %w", err)
	}
	_, err := metadata.MergeAndSave(keyDir, map[string]any{
		metadata.FieldAuthor: r.opts.Author,
		metadata.FieldStatus: metadata.StatusPending,
		metadata.FieldWeek:   r.opts.Week,
	})
	return err
}

func (r *Runner) archiveKey(ctx context.Context, key string, logger *slog.Logger) error {
	keyDir := r.stagingPath(key)
	if _, err := os.Stat(keyDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: key %s is not staged", services.ErrNotFound, key)
		}
		return fmt.Errorf("stat staged key: %w", err)
	}

	record, err := metadata.Load(keyDir)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	week := record.Week()
	if week == "" {
		week = r.opts.Week
	}
	author := record.Author()
	if author == "" {
		author = r.opts.Author
	}
	if week == "" || author == "" {
		return fmt.Errorf("metadata for %s lacks week or author", key)
	}
	if r.opts.RequireSuccess && !record.ReconstructionSucceeded() {
		return fmt.Errorf("%w: key %s", errNotEligible, key)
	}

	dst := filepath.Join(r.cfg.BackendRoot(r.backend), week, author, key)
	return mover.Move(ctx, keyDir, dst, mover.Options{}, logger)
}
