package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"quiz-pilot/internal/cache"
	"quiz-pilot/internal/config"
	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/util"

	"go.uber.org/zap"
)

// RunExecutor runs one quiz traversal.
type RunExecutor interface {
	Run(ctx context.Context, req domain.RunRequest) (*domain.RunSummary, error)
}

type queuedRun struct {
	run     *domain.Run
	req     domain.RunRequest
	lockKey string
}

// RunDispatcher accepts run requests and executes them on a fixed pool of
// workers fed by a bounded queue.
type RunDispatcher struct {
	pipeline RunExecutor
	repo     domain.RunRepository
	locks    domain.Cache
	cfg      config.PipelineConfig
	logger   *zap.Logger

	queue  chan queuedRun
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRunDispatcher starts cfg.Workers workers. locks may be nil, in which
// case duplicate runs are not detected.
func NewRunDispatcher(pipeline RunExecutor, repo domain.RunRepository, locks domain.Cache, cfg config.PipelineConfig, logger *zap.Logger) *RunDispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &RunDispatcher{
		pipeline: pipeline,
		repo:     repo,
		locks:    locks,
		cfg:      cfg,
		logger:   logger,
		queue:    make(chan queuedRun, cfg.QueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Enqueue validates the request, takes the duplicate-run lock, stores a
// queued Run and hands it to the worker pool without blocking. The returned
// Run is a snapshot in queued state; later transitions are only visible
// through the repository.
func (d *RunDispatcher) Enqueue(ctx context.Context, req domain.RunRequest) (*domain.Run, error) {
	pageURL, err := util.NormalizeURL(req.URL)
	if err != nil {
		return nil, domain.NewInvalidInputError("url must be an absolute http(s) URL").WithContext("url", req.URL)
	}
	req.URL = pageURL
	req.Email = strings.TrimSpace(req.Email)

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, domain.NewQueueFullError()
	}

	if req.RunID == "" {
		req.RunID = util.NewULID()
	}
	run := domain.NewRun(req.RunID, req.Email, req.URL)
	if err := run.Validate(); err != nil {
		return nil, err
	}

	lockKey := ""
	if d.locks != nil {
		lockKey = cache.RunLockKey(req.Email, req.URL)
		acquired, err := d.locks.SetNX(ctx, lockKey, run.ID, d.lockTTL())
		if err != nil {
			return nil, domain.NewInternalError("failed to acquire run lock", err)
		}
		if !acquired {
			return nil, domain.NewRunInProgressError(req.URL)
		}
	}

	if d.repo != nil {
		if err := d.repo.Create(ctx, run); err != nil {
			d.releaseLock(lockKey)
			return nil, domain.NewInternalError("failed to store run", err)
		}
	}

	// Workers mutate their own copy; the caller keeps the queued snapshot.
	queued := *run
	select {
	case d.queue <- queuedRun{run: &queued, req: req, lockKey: lockKey}:
		d.logger.Info("Run queued", zap.String("run_id", run.ID), zap.String("url", run.InitialURL))
		return run, nil
	default:
		d.releaseLock(lockKey)
		full := domain.NewQueueFullError()
		run.Finish(time.Now(), full)
		d.saveRun(run)
		return nil, full
	}
}

// Shutdown stops accepting runs and waits for queued and running ones to
// finish. When ctx ends first, running pipelines are cancelled.
func (d *RunDispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *RunDispatcher) worker(id int) {
	defer d.wg.Done()
	for item := range d.queue {
		d.execute(id, item)
	}
}

func (d *RunDispatcher) execute(workerID int, item queuedRun) {
	defer d.releaseLock(item.lockKey)

	run := item.run
	log := d.logger.With(zap.String("run_id", run.ID), zap.Int("worker", workerID))

	if err := d.ctx.Err(); err != nil {
		run.Finish(time.Now(), err)
		d.saveRun(run)
		return
	}

	d.refreshLock(item.lockKey, run.ID)
	run.MarkRunning(time.Now())
	d.saveRun(run)
	log.Info("Run started", zap.String("url", run.InitialURL))

	summary, err := d.pipeline.Run(d.ctx, item.req)
	if summary != nil {
		run.StepCount = summary.Steps
	}
	d.refreshStepCount(run)
	run.Finish(time.Now(), err)
	d.saveRun(run)

	if IsRunCanceled(err) {
		log.Warn("Run cancelled or timed out", zap.Error(err))
		return
	}
	if err != nil {
		log.Error("Run failed", zap.Error(err))
		return
	}
	log.Info("Run completed", zap.Int("steps", run.StepCount))
}

// refreshStepCount keeps the count written by the pipeline inside its step
// transactions when it is ahead of the in-memory copy.
func (d *RunDispatcher) refreshStepCount(run *domain.Run) {
	if d.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stored, err := d.repo.GetByID(ctx, run.ID)
	if err != nil || stored == nil {
		return
	}
	if stored.StepCount > run.StepCount {
		run.StepCount = stored.StepCount
	}
}

func (d *RunDispatcher) saveRun(run *domain.Run) {
	if d.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.repo.Update(ctx, run); err != nil {
		d.logger.Error("Failed to update run", zap.String("run_id", run.ID), zap.Error(err))
	}
}

// refreshLock restarts the lock TTL when a worker picks the run up. The
// pipeline deadline starts at the same moment.
func (d *RunDispatcher) refreshLock(key, runID string) {
	if key == "" || d.locks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.locks.Set(ctx, key, runID, d.lockTTL()); err != nil {
		d.logger.Warn("Failed to refresh run lock", zap.String("key", key), zap.Error(err))
	}
}

func (d *RunDispatcher) releaseLock(key string) {
	if key == "" || d.locks == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.locks.Delete(ctx, key); err != nil {
		d.logger.Warn("Failed to release run lock", zap.String("key", key), zap.Error(err))
	}
}

func (d *RunDispatcher) lockTTL() time.Duration {
	if d.cfg.RunTimeout > 0 {
		return d.cfg.RunTimeout
	}
	return 10 * time.Minute
}
