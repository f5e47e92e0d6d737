package app

import (
	"errors"
	"fmt"

	"quiz-pilot/internal/adapter"
	"quiz-pilot/internal/adapter/executor"
	"quiz-pilot/internal/adapter/fetcher"
	"quiz-pilot/internal/adapter/httpclient"
	"quiz-pilot/internal/adapter/llm"
	"quiz-pilot/internal/adapter/media"
	"quiz-pilot/internal/adapter/submitter"
	"quiz-pilot/internal/cache"
	"quiz-pilot/internal/config"
	"quiz-pilot/internal/database"
	"quiz-pilot/internal/domain"
	"quiz-pilot/internal/repository"
	"quiz-pilot/internal/service"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	enrichedTextChars = 3000
	sheetMaxRows      = 500
)

// Options selects which backing stores Build connects to.
type Options struct {
	// Persistence opens the database, runs migrations and enables step
	// recording.
	Persistence bool
	// Cache connects to Redis for LLM reply caching, run locks and progress.
	Cache bool
	// SkipSolver leaves the LLM unconfigured, for extraction-only commands.
	SkipSolver bool
}

// Container holds the wired services shared by the API server and the CLI.
type Container struct {
	Config    *config.Config
	DB        *sqlx.DB
	Redis     *redis.Client
	Cache     domain.Cache
	Runs      domain.RunRepository
	Tx        domain.TransactionManager
	Extractor *service.ExtractorService
	Solver    *service.SolverService
	Submitter *service.SubmissionService
	Pipeline  *service.PipelineService

	logger *zap.Logger
}

// Build wires adapters and services from cfg. On failure everything opened
// so far is closed.
func Build(cfg *config.Config, log *zap.Logger, opts Options) (*Container, error) {
	c := &Container{Config: cfg, logger: log}
	if err := c.wire(opts); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) wire(opts Options) error {
	cfg, log := c.Config, c.logger

	if opts.Persistence {
		db, err := database.Open(cfg)
		if err != nil {
			return err
		}
		c.DB = db
		if err := database.RunMigrations(db, log); err != nil {
			return err
		}
		c.Runs = repository.NewRunDatabaseAdapter(db)
		c.Tx = repository.NewTransactionManagerAdapter(db)
		log.Info("Run store ready", zap.String("driver", cfg.DB.Driver))
	}

	if opts.Cache {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.Redis = client
		c.Cache = adapter.NewRedisCacheAdapter(client)
		log.Info("Connected to Redis", zap.String("address", cfg.Redis.Address))
	}

	browser := fetcher.NewBrowser(cfg.Browser, cfg.Scraper.UserAgent)
	c.Extractor = newExtractor(cfg, browser, log.Named("extractor"))
	c.Submitter = service.NewSubmissionService(newAnswerSubmitter(cfg, browser, log), log.Named("submitter"))

	if opts.SkipSolver {
		return nil
	}
	solver, err := newSolver(cfg, c.Cache, log.Named("solver"))
	if err != nil {
		return err
	}
	c.Solver = solver
	c.Pipeline = service.NewPipelineService(
		c.Extractor, c.Solver, c.Submitter,
		c.Runs, c.Tx, c.Cache,
		cfg.Pipeline, log.Named("pipeline"),
	)
	return nil
}

func newExtractor(cfg *config.Config, browser *fetcher.Browser, log *zap.Logger) *service.ExtractorService {
	client := httpclient.New(httpclient.Options{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Scraper.StaticTimeout,
	}, log)

	var renderer domain.PageRenderer
	if browser.Enabled() {
		renderer = fetcher.NewRenderer(browser)
	}

	var ocr domain.TextReader
	if cfg.OCR.Enabled {
		ocr = media.NewOCRReader(cfg.OCR.Languages)
	}

	var transcriber domain.Transcriber
	if cfg.Transcription.Enabled && cfg.Transcription.APIKey != "" {
		transcribeClient := httpclient.New(httpclient.Options{Timeout: cfg.Transcription.Timeout}, log)
		transcriber = media.NewWhisperTranscriber(transcribeClient, cfg.Transcription.BaseURL, cfg.Transcription.APIKey, cfg.Transcription.Model)
	}

	preview := media.NewPreviewReader(cfg.Scraper.PreviewBytes)
	enricher := service.NewMediaEnricher(
		media.NewPDFReader(),
		media.NewSheetReader(sheetMaxRows),
		ocr,
		preview,
		transcriber,
		enrichedTextChars,
		log,
	)
	enricher.CSV = media.NewCSVReader(preview)

	return service.NewExtractorService(
		fetcher.NewStaticFetcher(client),
		renderer,
		media.NewDownloader(client, cfg.Scraper.DownloadDir, cfg.Scraper.MaxAttachmentBytes),
		enricher,
		cfg.Scraper,
		cfg.Submitter.DefaultURL,
		log,
	)
}

func newSolver(cfg *config.Config, c domain.Cache, log *zap.Logger) (*service.SolverService, error) {
	client, err := llm.New(cfg.LLM, nil, log)
	if err != nil {
		return nil, err
	}

	var model domain.LLM = client
	if c != nil && cfg.LLM.CacheTTL > 0 {
		model = llm.NewCachedClient(client, c, cfg.LLM.Model, cfg.LLM.CacheTTL, log)
	}

	var exec domain.ScriptExecutor
	if cfg.Solver.Strategy == service.StrategyScript {
		exec = executor.NewScriptExecutor(cfg.Script.Python, cfg.Script.Timeout, log)
	}

	return service.NewSolverService(model, exec, cfg.Solver.Strategy, cfg.LLM.MaxAttempts, log), nil
}

func newAnswerSubmitter(cfg *config.Config, browser *fetcher.Browser, log *zap.Logger) domain.AnswerSubmitter {
	if cfg.Submitter.Mode == "browser" && browser.Enabled() {
		return submitter.NewBrowserSubmitter(browser)
	}
	client := httpclient.New(httpclient.Options{
		UserAgent: cfg.Scraper.UserAgent,
		Timeout:   cfg.Submitter.Timeout,
	}, log)
	return submitter.NewHTTPSubmitter(client)
}

// Close releases the database and Redis connections.
func (c *Container) Close() error {
	var errs []error
	if c.Redis != nil {
		errs = append(errs, c.Redis.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
