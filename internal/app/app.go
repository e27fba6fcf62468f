package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/semmidev/custos/internal/adapter/compressor"
	"github.com/semmidev/custos/internal/adapter/database"
	"github.com/semmidev/custos/internal/adapter/notifier"
	"github.com/semmidev/custos/internal/adapter/storage"
	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/crypto"
	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/infrastructure/logger"
	"github.com/semmidev/custos/internal/infrastructure/scheduler"
	"github.com/semmidev/custos/internal/keystore"
	"github.com/semmidev/custos/internal/registry"
	"github.com/semmidev/custos/internal/store"
	"github.com/semmidev/custos/internal/store/memory"
	"github.com/semmidev/custos/internal/store/postgres"
	"github.com/semmidev/custos/internal/usecase"
)

type App struct {
	config        *config.Config
	settings      *config.Settings
	logger        *logger.Logger
	scheduler     *scheduler.Scheduler
	store         store.Store
	pg            *postgres.Store
	registry      *registry.Registry
	keystore      *keystore.Manager
	runner        *usecase.Runner
	queue         *usecase.Queue
	restore       *usecase.Restore
	sweepInterval time.Duration
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)
	log.Infof("Found %d enabled job(s)", len(cfg.GetEnabledJobs()))

	settings := config.NewSettings(cfg)
	cfg.Watch(func(next *config.Config) {
		settings.Apply(next)
		log.Infof("Config reloaded: max_concurrent_jobs=%d", next.Queue.MaxConcurrentJobs)
	})

	st, pg, err := initializeStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	initializeSources(ctx, cfg, reg, log)
	if err := initializeDestinations(cfg, reg, log); err != nil {
		return nil, err
	}
	initializeChannels(cfg, reg, log)

	crypter := crypto.NewChaCha()
	ks, err := initializeKeystore(cfg, st, crypter, log)
	if err != nil {
		return nil, err
	}

	comp := compressor.NewGzip()
	runner := usecase.NewRunner(st, reg, ks, crypter, comp, log.Named("runner"), cfg.App.TempDir)
	queue := usecase.NewQueue(st, settings, runner, log.Named("queue"))
	restore := usecase.NewRestore(reg, ks, crypter, comp, log.Named("restore"), cfg.App.TempDir)

	if err := seedJobs(ctx, cfg, st); err != nil {
		return nil, err
	}
	warnSharedDestinations(cfg, log)

	sweepInterval, err := time.ParseDuration(cfg.Queue.SweepInterval)
	if err != nil {
		return nil, fmt.Errorf("invalid queue.sweep_interval %q: %w", cfg.Queue.SweepInterval, err)
	}

	return &App{
		config:        cfg,
		settings:      settings,
		logger:        log,
		scheduler:     scheduler.New(),
		store:         st,
		pg:            pg,
		registry:      reg,
		keystore:      ks,
		runner:        runner,
		queue:         queue,
		restore:       restore,
		sweepInterval: sweepInterval,
	}, nil
}

func initializeStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (store.Store, *postgres.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		pg, err := postgres.New(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to postgres store: %w", err)
		}
		if err := pg.Migrate(ctx); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate postgres store: %w", err)
		}
		log.Infof("✓ Using postgres store")
		return pg, pg, nil
	case "", "memory":
		log.Infof("✓ Using in-memory store (state is lost on restart)")
		return memory.New(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver: %s", cfg.Store.Driver)
	}
}

func initializeSources(ctx context.Context, cfg *config.Config, reg *registry.Registry, log *logger.Logger) {
	for _, srcCfg := range cfg.Sources {
		var db domain.Database

		switch srcCfg.Type {
		case "mysql":
			db = database.NewMySQL(&srcCfg)
		case "postgresql":
			db = database.NewPostgreSQL(&srcCfg)
		case "mongodb":
			db = database.NewMongoDB(&srcCfg)
		default:
			log.Warnf("Unsupported source type: %s for %s", srcCfg.Type, srcCfg.ID)
			continue
		}

		if err := db.Ping(ctx); err != nil {
			log.Errorf("Failed to connect to %s: %v", srcCfg.ID, err)
		} else {
			log.Infof("✓ Connected to %s (%s)", srcCfg.Name, srcCfg.Type)
		}

		// Registered even when the ping failed: the database may come
		// back before the next scheduled run.
		reg.RegisterSource(srcCfg.ID, db)
	}
}

func initializeDestinations(cfg *config.Config, reg *registry.Registry, log *logger.Logger) error {
	for _, destCfg := range cfg.Destinations {
		var stor domain.Storage
		var err error

		switch destCfg.Type {
		case "local":
			stor, err = storage.NewLocal(destCfg.Path)
			if err != nil {
				return fmt.Errorf("failed to initialize local destination %s: %w", destCfg.ID, err)
			}
			log.Infof("✓ Local destination %s: %s", destCfg.ID, destCfg.Path)

		case "s3":
			stor, err = storage.NewS3(&destCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize S3 destination %s: %w", destCfg.ID, err)
			}
			log.Infof("✓ S3 destination %s (bucket: %s)", destCfg.ID, destCfg.Bucket)

		case "gdrive":
			stor, err = storage.NewGDrive(&destCfg)
			if err != nil {
				return fmt.Errorf("failed to initialize Google Drive destination %s: %w", destCfg.ID, err)
			}
			log.Infof("✓ Google Drive destination %s", destCfg.ID)

		default:
			log.Warnf("Unknown destination type: %s for %s", destCfg.Type, destCfg.ID)
			continue
		}

		reg.RegisterDestination(destCfg.ID, stor)
	}
	return nil
}

func initializeChannels(cfg *config.Config, reg *registry.Registry, log *logger.Logger) {
	for _, chCfg := range cfg.Channels {
		var n domain.Notifier
		var err error

		switch chCfg.Type {
		case "telegram":
			n, err = notifier.NewTelegram(&chCfg)
			if err != nil {
				log.Errorf("Failed to initialize Telegram channel %s: %v", chCfg.ID, err)
				continue
			}
			log.Infof("✓ Telegram channel %s enabled", chCfg.ID)

		case "webhook":
			n = notifier.NewWebhook(&chCfg)
			log.Infof("✓ Webhook channel %s enabled", chCfg.ID)

		default:
			log.Warnf("Unknown channel type: %s for %s", chCfg.Type, chCfg.ID)
			continue
		}

		reg.RegisterChannel(chCfg.ID, n)
	}
}

func initializeKeystore(cfg *config.Config, st store.Store, crypter domain.Crypter, log *logger.Logger) (*keystore.Manager, error) {
	var rootKey []byte
	if cfg.Keystore.RootKeyHex != "" {
		var err error
		rootKey, err = hex.DecodeString(cfg.Keystore.RootKeyHex)
		if err != nil {
			return nil, fmt.Errorf("keystore.root_key is not valid hex: %w", err)
		}
	} else {
		// Wrapped profile keys made under an ephemeral root key cannot
		// be unwrapped after a restart.
		rootKey = make([]byte, domain.MasterKeySize)
		if _, err := rand.Read(rootKey); err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral root key: %w", err)
		}
		log.Warnf("keystore.root_key not set, using an ephemeral root key")
	}

	ks, err := keystore.New(st, crypter, rootKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keystore: %w", err)
	}
	return ks, nil
}

// seedJobs writes the configured jobs into the store so executions can
// resolve them by ID.
func seedJobs(ctx context.Context, cfg *config.Config, st store.Store) error {
	for _, jobCfg := range cfg.Jobs {
		job := jobFromConfig(jobCfg)
		if err := st.PutJob(ctx, job); err != nil {
			return fmt.Errorf("failed to store job %s: %w", jobCfg.ID, err)
		}
	}
	return nil
}

func jobFromConfig(jc config.JobConfig) *domain.Job {
	condition := domain.NotifyCondition(jc.NotifyCondition)
	if condition == "" {
		condition = domain.NotifyAlways
	}

	mode := domain.RetentionMode(jc.Retention.Mode)
	if mode == "" {
		mode = domain.RetentionNone
	}

	return &domain.Job{
		ID:                  jc.ID,
		Name:                jc.Name,
		SourceID:            jc.Source,
		DestinationID:       jc.Destination,
		EncryptionProfileID: jc.EncryptionProfile,
		NotifyCondition:     condition,
		ChannelIDs:          jc.Channels,
		Retention: &domain.RetentionPolicy{
			Mode:        mode,
			KeepCount:   jc.Retention.KeepCount,
			MaxAgeDays:  jc.Retention.MaxAgeDays,
			KeepDaily:   jc.Retention.KeepDaily,
			KeepWeekly:  jc.Retention.KeepWeekly,
			KeepMonthly: jc.Retention.KeepMonthly,
		},
	}
}

// warnSharedDestinations flags enabled jobs that write to the same
// destination: their retention passes see each other's artifacts, so a
// tight policy on one job can delete the other's backups.
func warnSharedDestinations(cfg *config.Config, log *logger.Logger) {
	byDest := map[string][]string{}
	for _, jobCfg := range cfg.GetEnabledJobs() {
		byDest[jobCfg.Destination] = append(byDest[jobCfg.Destination], jobCfg.ID)
	}
	for dest, ids := range byDest {
		if len(ids) > 1 {
			log.Warnf("jobs %v share destination %s: retention policies apply across all of their artifacts", ids, dest)
		}
	}
}

func (a *App) Run(ctx context.Context) error {
	jobs := a.config.GetEnabledJobs()
	a.logger.Infof("Application started with %d scheduled job(s)", len(jobs))

	for _, jobCfg := range jobs {
		jobID := jobCfg.ID
		jobName := jobCfg.Name

		if err := a.scheduler.AddJob(jobCfg.Schedule, func(ctx context.Context) error {
			a.logger.Infof("=== Triggered scheduled backup for %s ===", jobName)
			if _, err := a.queue.Enqueue(ctx, jobID); err != nil {
				return err
			}
			return a.queue.ProcessQueue(ctx)
		}); err != nil {
			return fmt.Errorf("failed to schedule job %s: %w", jobID, err)
		}
		a.logger.Infof("✓ Scheduled %s: %s", jobName, jobCfg.Schedule)
	}

	// Periodic sweep picks up executions that were enqueued while all
	// slots were taken.
	if err := a.scheduler.AddEvery(a.sweepInterval, a.queue.ProcessQueue); err != nil {
		return fmt.Errorf("failed to schedule queue sweep: %w", err)
	}
	a.logger.Infof("Queue sweep every %s, max %d concurrent job(s)",
		a.sweepInterval, a.settings.MaxConcurrentJobs())

	a.scheduler.Start()
	a.logger.Infof("Scheduler started successfully")

	<-ctx.Done()
	return nil
}

// RunJobNow bypasses the schedule: it enqueues the job and immediately
// sweeps the queue.
func (a *App) RunJobNow(ctx context.Context, jobID string) error {
	if _, err := a.queue.Enqueue(ctx, jobID); err != nil {
		return err
	}
	return a.queue.ProcessQueue(ctx)
}

// RestoreJob pulls remotePath from the job's destination back into its
// source database.
func (a *App) RestoreJob(ctx context.Context, jobID, remotePath string) error {
	job, err := a.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("unknown job %s: %w", jobID, err)
	}
	return a.restore.Execute(ctx, job, remotePath)
}

// CreateEncryptionProfile mints a profile whose master key is wrapped
// under the configured root key, and returns its ID for use in job
// configs.
func (a *App) CreateEncryptionProfile(ctx context.Context, name string) (string, error) {
	profile, err := a.keystore.Create(ctx, name, "")
	if err != nil {
		return "", err
	}
	a.logger.Infof("created encryption profile %s (%s)", profile.ID, profile.Name)
	return profile.ID, nil
}

// ToggleArtifactLock flips an artifact's retention lock on the job's
// destination and returns the new state.
func (a *App) ToggleArtifactLock(ctx context.Context, jobID, artifactPath string) (bool, error) {
	job, err := a.store.GetJob(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("unknown job %s: %w", jobID, err)
	}
	dest, ok := a.registry.Destination(job.DestinationID)
	if !ok {
		return false, fmt.Errorf("destination adapter %q not registered", job.DestinationID)
	}
	return usecase.ToggleLock(ctx, dest, artifactPath)
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.scheduler.Stop()
	if a.pg != nil {
		a.pg.Close()
	}
	a.logger.Close()
}
