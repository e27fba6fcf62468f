package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/semmidev/custos/internal/crypto"
	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/keystore"
	"github.com/semmidev/custos/internal/registry"
	"github.com/semmidev/custos/internal/retention"
	"github.com/semmidev/custos/internal/store"
)

// Runner executes one backup pipeline per Execution: Initialize, Dump,
// Upload, Retention, Finalize, with temp-file Cleanup deferred on every
// exit path. Dump and Upload failures are fatal to the execution;
// Retention and notification failures never are.
type Runner struct {
	store      store.Store
	registry   *registry.Registry
	keystore   *keystore.Manager
	crypter    domain.Crypter
	compressor domain.Compressor
	logger     Logger
	tempDir    string
}

func NewRunner(
	st store.Store,
	reg *registry.Registry,
	ks *keystore.Manager,
	crypter domain.Crypter,
	compressor domain.Compressor,
	logger Logger,
	tempDir string,
) *Runner {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Runner{
		store:      st,
		registry:   reg,
		keystore:   ks,
		crypter:    crypter,
		compressor: compressor,
		logger:     logger,
		tempDir:    tempDir,
	}
}

// RunJob is the manual-run entry point: it creates the Execution in
// Running state and drives the pipeline to a terminal status.
func (r *Runner) RunJob(ctx context.Context, jobID string) (*domain.Execution, error) {
	exec := domain.NewExecution(jobID, domain.StatusRunning)
	if err := r.store.CreateExecution(ctx, exec); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	err := r.Run(ctx, exec)
	return exec, err
}

// Run drives the pipeline for an Execution already in Running state
// (claimed by the queue manager or created by RunJob). The Execution
// always reaches Success or Failed; it is never left mid-flight short
// of the process being killed.
func (r *Runner) Run(ctx context.Context, exec *domain.Execution) error {
	rc := &RunnerContext{Execution: exec}
	defer r.cleanup(rc)

	fatal := r.initialize(ctx, rc)
	if fatal == nil {
		fatal = r.dump(ctx, rc)
	}
	if fatal == nil {
		fatal = r.upload(ctx, rc)
	}
	if fatal == nil {
		// Retention errors are logged inside; they never fail the run.
		r.retention(ctx, rc)
	}

	r.finalize(ctx, rc, fatal)
	return fatal
}

func (r *Runner) initialize(ctx context.Context, rc *RunnerContext) error {
	rc.setMeta("stage", "initializing")
	rc.setMeta("progress", "5")

	job, err := r.store.GetJob(ctx, rc.Execution.JobID)
	if err != nil {
		rc.logf("ERROR", "load job %s: %v", rc.Execution.JobID, err)
		return fmt.Errorf("load job %s: %w", rc.Execution.JobID, err)
	}
	rc.Job = job

	source, ok := r.registry.Source(job.SourceID)
	if !ok {
		rc.logf("ERROR", "source adapter %q not registered", job.SourceID)
		return fmt.Errorf("source adapter %q not registered", job.SourceID)
	}
	rc.Source = source

	dest, ok := r.registry.Destination(job.DestinationID)
	if !ok {
		rc.logf("ERROR", "destination adapter %q not registered", job.DestinationID)
		return fmt.Errorf("destination adapter %q not registered", job.DestinationID)
	}
	rc.Destination = dest

	rc.logf("INFO", "initialized job %q (source=%s destination=%s)",
		job.Name, job.SourceID, job.DestinationID)
	return nil
}

func (r *Runner) dump(ctx context.Context, rc *RunnerContext) error {
	rc.setMeta("stage", "dumping")
	rc.setMeta("progress", "25")

	if version, err := rc.Source.Version(ctx); err == nil {
		rc.setMeta("engineVersion", version)
	}

	filename := r.generateFilename(rc.Source)
	// Temp names carry the execution id so concurrent runs of the same
	// job never collide on disk.
	dumpPath := filepath.Join(r.tempDir, rc.Execution.ID+"_"+filename)
	rc.addTemp(dumpPath)
	rc.Filename = filename

	rc.logf("INFO", "dumping %s to %s", rc.Source.GetName(), dumpPath)
	if err := rc.Source.Backup(ctx, dumpPath); err != nil {
		rc.logf("ERROR", "dump failed: %v", err)
		return fmt.Errorf("dump: %w", err)
	}

	info, err := os.Stat(dumpPath)
	if err != nil {
		rc.logf("ERROR", "stat dump file: %v", err)
		return fmt.Errorf("stat dump file: %w", err)
	}
	rc.logf("INFO", "dump complete, size: %.2f MB", float64(info.Size())/(1024*1024))

	compressedPath := dumpPath + ".gz"
	if err := r.compressor.Compress(dumpPath, compressedPath); err != nil {
		rc.logf("ERROR", "compression failed: %v", err)
		return fmt.Errorf("compression: %w", err)
	}
	rc.addTemp(compressedPath)
	rc.Filename += ".gz"

	if rc.Job.EncryptionProfileID != "" {
		if err := r.encrypt(ctx, rc); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) encrypt(ctx context.Context, rc *RunnerContext) error {
	key, err := r.keystore.MasterKey(ctx, rc.Job.EncryptionProfileID)
	if err != nil {
		rc.logf("ERROR", "unwrap master key for profile %s: %v", rc.Job.EncryptionProfileID, err)
		return fmt.Errorf("unwrap master key: %w", err)
	}

	encryptedPath := rc.TempPath + ".enc"
	if err := crypto.EncryptFile(r.crypter, key, rc.TempPath, encryptedPath); err != nil {
		rc.logf("ERROR", "encryption failed: %v", err)
		return fmt.Errorf("encryption: %w", err)
	}
	rc.addTemp(encryptedPath)
	rc.Filename += ".enc"
	rc.logf("INFO", "artifact encrypted under profile %s", rc.Job.EncryptionProfileID)
	return nil
}

func (r *Runner) upload(ctx context.Context, rc *RunnerContext) error {
	rc.setMeta("stage", "uploading")
	rc.setMeta("progress", "60")

	rc.logf("INFO", "uploading %s to %s", rc.Filename, rc.Job.DestinationID)
	result, err := rc.Destination.Upload(ctx, rc.TempPath, rc.Filename)
	if err != nil {
		rc.logf("ERROR", "upload failed: %v", err)
		return fmt.Errorf("upload: %w", err)
	}
	rc.RemotePath = result.RemotePath
	rc.Size = result.Size
	rc.logf("INFO", "uploaded to %s (%d bytes)", result.RemotePath, result.Size)

	sidecar := domain.Sidecar{
		Locked:        false,
		JobID:         rc.Job.ID,
		ExecutionID:   rc.Execution.ID,
		EngineVersion: rc.Execution.Metadata["engineVersion"],
		Encrypted:     rc.Job.EncryptionProfileID != "",
	}
	data, err := json.Marshal(sidecar)
	if err == nil {
		err = rc.Destination.Write(ctx, domain.SidecarPath(result.RemotePath), data)
	}
	if err != nil {
		// The artifact itself is safe; a missing sidecar only means the
		// file starts out unlocked.
		rc.logf("WARN", "write sidecar: %v", err)
	}

	return nil
}

// retention applies the job's policy against the destination listing.
// It runs only after a successful upload of the current run, and all
// its failures are non-fatal.
func (r *Runner) retention(ctx context.Context, rc *RunnerContext) {
	policy := rc.Job.Retention
	if policy == nil || policy.Mode == "" || policy.Mode == domain.RetentionNone {
		return
	}

	rc.setMeta("stage", "retention")
	rc.setMeta("progress", "85")

	files, err := r.listArtifacts(ctx, rc.Destination)
	if err != nil {
		rc.logf("ERROR", "retention listing failed: %v", err)
		return
	}

	result := retention.Calculate(files, *policy)
	rc.logf("INFO", "retention (%s): keeping %d, deleting %d",
		policy.Mode, len(result.Keep), len(result.Delete))

	for _, f := range result.Delete {
		if err := rc.Destination.Delete(ctx, f.Path); err != nil {
			rc.logf("ERROR", "retention delete %s: %v", f.Path, err)
			continue
		}
		// A missing sidecar is normal, not an error.
		if err := rc.Destination.Delete(ctx, domain.SidecarPath(f.Path)); err != nil {
			r.logger.Debugf("retention: no sidecar removed for %s: %v", f.Path, err)
		}
		rc.logf("INFO", "retention deleted %s", f.Path)
	}
}

// listArtifacts lists the destination, drops sidecar entries, and
// resolves each artifact's lock flag from its sidecar.
func (r *Runner) listArtifacts(ctx context.Context, dest domain.Storage) ([]domain.FileInfo, error) {
	entries, err := dest.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list destination: %w", err)
	}

	var files []domain.FileInfo
	for _, entry := range entries {
		if domain.IsSidecar(entry.Name) {
			continue
		}

		data, err := dest.Read(ctx, domain.SidecarPath(entry.Path))
		if err == nil && data != nil {
			var sidecar domain.Sidecar
			if json.Unmarshal(data, &sidecar) == nil {
				entry.Locked = sidecar.Locked
			}
		}
		files = append(files, entry)
	}
	return files, nil
}

func (r *Runner) finalize(ctx context.Context, rc *RunnerContext, fatal error) {
	exec := rc.Execution
	now := time.Now()
	exec.EndedAt = &now
	rc.setMeta("stage", "finalizing")
	rc.setMeta("progress", "100")

	if fatal != nil {
		exec.Status = domain.StatusFailed
	} else {
		exec.Status = domain.StatusSuccess
	}
	if rc.Size > 0 {
		size := rc.Size
		exec.Size = &size
	}
	if rc.RemotePath != "" {
		remote := rc.RemotePath
		exec.RemotePath = &remote
	}
	exec.Log = append(exec.Log, rc.logLines...)

	if err := r.store.UpdateExecution(ctx, exec); err != nil {
		r.logger.Errorf("finalize execution %s: %v", exec.ID, err)
	}

	if rc.Job != nil {
		r.notify(ctx, rc)
	}

	duration := exec.EndedAt.Sub(exec.StartedAt).Round(time.Second)
	if fatal != nil {
		r.logger.Errorf("execution %s failed after %s: %v", exec.ID, duration, fatal)
	} else {
		r.logger.Infof("execution %s succeeded in %s: %s", exec.ID, duration, rc.RemotePath)
	}
}

// notify fans out to every bound channel independently. One channel's
// failure is logged and does not block the others or change the stored
// terminal status.
func (r *Runner) notify(ctx context.Context, rc *RunnerContext) {
	if !rc.Job.NotifyCondition.Matches(rc.Execution.Status) {
		return
	}

	message := r.notificationMessage(rc)

	g := new(errgroup.Group)
	for _, channelID := range rc.Job.ChannelIDs {
		channelID := channelID
		g.Go(func() error {
			channel, ok := r.registry.Channel(channelID)
			if !ok {
				r.logger.Warnf("notification channel %q not registered", channelID)
				return nil
			}
			if err := channel.Send(ctx, message); err != nil {
				r.logger.Errorf("notification via %s failed: %v", channelID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) notificationMessage(rc *RunnerContext) string {
	exec := rc.Execution
	if exec.Status == domain.StatusSuccess {
		var size float64
		if exec.Size != nil {
			size = float64(*exec.Size) / (1024 * 1024)
		}
		return fmt.Sprintf("✅ Backup %q succeeded\nFile: %s\nSize: %.2f MB",
			rc.Job.Name, rc.RemotePath, size)
	}
	return fmt.Sprintf("❌ Backup %q failed\nError: %s", rc.Job.Name, exec.LastError())
}

// cleanup removes every temp file the run produced. It runs on every
// exit path; removal failures are logged, never raised.
func (r *Runner) cleanup(rc *RunnerContext) {
	for _, path := range rc.tempFiles {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Warnf("cleanup %s: %v", path, err)
		}
	}
}

func (r *Runner) generateFilename(source domain.Database) string {
	timestamp := time.Now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s_%s", source.GetName(), source.GetType(), timestamp)

	ext := map[string]string{
		"mysql":      ".sql",
		"postgresql": ".dump",
		"mongodb":    ".archive",
	}[source.GetType()]

	if ext == "" {
		ext = ".backup"
	}

	return base + ext
}
