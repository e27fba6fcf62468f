package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/semmidev/custos/internal/crypto"
	"github.com/semmidev/custos/internal/domain"
	"github.com/semmidev/custos/internal/keystore"
	"github.com/semmidev/custos/internal/registry"
)

// Restore brings an artifact back into its source database: download,
// decrypt when the sidecar marks it encrypted, decompress, then feed
// the dump to the engine's restore tool. This is the second (and last)
// sanctioned caller of keystore.MasterKey.
type Restore struct {
	registry   *registry.Registry
	keystore   *keystore.Manager
	crypter    domain.Crypter
	compressor domain.Compressor
	logger     Logger
	tempDir    string
}

func NewRestore(
	reg *registry.Registry,
	ks *keystore.Manager,
	crypter domain.Crypter,
	compressor domain.Compressor,
	logger Logger,
	tempDir string,
) *Restore {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Restore{
		registry:   reg,
		keystore:   ks,
		crypter:    crypter,
		compressor: compressor,
		logger:     logger,
		tempDir:    tempDir,
	}
}

// Execute restores remotePath from a destination into a source, using
// the job's encryption profile when the artifact was encrypted.
func (r *Restore) Execute(ctx context.Context, job *domain.Job, remotePath string) error {
	dest, ok := r.registry.Destination(job.DestinationID)
	if !ok {
		return fmt.Errorf("destination adapter %q not registered", job.DestinationID)
	}
	source, ok := r.registry.Source(job.SourceID)
	if !ok {
		return fmt.Errorf("source adapter %q not registered", job.SourceID)
	}

	localPath := filepath.Join(r.tempDir, filepath.Base(remotePath))
	tempFiles := []string{localPath}
	defer func() {
		for _, path := range tempFiles {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				r.logger.Warnf("restore cleanup %s: %v", path, err)
			}
		}
	}()

	r.logger.Infof("restore: downloading %s", remotePath)
	if err := dest.Download(ctx, remotePath, localPath); err != nil {
		return fmt.Errorf("download: %w", err)
	}

	encrypted := strings.HasSuffix(localPath, ".enc")
	if data, err := dest.Read(ctx, domain.SidecarPath(remotePath)); err == nil && data != nil {
		var sidecar domain.Sidecar
		if json.Unmarshal(data, &sidecar) == nil {
			encrypted = sidecar.Encrypted
		}
	}

	if encrypted {
		if job.EncryptionProfileID == "" {
			return fmt.Errorf("artifact is encrypted but job %s binds no encryption profile", job.ID)
		}
		key, err := r.keystore.MasterKey(ctx, job.EncryptionProfileID)
		if err != nil {
			return fmt.Errorf("unwrap master key: %w", err)
		}

		decryptedPath := strings.TrimSuffix(localPath, ".enc")
		if decryptedPath == localPath {
			decryptedPath = localPath + ".dec"
		}
		if err := crypto.DecryptFile(r.crypter, key, localPath, decryptedPath); err != nil {
			return fmt.Errorf("decrypt: %w", err)
		}
		tempFiles = append(tempFiles, decryptedPath)
		localPath = decryptedPath
	}

	if strings.HasSuffix(localPath, ".gz") {
		plainPath := strings.TrimSuffix(localPath, ".gz")
		if err := r.compressor.Decompress(localPath, plainPath); err != nil {
			return fmt.Errorf("decompress: %w", err)
		}
		tempFiles = append(tempFiles, plainPath)
		localPath = plainPath
	}

	r.logger.Infof("restore: loading dump into %s", source.GetName())
	if err := source.Restore(ctx, localPath); err != nil {
		return fmt.Errorf("restore: %w", err)
	}

	r.logger.Infof("restore of %s complete", remotePath)
	return nil
}
