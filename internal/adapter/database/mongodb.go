package database

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/semmidev/custos/internal/config"
)

type MongoDBDatabase struct {
	config *config.SourceConfig
}

func NewMongoDB(cfg *config.SourceConfig) *MongoDBDatabase {
	return &MongoDBDatabase{config: cfg}
}

func (m *MongoDBDatabase) uri() string {
	uri := fmt.Sprintf("mongodb://%s:%s@%s:%d/%s",
		m.config.Username,
		m.config.Password,
		m.config.Host,
		m.config.Port,
		m.config.Database,
	)

	if m.config.AuthDatabase != "" {
		uri += fmt.Sprintf("?authSource=%s", m.config.AuthDatabase)
	}

	return uri
}

func (m *MongoDBDatabase) Backup(ctx context.Context, outputPath string) error {
	args := []string{
		fmt.Sprintf("--uri=%s", m.uri()),
		fmt.Sprintf("--archive=%s", outputPath),
		"--gzip",
	}

	cmd := exec.CommandContext(ctx, "mongodump", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mongodump failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (m *MongoDBDatabase) Restore(ctx context.Context, inputPath string) error {
	args := []string{
		fmt.Sprintf("--uri=%s", m.uri()),
		fmt.Sprintf("--archive=%s", inputPath),
		"--gzip",
		"--drop",
	}

	cmd := exec.CommandContext(ctx, "mongorestore", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mongorestore failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (m *MongoDBDatabase) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "mongosh", m.uri(), "--eval", "db.runCommand({ ping: 1 })")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mongodb ping failed: %w", err)
	}

	return nil
}

func (m *MongoDBDatabase) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "mongosh", m.uri(), "--quiet", "--eval", "db.version()")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("mongodb version probe failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

func (m *MongoDBDatabase) GetName() string {
	return m.config.Name
}

func (m *MongoDBDatabase) GetType() string {
	return "mongodb"
}
