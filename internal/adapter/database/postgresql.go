package database

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/semmidev/custos/internal/config"
)

type PostgreSQLDatabase struct {
	config *config.SourceConfig
}

func NewPostgreSQL(cfg *config.SourceConfig) *PostgreSQLDatabase {
	return &PostgreSQLDatabase{config: cfg}
}

func (p *PostgreSQLDatabase) env() []string {
	return append(os.Environ(), fmt.Sprintf("PGPASSWORD=%s", p.config.Password))
}

func (p *PostgreSQLDatabase) Backup(ctx context.Context, outputPath string) error {
	cmd := exec.CommandContext(ctx, "pg_dump",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		"--format=custom",
		"--compress=9",
		fmt.Sprintf("--file=%s", outputPath),
		p.config.Database,
	)
	cmd.Env = p.env()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_dump failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (p *PostgreSQLDatabase) Restore(ctx context.Context, inputPath string) error {
	cmd := exec.CommandContext(ctx, "pg_restore",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		"--clean",
		"--if-exists",
		fmt.Sprintf("--dbname=%s", p.config.Database),
		inputPath,
	)
	cmd.Env = p.env()

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pg_restore failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (p *PostgreSQLDatabase) Ping(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "psql",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		"--dbname=postgres",
		"-c", "SELECT 1",
	)
	cmd.Env = p.env()

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("postgresql ping failed: %w", err)
	}

	return nil
}

func (p *PostgreSQLDatabase) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "psql",
		fmt.Sprintf("--host=%s", p.config.Host),
		fmt.Sprintf("--port=%d", p.config.Port),
		fmt.Sprintf("--username=%s", p.config.Username),
		"--dbname=postgres",
		"--tuples-only", "--no-align",
		"-c", "SHOW server_version",
	)
	cmd.Env = p.env()

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("postgresql version probe failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

func (p *PostgreSQLDatabase) GetName() string {
	return p.config.Name
}

func (p *PostgreSQLDatabase) GetType() string {
	return "postgresql"
}
