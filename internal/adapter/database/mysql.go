package database

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/semmidev/custos/internal/config"
)

type MySQLDatabase struct {
	config *config.SourceConfig
}

func NewMySQL(cfg *config.SourceConfig) *MySQLDatabase {
	return &MySQLDatabase{config: cfg}
}

func (m *MySQLDatabase) connArgs() []string {
	return []string{
		fmt.Sprintf("--host=%s", m.config.Host),
		fmt.Sprintf("--port=%d", m.config.Port),
		fmt.Sprintf("--user=%s", m.config.Username),
		fmt.Sprintf("--password=%s", m.config.Password),
	}
}

func (m *MySQLDatabase) Backup(ctx context.Context, outputPath string) error {
	args := append(m.connArgs(),
		"--single-transaction",
		"--quick",
		"--lock-tables=false",
		"--routines",
		"--triggers",
		"--events",
		fmt.Sprintf("--result-file=%s", outputPath),
		m.config.Database,
	)

	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mysqldump failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (m *MySQLDatabase) Restore(ctx context.Context, inputPath string) error {
	dump, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open dump file: %w", err)
	}
	defer dump.Close()

	args := append(m.connArgs(), m.config.Database)
	cmd := exec.CommandContext(ctx, "mysql", args...)
	cmd.Stdin = dump

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("mysql restore failed: %w, output: %s", err, string(output))
	}

	return nil
}

func (m *MySQLDatabase) Ping(ctx context.Context) error {
	args := append(m.connArgs(), "-e", "SELECT 1")

	cmd := exec.CommandContext(ctx, "mysql", args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mysql ping failed: %w", err)
	}

	return nil
}

func (m *MySQLDatabase) Version(ctx context.Context) (string, error) {
	args := append(m.connArgs(), "--silent", "--skip-column-names", "-e", "SELECT VERSION()")

	cmd := exec.CommandContext(ctx, "mysql", args...)
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("mysql version probe failed: %w", err)
	}

	return strings.TrimSpace(string(output)), nil
}

func (m *MySQLDatabase) GetName() string {
	return m.config.Name
}

func (m *MySQLDatabase) GetType() string {
	return "mysql"
}
