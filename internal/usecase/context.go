package usecase

import (
	"fmt"

	"github.com/semmidev/custos/internal/domain"
)

// Logger is the slice of the zap sugared logger the use cases need.
type Logger interface {
	Debugf(template string, args ...interface{})
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Errorf(template string, args ...interface{})
}

// RunnerContext is the mutable state of one pipeline invocation. It is
// owned exclusively by that invocation and projected onto the
// Execution record at finalize time; it is never persisted directly.
type RunnerContext struct {
	Job         *domain.Job
	Execution   *domain.Execution
	Source      domain.Database
	Destination domain.Storage

	TempPath   string
	Filename   string
	RemotePath string
	Size       int64

	tempFiles []string
	logLines  []string
}

func (rc *RunnerContext) addTemp(path string) {
	rc.TempPath = path
	rc.tempFiles = append(rc.tempFiles, path)
}

func (rc *RunnerContext) logf(level, format string, args ...interface{}) {
	rc.logLines = append(rc.logLines, level+" "+fmt.Sprintf(format, args...))
}

func (rc *RunnerContext) setMeta(key, value string) {
	if rc.Execution.Metadata == nil {
		rc.Execution.Metadata = map[string]string{}
	}
	rc.Execution.Metadata[key] = value
}
