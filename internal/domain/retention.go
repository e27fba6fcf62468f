package domain

import "time"

// RetentionMode selects the cutoff rule applied to delete-eligible files.
type RetentionMode string

const (
	RetentionNone  RetentionMode = "NONE"
	RetentionCount RetentionMode = "COUNT"
	RetentionAge   RetentionMode = "AGE"
	RetentionGFS   RetentionMode = "GFS"
)

// RetentionPolicy is immutable once loaded for a run.
type RetentionPolicy struct {
	Mode RetentionMode

	// COUNT
	KeepCount int

	// AGE
	MaxAgeDays int

	// GFS: the newest file of each day/ISO-week/month survives, for
	// the configured number of buckets.
	KeepDaily   int
	KeepWeekly  int
	KeepMonthly int
}

// FileInfo is one destination listing entry. Locked is resolved from
// the artifact's sidecar, never from the backend's native metadata.
type FileInfo struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
	Locked  bool
}

// SidecarSuffix is appended to an artifact path to form its metadata
// sidecar path.
const SidecarSuffix = ".meta.json"

// Sidecar is the on-disk out-of-band metadata stored next to each
// backup artifact.
type Sidecar struct {
	Locked        bool   `json:"locked"`
	JobID         string `json:"job_id,omitempty"`
	ExecutionID   string `json:"execution_id,omitempty"`
	EngineVersion string `json:"engine_version,omitempty"`
	Encrypted     bool   `json:"encrypted,omitempty"`
}

func SidecarPath(artifactPath string) string {
	return artifactPath + SidecarSuffix
}

// IsSidecar reports whether a listing entry is a metadata sidecar
// rather than a backup artifact.
func IsSidecar(name string) bool {
	return len(name) > len(SidecarSuffix) &&
		name[len(name)-len(SidecarSuffix):] == SidecarSuffix
}
