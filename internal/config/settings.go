package config

import "sync/atomic"

// Settings holds the tunables the queue manager reads on every sweep.
// Values are swapped atomically by the config watcher, so a running
// process picks up changes without restart.
type Settings struct {
	maxConcurrentJobs atomic.Int64
}

func NewSettings(cfg *Config) *Settings {
	s := &Settings{}
	s.Apply(cfg)
	return s
}

func (s *Settings) Apply(cfg *Config) {
	s.maxConcurrentJobs.Store(int64(cfg.Queue.MaxConcurrentJobs))
}

func (s *Settings) MaxConcurrentJobs() int {
	return int(s.maxConcurrentJobs.Load())
}
