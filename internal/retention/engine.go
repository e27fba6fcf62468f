// Package retention computes keep/delete partitions over a destination
// listing. It performs no I/O: the caller lists the destination,
// filters out sidecar entries, resolves lock flags, and applies the
// deletions afterwards.
package retention

import (
	"fmt"
	"sort"
	"time"

	"github.com/semmidev/custos/internal/domain"
)

// Result is a total, disjoint partition of the input files.
type Result struct {
	Keep   []domain.FileInfo
	Delete []domain.FileInfo
}

// Calculate partitions files into keep and delete sets under the given
// policy, evaluating age cutoffs against the current time.
func Calculate(files []domain.FileInfo, policy domain.RetentionPolicy) Result {
	return CalculateAt(files, policy, time.Now())
}

// CalculateAt is Calculate with an explicit reference time. Locked
// files are always kept. Identical inputs always produce identical,
// order-stable outputs.
func CalculateAt(files []domain.FileInfo, policy domain.RetentionPolicy, now time.Time) Result {
	sorted := make([]domain.FileInfo, len(files))
	copy(sorted, files)

	// Newest first; name breaks ties so the order is total.
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].ModTime.Equal(sorted[j].ModTime) {
			return sorted[i].ModTime.After(sorted[j].ModTime)
		}
		return sorted[i].Name < sorted[j].Name
	})

	var result Result
	var eligible []domain.FileInfo
	for _, f := range sorted {
		if f.Locked {
			result.Keep = append(result.Keep, f)
			continue
		}
		eligible = append(eligible, f)
	}

	switch policy.Mode {
	case domain.RetentionCount:
		applyCount(&result, eligible, policy.KeepCount)
	case domain.RetentionAge:
		applyAge(&result, eligible, policy.MaxAgeDays, now)
	case domain.RetentionGFS:
		applyGFS(&result, eligible, policy)
	default:
		// NONE or unknown keeps everything; callers normally skip
		// invocation entirely in that case.
		result.Keep = append(result.Keep, eligible...)
	}

	return result
}

func applyCount(result *Result, eligible []domain.FileInfo, keepCount int) {
	if keepCount < 0 {
		keepCount = 0
	}
	for i, f := range eligible {
		if i < keepCount {
			result.Keep = append(result.Keep, f)
		} else {
			result.Delete = append(result.Delete, f)
		}
	}
}

func applyAge(result *Result, eligible []domain.FileInfo, maxAgeDays int, now time.Time) {
	cutoff := now.AddDate(0, 0, -maxAgeDays)
	for _, f := range eligible {
		if f.ModTime.Before(cutoff) {
			result.Delete = append(result.Delete, f)
		} else {
			result.Keep = append(result.Keep, f)
		}
	}
}

// applyGFS keeps the newest file of each calendar day, ISO week and
// month, up to the configured number of buckets per tier. Eligible
// files arrive newest-first, so the first file seen in a bucket is the
// one that survives.
func applyGFS(result *Result, eligible []domain.FileInfo, policy domain.RetentionPolicy) {
	days := map[string]bool{}
	weeks := map[string]bool{}
	months := map[string]bool{}

	for _, f := range eligible {
		day := f.ModTime.Format("2006-01-02")
		year, week := f.ModTime.ISOWeek()
		weekKey := weekOf(year, week)
		month := f.ModTime.Format("2006-01")

		keep := false
		if !days[day] && len(days) < policy.KeepDaily {
			days[day] = true
			keep = true
		}
		if !weeks[weekKey] && len(weeks) < policy.KeepWeekly {
			weeks[weekKey] = true
			keep = true
		}
		if !months[month] && len(months) < policy.KeepMonthly {
			months[month] = true
			keep = true
		}

		if keep {
			result.Keep = append(result.Keep, f)
		} else {
			result.Delete = append(result.Delete, f)
		}
	}
}

func weekOf(year, week int) string {
	return fmt.Sprintf("%04d-W%02d", year, week)
}
