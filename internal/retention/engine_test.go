package retention

import (
	"fmt"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/custos/internal/domain"
)

func file(name string, age time.Duration, locked bool) domain.FileInfo {
	return domain.FileInfo{
		Name:    name,
		Path:    "backups/" + name,
		Size:    1024,
		ModTime: time.Now().Add(-age),
		Locked:  locked,
	}
}

func names(files []domain.FileInfo) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func TestCalculate(t *testing.T) {
	Convey("Given the retention engine", t, func() {
		Convey("Count-based policy", func() {
			policy := domain.RetentionPolicy{Mode: domain.RetentionCount, KeepCount: 2}

			Convey("When there are more unlocked files than the keep count", func() {
				files := []domain.FileInfo{
					file("backup-1.sql.gz", 5*time.Hour, false),
					file("backup-2.sql.gz", 4*time.Hour, false),
					file("backup-3.sql.gz", 3*time.Hour, false),
					file("backup-4.sql.gz", 2*time.Hour, false),
					file("backup-5.sql.gz", 1*time.Hour, false),
				}

				result := Calculate(files, policy)

				Convey("It should delete exactly the oldest n-k files", func() {
					So(len(result.Keep), ShouldEqual, 2)
					So(len(result.Delete), ShouldEqual, 3)
					So(names(result.Keep), ShouldResemble, []string{"backup-5.sql.gz", "backup-4.sql.gz"})
					So(names(result.Delete), ShouldResemble, []string{"backup-3.sql.gz", "backup-2.sql.gz", "backup-1.sql.gz"})
				})
			})

			Convey("When fewer files exist than the keep count", func() {
				files := []domain.FileInfo{
					file("backup-1.sql.gz", time.Hour, false),
				}

				result := Calculate(files, policy)

				Convey("It should delete nothing", func() {
					So(len(result.Keep), ShouldEqual, 1)
					So(len(result.Delete), ShouldEqual, 0)
				})
			})

			Convey("When a file the policy would delete is locked", func() {
				files := []domain.FileInfo{
					file("backup-1.sql.gz", 3*time.Hour, true),
					file("backup-2.sql.gz", 2*time.Hour, false),
					file("backup-3.sql.gz", 1*time.Hour, false),
				}

				result := Calculate(files, domain.RetentionPolicy{Mode: domain.RetentionCount, KeepCount: 1})

				Convey("It should keep the locked file and the newest unlocked file", func() {
					So(names(result.Keep), ShouldContain, "backup-1.sql.gz")
					So(names(result.Keep), ShouldContain, "backup-3.sql.gz")
					So(names(result.Delete), ShouldResemble, []string{"backup-2.sql.gz"})
				})
			})
		})

		Convey("Age-based policy", func() {
			policy := domain.RetentionPolicy{Mode: domain.RetentionAge, MaxAgeDays: 7}

			Convey("When files straddle the cutoff", func() {
				files := []domain.FileInfo{
					file("old.sql.gz", 10*24*time.Hour, false),
					file("older.sql.gz", 20*24*time.Hour, false),
					file("fresh.sql.gz", 24*time.Hour, false),
				}

				result := Calculate(files, policy)

				Convey("It should delete only files past the cutoff", func() {
					So(names(result.Keep), ShouldResemble, []string{"fresh.sql.gz"})
					So(names(result.Delete), ShouldResemble, []string{"old.sql.gz", "older.sql.gz"})
				})
			})

			Convey("When an old file is locked", func() {
				files := []domain.FileInfo{
					file("old-locked.sql.gz", 30*24*time.Hour, true),
					file("old.sql.gz", 30*24*time.Hour, false),
				}

				result := Calculate(files, policy)

				Convey("It should never delete the locked file", func() {
					So(names(result.Keep), ShouldResemble, []string{"old-locked.sql.gz"})
					So(names(result.Delete), ShouldResemble, []string{"old.sql.gz"})
				})
			})
		})

		Convey("GFS policy", func() {
			now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
			policy := domain.RetentionPolicy{
				Mode:      domain.RetentionGFS,
				KeepDaily: 2, KeepWeekly: 1, KeepMonthly: 1,
			}

			Convey("When several backups exist per day", func() {
				mk := func(name string, t time.Time) domain.FileInfo {
					return domain.FileInfo{Name: name, Path: "backups/" + name, ModTime: t}
				}
				files := []domain.FileInfo{
					mk("d0-a", now.Add(-1*time.Hour)),
					mk("d0-b", now.Add(-5*time.Hour)),
					mk("d1-a", now.Add(-25*time.Hour)),
					mk("d1-b", now.Add(-30*time.Hour)),
					mk("d9-a", now.Add(-9*24*time.Hour)),
				}

				result := CalculateAt(files, policy, now)

				Convey("It should keep the newest of each surviving bucket", func() {
					So(names(result.Keep), ShouldContain, "d0-a")
					So(names(result.Keep), ShouldContain, "d1-a")
					So(names(result.Delete), ShouldContain, "d0-b")
					So(names(result.Delete), ShouldContain, "d1-b")
				})
			})
		})

		Convey("Partition properties", func() {
			files := []domain.FileInfo{
				file("a.sql.gz", 1*time.Hour, false),
				file("b.sql.gz", 2*time.Hour, true),
				file("c.sql.gz", 3*time.Hour, false),
				file("d.sql.gz", 4*time.Hour, false),
			}

			for _, policy := range []domain.RetentionPolicy{
				{Mode: domain.RetentionCount, KeepCount: 1},
				{Mode: domain.RetentionAge, MaxAgeDays: 0},
				{Mode: domain.RetentionGFS, KeepDaily: 1},
				{Mode: domain.RetentionNone},
			} {
				policy := policy
				Convey(fmt.Sprintf("Mode %s keeps the partition total and disjoint", policy.Mode), func() {
					result := Calculate(files, policy)

					So(len(result.Keep)+len(result.Delete), ShouldEqual, len(files))

					seen := map[string]int{}
					for _, f := range result.Keep {
						seen[f.Name]++
					}
					for _, f := range result.Delete {
						seen[f.Name]++
					}
					for _, f := range files {
						So(seen[f.Name], ShouldEqual, 1)
					}
				})
			}
		})

		Convey("Determinism", func() {
			now := time.Now()
			files := []domain.FileInfo{
				file("a.sql.gz", 1*time.Hour, false),
				file("b.sql.gz", 1*time.Hour, false),
				file("c.sql.gz", 2*time.Hour, true),
				file("d.sql.gz", 3*time.Hour, false),
			}
			policy := domain.RetentionPolicy{Mode: domain.RetentionCount, KeepCount: 1}

			Convey("Two runs over identical input are order-stable", func() {
				first := CalculateAt(files, policy, now)
				second := CalculateAt(files, policy, now)

				So(names(second.Keep), ShouldResemble, names(first.Keep))
				So(names(second.Delete), ShouldResemble, names(first.Delete))
			})
		})

		Convey("End-to-end keep-newest-1 scenario", func() {
			base := time.Now()
			files := []domain.FileInfo{
				{Name: "backup-1", Path: "backups/backup-1", ModTime: base.Add(1 * time.Minute)},
				{Name: "backup-2", Path: "backups/backup-2", ModTime: base.Add(2 * time.Minute), Locked: true},
				{Name: "backup-3", Path: "backups/backup-3", ModTime: base.Add(3 * time.Minute)},
			}

			result := Calculate(files, domain.RetentionPolicy{Mode: domain.RetentionCount, KeepCount: 1})

			Convey("It should keep the locked file and the newest, delete the rest", func() {
				So(names(result.Keep), ShouldContain, "backup-2")
				So(names(result.Keep), ShouldContain, "backup-3")
				So(names(result.Delete), ShouldResemble, []string{"backup-1"})
			})
		})
	})
}
