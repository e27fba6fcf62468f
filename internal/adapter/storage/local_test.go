package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalStorage(t *testing.T) {
	Convey("Given a LocalStorage", t, func() {
		ctx := context.Background()
		tempDir, err := os.MkdirTemp("", "local_storage_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		Convey("NewLocal", func() {
			Convey("When creating with valid path", func() {
				st, err := NewLocal(tempDir)

				Convey("It should create successfully", func() {
					So(err, ShouldBeNil)
					So(st, ShouldNotBeNil)
					So(st.basePath, ShouldEqual, tempDir)
				})
			})

			Convey("When creating with non-existent path", func() {
				newPath := filepath.Join(tempDir, "new", "nested", "dir")
				st, err := NewLocal(newPath)

				Convey("It should create directory and succeed", func() {
					So(err, ShouldBeNil)
					So(st, ShouldNotBeNil)

					info, err := os.Stat(newPath)
					So(err, ShouldBeNil)
					So(info.IsDir(), ShouldBeTrue)
				})
			})
		})

		Convey("Upload method", func() {
			st, _ := NewLocal(tempDir)

			Convey("When uploading a valid file", func() {
				sourceFile := filepath.Join(tempDir, "source.txt")
				os.WriteFile(sourceFile, []byte("test content"), 0644)

				result, err := st.Upload(ctx, sourceFile, "uploaded.txt")

				Convey("It should report remote path and size", func() {
					So(err, ShouldBeNil)
					So(result.RemotePath, ShouldEqual, "uploaded.txt")
					So(result.Size, ShouldEqual, int64(len("test content")))

					content, err := os.ReadFile(filepath.Join(tempDir, "uploaded.txt"))
					So(err, ShouldBeNil)
					So(string(content), ShouldEqual, "test content")
				})
			})

			Convey("When source file does not exist", func() {
				_, err := st.Upload(ctx, "nonexistent.txt", "uploaded.txt")

				Convey("It should return error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to open source")
				})
			})
		})

		Convey("Download method", func() {
			st, _ := NewLocal(tempDir)
			os.WriteFile(filepath.Join(tempDir, "remote.txt"), []byte("remote content"), 0644)

			Convey("When downloading an existing file", func() {
				localPath := filepath.Join(tempDir, "fetched.txt")
				err := st.Download(ctx, "remote.txt", localPath)

				Convey("It should copy the file locally", func() {
					So(err, ShouldBeNil)
					content, err := os.ReadFile(localPath)
					So(err, ShouldBeNil)
					So(string(content), ShouldEqual, "remote content")
				})
			})
		})

		Convey("List method", func() {
			st, _ := NewLocal(tempDir)

			Convey("When directory has files", func() {
				old := filepath.Join(tempDir, "file1.txt")
				os.WriteFile(old, []byte("test"), 0644)
				oldTime := time.Now().Add(-48 * time.Hour)
				os.Chtimes(old, oldTime, oldTime)
				os.WriteFile(filepath.Join(tempDir, "file2.txt"), []byte("larger"), 0644)
				os.Mkdir(filepath.Join(tempDir, "subdir"), 0755)

				files, err := st.List(ctx)

				Convey("It should list only files, with size and mod time", func() {
					So(err, ShouldBeNil)
					So(len(files), ShouldEqual, 2)

					byName := map[string]int64{}
					for _, f := range files {
						byName[f.Name] = f.Size
						So(f.ModTime.IsZero(), ShouldBeFalse)
					}
					So(byName["file1.txt"], ShouldEqual, 4)
					So(byName["file2.txt"], ShouldEqual, 6)
				})
			})

			Convey("When directory is empty", func() {
				emptyDir := filepath.Join(tempDir, "empty")
				os.Mkdir(emptyDir, 0755)
				st, _ := NewLocal(emptyDir)

				files, err := st.List(ctx)

				Convey("It should return empty list", func() {
					So(err, ShouldBeNil)
					So(len(files), ShouldEqual, 0)
				})
			})
		})

		Convey("Read and Write methods", func() {
			st, _ := NewLocal(tempDir)

			Convey("When writing then reading a sidecar", func() {
				err := st.Write(ctx, "backup.sql.gz.meta.json", []byte(`{"locked":true}`))
				So(err, ShouldBeNil)

				data, err := st.Read(ctx, "backup.sql.gz.meta.json")

				Convey("It should round-trip the content", func() {
					So(err, ShouldBeNil)
					So(string(data), ShouldEqual, `{"locked":true}`)
				})
			})

			Convey("When reading a missing file", func() {
				data, err := st.Read(ctx, "missing.meta.json")

				Convey("It should return nil without error", func() {
					So(err, ShouldBeNil)
					So(data, ShouldBeNil)
				})
			})
		})

		Convey("Delete method", func() {
			st, _ := NewLocal(tempDir)

			Convey("When deleting existing file", func() {
				os.WriteFile(filepath.Join(tempDir, "delete_me.txt"), []byte("test"), 0644)

				err := st.Delete(ctx, "delete_me.txt")

				Convey("It should delete successfully", func() {
					So(err, ShouldBeNil)

					_, err := os.Stat(filepath.Join(tempDir, "delete_me.txt"))
					So(os.IsNotExist(err), ShouldBeTrue)
				})
			})

			Convey("When deleting non-existent file", func() {
				err := st.Delete(ctx, "nonexistent.txt")

				Convey("It should return error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to delete file")
				})
			})
		})
	})
}
