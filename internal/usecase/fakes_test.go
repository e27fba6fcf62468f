package usecase

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/semmidev/custos/internal/domain"
)

func nopLogger() Logger {
	return zap.NewNop().Sugar()
}

// fakeDatabase writes a fixed payload as its dump.
type fakeDatabase struct {
	name     string
	payload  []byte
	dumpErr  error
	restored []byte
}

func (f *fakeDatabase) Backup(ctx context.Context, outputPath string) error {
	if f.dumpErr != nil {
		return f.dumpErr
	}
	return os.WriteFile(outputPath, f.payload, 0644)
}

func (f *fakeDatabase) Restore(ctx context.Context, inputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	f.restored = data
	return nil
}
func (f *fakeDatabase) Ping(ctx context.Context) error                      { return nil }
func (f *fakeDatabase) Version(ctx context.Context) (string, error)         { return "9.9.9", nil }
func (f *fakeDatabase) GetName() string                                     { return f.name }
func (f *fakeDatabase) GetType() string                                     { return "mysql" }

type fakeObject struct {
	data    []byte
	modTime time.Time
}

// fakeStorage is an in-memory destination recording every delete.
type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string]fakeObject
	deleted   []string
	uploadErr error
	listErr   error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string]fakeObject{}}
}

func (f *fakeStorage) put(name string, modTime time.Time, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = fakeObject{data: data, modTime: modTime}
}

func (f *fakeStorage) Upload(ctx context.Context, localPath string, remoteName string) (*domain.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, err
	}
	f.put(remoteName, time.Now(), data)
	return &domain.UploadResult{RemotePath: remoteName, Size: int64(len(data))}, nil
}

func (f *fakeStorage) Download(ctx context.Context, remotePath string, localPath string) error {
	f.mu.Lock()
	obj, ok := f.objects[remotePath]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("no such object: %s", remotePath)
	}
	return os.WriteFile(localPath, obj.data, 0644)
}

func (f *fakeStorage) List(ctx context.Context) ([]domain.FileInfo, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var files []domain.FileInfo
	for name, obj := range f.objects {
		files = append(files, domain.FileInfo{
			Name:    name,
			Path:    name,
			Size:    int64(len(obj.data)),
			ModTime: obj.modTime,
		})
	}
	return files, nil
}

func (f *fakeStorage) Read(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[path]
	if !ok {
		return nil, nil
	}
	return obj.data, nil
}

func (f *fakeStorage) Write(ctx context.Context, path string, data []byte) error {
	f.put(path, time.Now(), data)
	return nil
}

func (f *fakeStorage) Delete(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[path]; !ok {
		return fmt.Errorf("no such object: %s", path)
	}
	delete(f.objects, path)
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeStorage) deletedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeStorage) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[name]
	return ok
}

// fakeNotifier records sent messages and optionally fails.
type fakeNotifier struct {
	mu      sync.Mutex
	sent    []string
	sendErr error
}

func (f *fakeNotifier) Send(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, message)
	return nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
