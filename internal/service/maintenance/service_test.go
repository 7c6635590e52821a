package maintenance

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/wget-fetch/internal/domain"
	"github.com/vertextoedge/wget-fetch/internal/port"
)

// mockTransferStore implements port.TransferStore for testing
type mockTransferStore struct {
	mu         sync.Mutex
	stale      []*domain.ResumeRecord
	listErr    error
	listCalled int
	deleted    []string
	deleteErr  error
}

func (m *mockTransferStore) Get(ctx context.Context, url, path string) (*domain.ResumeRecord, error) {
	return nil, domain.ErrNotFound
}
func (m *mockTransferStore) Save(ctx context.Context, rec *domain.ResumeRecord) error {
	return nil
}
func (m *mockTransferStore) Delete(ctx context.Context, url, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, url)
	return m.deleteErr
}
func (m *mockTransferStore) ListOlderThan(ctx context.Context, age time.Duration) ([]*domain.ResumeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalled++
	return m.stale, m.listErr
}
func (m *mockTransferStore) Close() error { return nil }

// mockFileSystem implements port.FileSystem for testing
type mockFileSystem struct {
	mu          sync.Mutex
	removed     []string
	removeErr   map[string]error
	sweepCount  int
	sweepCalled int
}

func (m *mockFileSystem) OpenExclusive(path string, truncate bool) (port.WritableFile, error) {
	return nil, errors.New("not implemented")
}
func (m *mockFileSystem) Open(path string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}
func (m *mockFileSystem) Size(path string) (int64, error) { return 0, nil }
func (m *mockFileSystem) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.removeErr[path]; err != nil {
		return err
	}
	m.removed = append(m.removed, path)
	return nil
}
func (m *mockFileSystem) Rename(from, to string) error    { return nil }
func (m *mockFileSystem) EnsureDir(filePath string) error { return nil }
func (m *mockFileSystem) CleanOldPartFiles(root string, olderThan time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepCalled++
	return m.sweepCount, nil
}

func TestService_New(t *testing.T) {
	s := New(nil, &mockTransferStore{}, &mockFileSystem{}, nil)
	if s.config.PartMaxAge != 24*time.Hour {
		t.Errorf("PartMaxAge = %v, want %v", s.config.PartMaxAge, 24*time.Hour)
	}
	if s.config.Interval != time.Hour {
		t.Errorf("Interval = %v, want %v", s.config.Interval, time.Hour)
	}

	s = New(&Config{PartMaxAge: time.Minute}, &mockTransferStore{}, &mockFileSystem{}, zap.NewNop())
	if s.config.PartMaxAge != time.Minute {
		t.Errorf("PartMaxAge = %v, want %v", s.config.PartMaxAge, time.Minute)
	}
	if s.config.Interval != time.Hour {
		t.Errorf("Interval = %v, want default %v", s.config.Interval, time.Hour)
	}
}

func TestService_Prune(t *testing.T) {
	store := &mockTransferStore{
		stale: []*domain.ResumeRecord{
			{URL: "u1", Path: "/d/a", PartPath: "/d/a.part"},
			{URL: "u2", Path: "/d/b", PartPath: "/d/b.part"},
			{URL: "u3", Path: "/d/c", PartPath: "/d/c.part"},
		},
	}
	fs := &mockFileSystem{
		removeErr:  map[string]error{"/d/b.part": errors.New("permission denied")},
		sweepCount: 2,
	}

	s := New(&Config{SweepDir: "/d"}, store, fs, zap.NewNop())
	count, err := s.Prune(context.Background(), time.Hour)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	// two records plus two swept orphans; the failed removal keeps its record
	if count != 4 {
		t.Errorf("Prune() = %d, want 4", count)
	}
	if len(store.deleted) != 2 || store.deleted[0] != "u1" || store.deleted[1] != "u3" {
		t.Errorf("deleted records = %v, want [u1 u3]", store.deleted)
	}
	if fs.sweepCalled != 1 {
		t.Errorf("CleanOldPartFiles called %d times, want 1", fs.sweepCalled)
	}
}

func TestService_Prune_ListError(t *testing.T) {
	store := &mockTransferStore{listErr: errors.New("db closed")}
	s := New(nil, store, &mockFileSystem{}, zap.NewNop())

	if _, err := s.Prune(context.Background(), time.Hour); err == nil {
		t.Error("Prune() expected error")
	}
}

func TestService_StartStop(t *testing.T) {
	store := &mockTransferStore{}
	cfg := &Config{PartMaxAge: time.Hour, Interval: 10 * time.Millisecond}
	s := New(cfg, store, &mockFileSystem{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- s.Start(ctx)
	}()

	time.Sleep(50 * time.Millisecond)

	cancel()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start() did not return after Stop()")
	}

	store.mu.Lock()
	listCalled := store.listCalled
	store.mu.Unlock()

	if listCalled < 2 {
		t.Errorf("ListOlderThan called %d times, want at least 2", listCalled)
	}
}

func TestService_DoubleStart(t *testing.T) {
	s := New(nil, &mockTransferStore{}, &mockFileSystem{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		s.Start(ctx)
	}()
	time.Sleep(10 * time.Millisecond)

	if err := s.Start(ctx); err == nil {
		t.Error("second Start() expected error")
	}
	s.Stop()
}
