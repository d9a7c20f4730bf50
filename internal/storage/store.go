package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the document file.
type Options struct {
	Path     string
	AutoSave time.Duration // 0 disables periodic saves; Close always flushes
	Backups  int           // timestamped copies kept before each write
	ReadOnly bool          // never touch the file; changes stay in memory
	Log      zerolog.Logger
}

// DefaultOptions returns the options used by New.
func DefaultOptions(path string) Options {
	return Options{
		Path:     path,
		AutoSave: 10 * time.Second,
		Backups:  3,
		Log:      zerolog.Nop(),
	}
}

// docStore keeps JSON documents in memory and persists them to a single file
// with atomic replace and rolling backups.
type docStore struct {
	opts Options

	mu     sync.RWMutex
	docs   map[string]json.RawMessage
	closed bool

	saveMu       sync.Mutex // serializes writes to the file
	lastChecksum string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var errClosed = errors.New("storage is closed")

func openDocs(opts Options) (*docStore, error) {
	if opts.Path == "" {
		return nil, errors.New("file path cannot be empty")
	}
	if opts.ReadOnly {
		return openReadOnly(opts)
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	ds := &docStore{opts: opts, docs: make(map[string]json.RawMessage)}

	data, err := os.ReadFile(opts.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := ds.writeFileAtomic([]byte("{}")); err != nil {
			return nil, fmt.Errorf("failed to create empty JSON file: %w", err)
		}
		ds.lastChecksum = checksum([]byte("{}"))
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", opts.Path, err)
	default:
		if err := json.Unmarshal(data, &ds.docs); err != nil {
			return nil, fmt.Errorf("invalid JSON in %s: %w", opts.Path, err)
		}
		if ds.docs == nil {
			ds.docs = make(map[string]json.RawMessage)
		}
		ds.lastChecksum = checksum(data)
	}

	if opts.AutoSave > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		ds.cancel = cancel
		ds.wg.Add(1)
		go ds.autoSave(ctx)
	}
	return ds, nil
}

// openReadOnly loads the file if it exists. A missing file is an empty store.
func openReadOnly(opts Options) (*docStore, error) {
	ds := &docStore{opts: opts, docs: make(map[string]json.RawMessage)}
	data, err := os.ReadFile(opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return ds, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", opts.Path, err)
	}
	if err := json.Unmarshal(data, &ds.docs); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", opts.Path, err)
	}
	if ds.docs == nil {
		ds.docs = make(map[string]json.RawMessage)
	}
	return ds, nil
}

// get decodes the document at key into v and reports whether it existed.
func (ds *docStore) get(key string, v any) (bool, error) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()
	if ds.closed {
		return false, errClosed
	}
	raw, ok := ds.docs[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return true, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	return true, nil
}

func (ds *docStore) put(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.closed {
		return errClosed
	}
	ds.docs[key] = raw
	return nil
}

func (ds *docStore) flush() error {
	if ds.opts.ReadOnly {
		return nil
	}
	ds.saveMu.Lock()
	defer ds.saveMu.Unlock()

	ds.mu.RLock()
	data, err := json.MarshalIndent(ds.docs, "", "  ")
	ds.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal documents: %w", err)
	}

	sum := checksum(data)
	if sum == ds.lastChecksum {
		return nil
	}
	if ds.opts.Backups > 0 {
		if err := ds.backup(); err != nil {
			ds.opts.Log.Warn().Err(err).Msg("Failed to create backup")
		}
	}
	if err := ds.writeFileAtomic(data); err != nil {
		return err
	}
	ds.lastChecksum = sum
	return nil
}

func (ds *docStore) close() error {
	ds.mu.Lock()
	if ds.closed {
		ds.mu.Unlock()
		return nil
	}
	ds.mu.Unlock()

	if ds.cancel != nil {
		ds.cancel()
		ds.wg.Wait()
	}
	err := ds.flush()

	ds.mu.Lock()
	ds.closed = true
	ds.mu.Unlock()
	return err
}

func (ds *docStore) autoSave(ctx context.Context) {
	defer ds.wg.Done()
	ticker := time.NewTicker(ds.opts.AutoSave)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ds.flush(); err != nil {
				ds.opts.Log.Error().Err(err).Msg("Auto-save failed")
			}
		}
	}
}

// writeFileAtomic writes to a temp file, syncs it and renames it over the
// target.
func (ds *docStore) writeFileAtomic(data []byte) error {
	tmp := ds.opts.Path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	f.Close()

	if err := os.Rename(tmp, ds.opts.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (ds *docStore) backup() error {
	src, err := os.Open(ds.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	name := fmt.Sprintf("%s.backup.%s", ds.opts.Path, time.Now().Format("20060102_150405.000000000"))
	dst, err := os.Create(name)
	if err != nil {
		return err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return err
	}

	ds.pruneBackups()
	return nil
}

// pruneBackups keeps the newest opts.Backups copies. Backup names sort by
// creation time.
func (ds *docStore) pruneBackups() {
	matches, err := filepath.Glob(ds.opts.Path + ".backup.*")
	if err != nil || len(matches) <= ds.opts.Backups {
		return
	}
	slices.Sort(matches)
	for _, old := range matches[:len(matches)-ds.opts.Backups] {
		os.Remove(old)
	}
}

func checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
