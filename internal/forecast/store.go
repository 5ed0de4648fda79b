package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

const recordFileName = "city.json"

var codec = jsoniter.ConfigCompatibleWithStandardLibrary

// Store keeps one JSON record per location under baseDir/<key>/city.json.
// Updates are whole-record read-modify-write cycles. Without locking, two
// concurrent updates of the same key may lose the earlier write.
type Store struct {
	fs      afero.Fs
	baseDir string
	locks   *keyedMutex
	logger  *slog.Logger
}

// NewFileStore creates a store on the local filesystem
func NewFileStore(baseDir string, lockRecords bool, logger *slog.Logger) *Store {
	return NewStore(afero.NewOsFs(), baseDir, lockRecords, logger)
}

// NewStore creates a store on an arbitrary afero filesystem.
// With lockRecords set, updates of the same key are serialized in-process.
func NewStore(fsys afero.Fs, baseDir string, lockRecords bool, logger *slog.Logger) *Store {
	s := &Store{
		fs:      fsys,
		baseDir: baseDir,
		logger:  logger.With("component", "forecast-store"),
	}
	if lockRecords {
		s.locks = newKeyedMutex()
	}
	return s
}

// Path returns the record file for key
func (s *Store) Path(key string) string {
	return filepath.Join(s.baseDir, key, recordFileName)
}

// Load reads the record for key. A missing or corrupt file yields an empty
// record and no error; other read failures are returned.
func (s *Store) Load(ctx context.Context, key string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	return s.load(key)
}

func (s *Store) load(key string) (Record, error) {
	path := s.Path(key)

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewRecord(), nil
		}
		return Record{}, fmt.Errorf("failed to read record %s: %w", path, err)
	}

	rec, err := decodeRecord(data)
	if err != nil {
		s.logger.Warn("discarding corrupt forecast record", "path", path, "error", err)
		return NewRecord(), nil
	}

	return rec, nil
}

// decodeRecord parses a stored record. Any error means the data is corrupt.
func decodeRecord(data []byte) (Record, error) {
	if !gjson.ValidBytes(data) {
		return Record{}, errors.New("invalid JSON")
	}

	var rec Record
	if err := codec.Unmarshal(data, &rec); err != nil {
		return Record{}, err
	}
	if rec.History == nil {
		rec.History = map[string]json.RawMessage{}
	}
	return rec, nil
}

// Save writes rec for key, replacing the previous file atomically
func (s *Store) Save(key string, rec Record) error {
	path := s.Path(key)
	dir := filepath.Dir(path)

	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create record directory %s: %w", dir, err)
	}

	data, err := codec.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, dir, recordFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write record: %w", err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace record %s: %w", path, err)
	}

	return nil
}

// Update merges payload into the record for key and writes it back
func (s *Store) Update(ctx context.Context, key string, payload []byte) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	if s.locks != nil {
		unlock := s.locks.Lock(key)
		defer unlock()
	}

	existing, err := s.load(key)
	if err != nil {
		return Record{}, err
	}

	ts := TimestampKey(payload)
	merged := Merge(&existing, payload, ts)

	if err := s.Save(key, merged); err != nil {
		return Record{}, err
	}

	s.logger.Debug("stored forecast",
		"key", key,
		"timestamp", ts,
		"history_entries", len(merged.History),
	)

	return merged, nil
}
