package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// FileStore appends entries as JSON lines to a single file. Every append
// is fsynced before it is acknowledged.
type FileStore struct {
	path string

	mu    sync.RWMutex
	file  *os.File
	size  int64 // bytes of complete, acknowledged lines
	count uint64
	tail  Entry
}

// OpenFileStore opens or creates the trail at path. A trailing partial line
// left by an interrupted write is truncated away.
func OpenFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}

	s := &FileStore{path: path, file: file}
	if err := s.recover(); err != nil {
		_ = file.Close()
		return nil, err
	}
	return s, nil
}

// recover scans the file once, remembering the last complete entry and
// the byte offset after it. Chain and sequence checks are left to Verify.
func (s *FileStore) recover() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	r := bufio.NewReader(s.file)
	var offset int64
	for {
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		var e Entry
		if jerr := json.Unmarshal(line, &e); jerr != nil {
			return fmt.Errorf("corrupt audit line at byte %d: %w", offset, jerr)
		}
		offset += int64(len(line))
		s.count++
		s.tail = e
	}

	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() != offset {
		if err := s.file.Truncate(offset); err != nil {
			return fmt.Errorf("failed to drop partial audit line: %w", err)
		}
	}
	s.size = offset
	_, err = s.file.Seek(offset, io.SeekStart)
	return err
}

func (s *FileStore) Append(ctx context.Context, e Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errClosed
	}
	if e.Sequence != s.count {
		return &SequenceError{Want: s.count, Got: e.Sequence}
	}

	if _, err := s.file.Write(data); err != nil {
		s.rollback()
		return err
	}
	if err := s.file.Sync(); err != nil {
		s.rollback()
		return err
	}
	s.size += int64(len(data))
	s.count++
	s.tail = e
	return nil
}

// rollback cuts the file back to the last acknowledged line.
func (s *FileStore) rollback() {
	_ = s.file.Truncate(s.size)
	_, _ = s.file.Seek(s.size, io.SeekStart)
}

// Scan reads through its own file handle, bounded by the size committed
// when the scan starts, so it never observes a half-written line.
func (s *FileStore) Scan(ctx context.Context, from, to uint64, fn func(Entry) error) error {
	s.mu.RLock()
	size, count := s.size, s.count
	s.mu.RUnlock()
	to = min(to, count)
	if from >= to {
		return nil
	}

	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := bufio.NewReader(io.LimitReader(f, size))
	for seq := uint64(0); seq < to; seq++ {
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) && len(line) == 0 {
			return nil
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		if seq < from {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		var e Entry
		if err := json.Unmarshal(bytes.TrimSpace(line), &e); err != nil {
			return fmt.Errorf("corrupt audit line %d: %w", seq, err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func (s *FileStore) Tail(ctx context.Context) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tail, s.count > 0, nil
}

// Path returns the trail's file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
