// v0
// internal/storage/journal.go

// Package storage persists committed ledger records as JSON lines.
package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"modelmarket/internal/models"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("journal closed")

type entry struct {
	Index  int                `json:"index"`
	Record models.Transaction `json:"record"`
}

// Journal appends one record per line and fsyncs each write. It implements
// the ledger's Persister.
type Journal struct {
	mu     sync.Mutex
	path   string
	log    *slog.Logger
	file   *os.File
	writer *bufio.Writer
	next   int
	closed bool
}

// OpenJournal opens or creates the journal at path and positions it for
// appending after the existing lines.
func OpenJournal(path string, log *slog.Logger) (*Journal, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	j := &Journal{path: path, log: log.With(slog.String("component", "journal")), file: f}
	if _, err := j.scan(); err != nil {
		f.Close()
		return nil, err
	}
	return j, nil
}

// Load returns every journaled record in order. Lines must carry consecutive
// indexes starting at zero.
func (j *Journal) Load() ([]models.Transaction, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.scan()
}

func (j *Journal) scan() ([]models.Transaction, error) {
	j.log.Info("loading", slog.String("path", j.path))
	if _, err := j.file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	scanner := bufio.NewScanner(j.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	var (
		records []models.Transaction
		line    int
	)
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if e.Index != len(records) {
			return nil, fmt.Errorf("line %d: index mismatch expected=%d got=%d", line, len(records), e.Index)
		}
		records = append(records, e.Record)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if _, err := j.file.Seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	j.writer = bufio.NewWriter(j.file)
	j.next = len(records)
	j.log.Info("loaded", slog.Int("records", len(records)))
	return records, nil
}

// Append writes the record at index, which must be the next free index.
func (j *Journal) Append(index int, tx models.Transaction) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	if index != j.next {
		return fmt.Errorf("journal index mismatch expected=%d got=%d", j.next, index)
	}
	payload, err := json.Marshal(entry{Index: index, Record: tx})
	if err != nil {
		return err
	}
	if _, err := j.writer.Write(payload); err != nil {
		return err
	}
	if err := j.writer.WriteByte('\n'); err != nil {
		return err
	}
	if err := j.writer.Flush(); err != nil {
		return err
	}
	if err := j.file.Sync(); err != nil {
		return err
	}
	j.next++
	j.log.Debug("appended", slog.Int("index", index), slog.String("kind", string(tx.Kind)))
	return nil
}

// Path returns the journal file location.
func (j *Journal) Path() string { return j.path }

func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	if err := j.writer.Flush(); err != nil {
		j.file.Close()
		return err
	}
	return j.file.Close()
}
