package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"questionnaire/api/internal/jsondoc"
)

// ProfileLog is an append-only JSON Lines file. Each record is stored
// compacted on its own line and never rewritten.
type ProfileLog struct {
	path string
	opts Options

	mu   sync.RWMutex
	file *os.File
	// broken is set when a failed append could not be rolled back.
	broken error
}

func OpenProfileLog(path string, opts Options) (*ProfileLog, error) {
	if err := ensureFile(path); err != nil {
		return nil, fmt.Errorf("open profile log: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open profile log: %w", err)
	}
	if opts.writeLine == nil {
		opts.writeLine = writeWhole
	}
	return &ProfileLog{path: path, opts: opts, file: file}, nil
}

func (l *ProfileLog) Path() string {
	return l.path
}

// Append validates raw and writes it as one line at the end of the log. The
// stored line, without its terminator, is returned.
func (l *ProfileLog) Append(raw []byte) ([]byte, error) {
	line, err := jsondoc.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}
	record := make([]byte, 0, len(line)+1)
	record = append(record, line...)
	record = append(record, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil, ioError("append", l.path, os.ErrClosed)
	}
	if l.broken != nil {
		return nil, ioError("append", l.path, l.broken)
	}
	info, err := l.file.Stat()
	if err != nil {
		return nil, ioError("stat", l.path, err)
	}
	size := info.Size()

	if err := l.opts.writeLine(l.file, record); err != nil {
		return nil, l.rollback("append", size, err)
	}
	if l.opts.SyncWrites {
		if err := l.file.Sync(); err != nil {
			return nil, l.rollback("sync", size, err)
		}
	}
	return line, nil
}

// rollback cuts the file back to size so a partly written record cannot run
// into the next one. If that fails the log refuses further appends.
func (l *ProfileLog) rollback(op string, size int64, cause error) error {
	if err := l.file.Truncate(size); err != nil {
		l.broken = fmt.Errorf("log left with a partial record: %w", err)
		return ioError(op, l.path, errors.Join(cause, l.broken))
	}
	return ioError(op, l.path, cause)
}

// FindByIdentifier returns the first line, in file order, whose raw text
// contains id. The match is a plain substring test on the stored line, not a
// lookup of a particular field.
func (l *ProfileLog) FindByIdentifier(id string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return FindInLog(l.path, id)
}

// FindInLog runs the FindByIdentifier scan against the log at path without
// opening it for writing. A missing file is ErrNotFound and is not created.
func FindInLog(path, id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: identifier is required", ErrBadRequest)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, ioError("open", path, err)
	}
	defer f.Close()

	needle := []byte(id)
	reader := bufio.NewReader(f)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			line = bytes.TrimRight(line, "\r\n")
			if bytes.Contains(line, needle) {
				return line, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, ErrNotFound
			}
			return nil, ioError("scan", path, err)
		}
	}
}

func (l *ProfileLog) Ping() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.file == nil {
		return ioError("ping", l.path, os.ErrClosed)
	}
	return statFile(l.path)
}

func (l *ProfileLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
