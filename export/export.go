// Package export writes change list results to files. It renders the
// full filtered result set (not just the visible page) through a
// registered page format, and guards the output path with an advisory
// file lock so concurrent exporters never interleave writes.
//
// The process happens in two steps:
// 1. Generate - renders the result set into an in-memory Data value
// 2. Write - locks the output path and writes the content
//
// This split keeps rendering testable without file system operations.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/changelist/changelist"
	"github.com/arthur-debert/changelist/formats"
)

// DefaultFormat is the page format used when Options.Format is empty.
const DefaultFormat = "csv"

// File lock tuning.
const (
	lockTimeout    = 3 * time.Second
	lockMaxRetries = 3
	lockRetryDelay = 100 * time.Millisecond
)

// Options configure what an export produces.
type Options struct {
	// Format names a registered page format. Empty means csv.
	Format string

	// Locks creates the file lock guarding the output path. Nil uses
	// flock.
	Locks FileLockFactory

	// Now supplies the timestamp baked into generated filenames. Nil
	// means time.Now.
	Now func() time.Time
}

// Data is a generated export, not yet written anywhere.
type Data struct {
	// Filename is the suggested file name: the model's table, a
	// timestamp, and the format's extension.
	Filename string

	// Format is the resolved format name.
	Format string

	// Rows is the number of exported result rows.
	Rows int

	// Content is the rendered output.
	Content string
}

// Metadata describes what an export would produce without writing it.
type Metadata struct {
	Rows      int    `json:"rows"`
	Filename  string `json:"filename"`
	SizeBytes int64  `json:"size_bytes"`
}

// Generate renders the change list's full filtered result set in the
// requested format.
func Generate(ctx context.Context, cl *changelist.ChangeList, opts Options) (*Data, error) {
	name := opts.Format
	if name == "" {
		name = DefaultFormat
	}
	format, err := formats.Get(name)
	if err != nil {
		return nil, err
	}

	rows, err := cl.QuerySet.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	page, err := formats.PageOf(cl, rows)
	if err != nil {
		return nil, err
	}
	content, err := format.Render(page)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s export: %w", format.Name, err)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Data{
		Filename: generateFilename(cl.Model.Table, now(), format.Extension),
		Format:   format.Name,
		Rows:     len(page.Rows),
		Content:  content,
	}, nil
}

// Export renders the change list and writes it into a fresh temporary
// directory, returning the path to the created file.
func Export(ctx context.Context, cl *changelist.ChangeList, opts Options) (string, error) {
	data, err := Generate(ctx, cl, opts)
	if err != nil {
		return "", err
	}

	tempDir, err := os.MkdirTemp("", "changelist-export-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	outputPath := filepath.Join(tempDir, data.Filename)
	if err := writeLocked(ctx, outputPath, data.Content, opts.Locks); err != nil {
		_ = os.RemoveAll(tempDir)
		return "", err
	}
	return outputPath, nil
}

// ExportToPath renders the change list and writes it at outputPath.
func ExportToPath(ctx context.Context, cl *changelist.ChangeList, opts Options, outputPath string) error {
	data, err := Generate(ctx, cl, opts)
	if err != nil {
		return err
	}
	return Write(ctx, data, outputPath, opts.Locks)
}

// Write stores a generated export at outputPath, holding the advisory
// lock on outputPath + ".lock" for the duration of the write.
func Write(ctx context.Context, data *Data, outputPath string, locks FileLockFactory) error {
	return writeLocked(ctx, outputPath, data.Content, locks)
}

// GetMetadata reports what an export would produce, for previews and
// dry runs.
func GetMetadata(ctx context.Context, cl *changelist.ChangeList, opts Options) (*Metadata, error) {
	data, err := Generate(ctx, cl, opts)
	if err != nil {
		return nil, err
	}
	return &Metadata{
		Rows:      data.Rows,
		Filename:  data.Filename,
		SizeBytes: int64(len(data.Content)),
	}, nil
}

// generateFilename names an export after the table and the moment it
// was generated, e.g. "books-2026-08-21T15-04-05.csv".
func generateFilename(table string, now time.Time, ext string) string {
	return fmt.Sprintf("%s-%s%s", table, now.Format("2006-01-02T15-04-05"), ext)
}

// writeLocked writes content at path while holding an advisory lock on
// path + ".lock".
func writeLocked(ctx context.Context, path, content string, locks FileLockFactory) error {
	if locks == nil {
		locks = FlockFactory{}
	}
	lock := locks.New(path + ".lock")
	if err := acquireLock(ctx, lock); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// acquireLock attempts to take an exclusive file lock with retries.
func acquireLock(ctx context.Context, lock FileLock) error {
	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	for i := 0; i < lockMaxRetries; i++ {
		locked, err := lock.TryLockContext(ctx, lockRetryDelay)
		if err != nil {
			return fmt.Errorf("failed to acquire lock: %w", err)
		}
		if locked {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts", lockMaxRetries)
}
