// Package store implements the append-only pipe-delimited stores: one file
// of daily short-volume rows across all symbols, one price-history file per
// symbol, and one symbol-metadata file. Rows are only ever appended, never
// rewritten, so an interrupted run resumes from each file's last line.
package store

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Delimiter separates fields in every store file.
const Delimiter = "|"

// tailBytes bounds how far back lastLine reads from the end of a file. One
// record never comes close to it.
const tailBytes = 4096

// appendLines appends lines to path, creating the file when absent. The
// whole batch goes through one write call so a crash never leaves a partial
// batch followed by more appends.
func appendLines(path string, lines []string) error {
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("appending to %s: %w", path, err)
	}
	return f.Close()
}

// lastLine returns the final non-empty line of the file by reading at most
// tailBytes from its end. An empty file is an error.
func lastLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return "", err
	}

	off := fi.Size() - tailBytes
	if off < 0 {
		off = 0
	}
	buf := make([]byte, fi.Size()-off)
	if _, err := f.ReadAt(buf, off); err != nil && err != io.EOF {
		return "", fmt.Errorf("reading tail of %s: %w", path, err)
	}

	lines := strings.Split(string(buf), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line, nil
		}
	}
	return "", fmt.Errorf("%s: store is empty", path)
}

// lastDate parses the first field of the file's final line with the given
// date layout. A header-only or otherwise malformed tail is an error; the
// caller decides whether that is fatal.
func lastDate(path, layout string) (time.Time, error) {
	line, err := lastLine(path)
	if err != nil {
		return time.Time{}, err
	}

	field, _, _ := strings.Cut(line, Delimiter)
	t, err := time.Parse(layout, strings.TrimSpace(field))
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: malformed last line date %q: %w", path, field, err)
	}
	return t, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
