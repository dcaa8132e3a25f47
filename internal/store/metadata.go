package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"regsho/internal/domain"
)

var metadataHeader = []string{
	"symbol", "name", "exchange", "class", "status",
	"tradable", "marginable", "shortable", "easy_to_borrow", "fractionable",
}

// MetadataStore is the append-only symbol attribute file: at most one row
// per symbol, written once.
type MetadataStore struct {
	path string
}

// NewMetadataStore roots the store at <dataDir>/symbol_data/symbol_data.csv,
// creating the directory when missing.
func NewMetadataStore(dataDir string) (*MetadataStore, error) {
	dir := filepath.Join(dataDir, "symbol_data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating symbol data dir: %w", err)
	}
	return &MetadataStore{path: filepath.Join(dir, "symbol_data.csv")}, nil
}

// Path returns the store file location.
func (s *MetadataStore) Path() string { return s.path }

// Exists reports whether the store file has been created.
func (s *MetadataStore) Exists() bool { return fileExists(s.path) }

// Symbols returns the set of symbols already recorded.
func (s *MetadataStore) Symbols() (map[string]struct{}, error) {
	set := make(map[string]struct{})

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return set, nil
		}
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			first = false
			continue // header
		}
		if line == "" {
			continue
		}
		sym, _, _ := strings.Cut(line, Delimiter)
		if sym = strings.ToUpper(strings.TrimSpace(sym)); sym != "" {
			set[sym] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return set, nil
}

// Append writes one symbol's record, sanitizing free-text fields so they
// cannot corrupt the delimited layout.
func (s *MetadataStore) Append(md domain.SymbolMetadata, writeHeader bool) error {
	row := strings.Join([]string{
		strings.ToUpper(strings.TrimSpace(md.Symbol)),
		Sanitize(md.Name),
		Sanitize(md.Exchange),
		Sanitize(md.Class),
		Sanitize(md.Status),
		strconv.FormatBool(md.Tradable),
		strconv.FormatBool(md.Marginable),
		strconv.FormatBool(md.Shortable),
		strconv.FormatBool(md.EasyToBorrow),
		strconv.FormatBool(md.Fractionable),
	}, Delimiter)

	lines := make([]string, 0, 2)
	if writeHeader {
		lines = append(lines, strings.Join(metadataHeader, Delimiter))
	}
	return appendLines(s.path, append(lines, row))
}

// Sanitize collapses internal whitespace and replaces the store delimiter
// with a comma.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, Delimiter, ",")
	return strings.Join(strings.Fields(s), " ")
}
