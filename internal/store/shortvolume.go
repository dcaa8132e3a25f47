package store

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"regsho/internal/domain"
)

// shortDateLayout is the compact date format of the short-volume file,
// inherited from the feed itself.
const shortDateLayout = "20060102"

var shortVolumeHeader = []string{"Date", "Symbol", "ShortVolume", "ShortExemptVolume", "TotalVolume", "Market"}

// ShortVolumeStore is the single append-only file holding every symbol's
// daily short-volume rows, partitioned by date ascending.
type ShortVolumeStore struct {
	path string
}

// NewShortVolumeStore roots the store at <dataDir>/regsho_data/regsho_data.csv,
// creating the directory when missing.
func NewShortVolumeStore(dataDir string) (*ShortVolumeStore, error) {
	dir := filepath.Join(dataDir, "regsho_data")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating regsho data dir: %w", err)
	}
	return &ShortVolumeStore{path: filepath.Join(dir, "regsho_data.csv")}, nil
}

// Path returns the store file location.
func (s *ShortVolumeStore) Path() string { return s.path }

// Exists reports whether the store file has been created.
func (s *ShortVolumeStore) Exists() bool { return fileExists(s.path) }

// LastDate returns the session date of the final row. The store's dates are
// non-contiguous (closed days are simply absent), so this is the literal
// last line, not a calendar slot.
func (s *ShortVolumeStore) LastDate() (time.Time, error) {
	return lastDate(s.path, shortDateLayout)
}

// AppendDay appends one day's rows in a single write. The header goes in
// front only when writeHeader is set, which the synchronizer ties to the
// dataset's inception day to match the legacy file layout.
func (s *ShortVolumeStore) AppendDay(records []domain.ShortVolumeRecord, writeHeader bool) error {
	lines := make([]string, 0, len(records)+1)
	if writeHeader {
		lines = append(lines, strings.Join(shortVolumeHeader, Delimiter))
	}
	for _, r := range records {
		lines = append(lines, strings.Join([]string{
			r.Date.Format(shortDateLayout),
			r.Symbol,
			strconv.FormatInt(r.ShortVolume, 10),
			strconv.FormatInt(r.ShortExemptVolume, 10),
			strconv.FormatInt(r.TotalVolume, 10),
			r.Market,
		}, Delimiter))
	}
	return appendLines(s.path, lines)
}

// Load reads the whole store into memory in row order. A missing file
// yields no records and no error. Header and malformed lines are skipped.
func (s *ShortVolumeStore) Load() ([]domain.ShortVolumeRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var records []domain.ShortVolumeRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cols := strings.Split(line, Delimiter)
		if len(cols) < len(shortVolumeHeader) {
			continue
		}
		date, err := time.Parse(shortDateLayout, cols[0])
		if err != nil {
			// Header line or junk.
			continue
		}
		sv, err1 := strconv.ParseInt(cols[2], 10, 64)
		se, err2 := strconv.ParseInt(cols[3], 10, 64)
		tv, err3 := strconv.ParseInt(cols[4], 10, 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		records = append(records, domain.ShortVolumeRecord{
			Date:              domain.Day(date),
			Symbol:            cols[1],
			ShortVolume:       sv,
			ShortExemptVolume: se,
			TotalVolume:       tv,
			Market:            cols[5],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return records, nil
}
