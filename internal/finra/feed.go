// Package finra downloads and parses the daily RegSHO short sale volume
// files. Each trading day is published as several pipe-delimited text files,
// one per reporting venue, after the evening cutoff.
package finra

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"regsho/internal/domain"
)

// ErrMarketClosed reports that no venue partition produced usable rows for a
// date, which is how the feed signals a day the market was closed.
var ErrMarketClosed = errors.New("market closed")

// DefaultBaseURL is the public host of the RegSHO daily files.
const DefaultBaseURL = "http://regsho.finra.org"

// partitions are the venue files that together cover one day's report.
var partitions = []string{"FNYX", "FNQC", "FNSQ"}

// requiredFields is the header a usable partition file must carry.
var requiredFields = []string{"Date", "Symbol", "ShortVolume", "ShortExemptVolume", "TotalVolume", "Market"}

// Client fetches RegSHO daily files over HTTP.
type Client struct {
	http *resty.Client
	log  *slog.Logger
}

// NewClient creates a feed client against the given base URL, falling back
// to DefaultBaseURL when empty.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http: resty.New().SetBaseURL(baseURL).SetTimeout(30 * time.Second),
		log:  slog.Default().With("feed", "regsho"),
	}
}

// Day downloads every venue partition for the given date and returns the
// combined rows. A partition that fails to download or parse is dropped and
// logged, never fatal; when no partition survives the day is reported as
// ErrMarketClosed.
func (c *Client) Day(ctx context.Context, date time.Time) ([]domain.ShortVolumeRecord, error) {
	day := date.Format("2006-01-02")

	var records []domain.ShortVolumeRecord
	for _, part := range partitions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := fmt.Sprintf("/%sshvol%s.txt", part, date.Format("20060102"))
		resp, err := c.http.R().SetContext(ctx).Get(path)
		if err != nil {
			c.log.Warn("partition fetch failed", "partition", part, "date", day, "error", err)
			continue
		}
		if resp.StatusCode() != http.StatusOK {
			c.log.Warn("partition fetch failed", "partition", part, "date", day, "status", resp.StatusCode())
			continue
		}

		rows, err := parsePartition(resp.String())
		if err != nil {
			c.log.Warn("partition unusable", "partition", part, "date", day, "error", err)
			continue
		}
		records = append(records, rows...)
	}

	if len(records) == 0 {
		return nil, ErrMarketClosed
	}
	return records, nil
}

// parsePartition parses one pipe-delimited partition file. It returns an
// error when the header misses a required field or no complete row parses.
func parsePartition(content string) ([]domain.ShortVolumeRecord, error) {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil, errors.New("empty partition")
	}

	idx, err := headerIndex(lines[0])
	if err != nil {
		return nil, err
	}

	var rows []domain.ShortVolumeRecord
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		rec, ok := parseRow(strings.Split(line, "|"), idx)
		if !ok {
			// Incomplete or malformed rows are dropped, matching the feed's
			// habit of appending trailer lines.
			continue
		}
		rows = append(rows, rec)
	}

	if len(rows) == 0 {
		return nil, errors.New("no usable rows")
	}
	return rows, nil
}

// headerIndex maps required field names to their column positions.
func headerIndex(header string) (map[string]int, error) {
	idx := make(map[string]int)
	for i, name := range strings.Split(strings.TrimSpace(header), "|") {
		idx[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredFields {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("header missing %q", name)
		}
	}
	return idx, nil
}

// parseRow converts one data line into a record. ok is false when any
// required field is absent, empty, or fails to parse.
func parseRow(cols []string, idx map[string]int) (domain.ShortVolumeRecord, bool) {
	field := func(name string) (string, bool) {
		i := idx[name]
		if i >= len(cols) {
			return "", false
		}
		v := strings.TrimSpace(cols[i])
		return v, v != ""
	}

	rawDate, ok := field("Date")
	if !ok {
		return domain.ShortVolumeRecord{}, false
	}
	date, err := time.Parse("20060102", rawDate)
	if err != nil {
		return domain.ShortVolumeRecord{}, false
	}

	symbol, ok := field("Symbol")
	if !ok {
		return domain.ShortVolumeRecord{}, false
	}
	market, ok := field("Market")
	if !ok {
		return domain.ShortVolumeRecord{}, false
	}

	var volumes [3]int64
	for i, name := range []string{"ShortVolume", "ShortExemptVolume", "TotalVolume"} {
		raw, ok := field(name)
		if !ok {
			return domain.ShortVolumeRecord{}, false
		}
		// Some files format counts as floats ("12345.0").
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return domain.ShortVolumeRecord{}, false
		}
		volumes[i] = int64(v)
	}

	return domain.ShortVolumeRecord{
		Date:              domain.Day(date),
		Symbol:            strings.ToUpper(symbol),
		ShortVolume:       volumes[0],
		ShortExemptVolume: volumes[1],
		TotalVolume:       volumes[2],
		Market:            market,
	}, true
}
