// Package dataset fetches the raw infraction lines the validator loads.
// Sources never parse lines; the registry does, so every source is held to
// the same format.
package dataset

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/brojonat/coinguard/service/metrics"
)

// Kinds of sources accepted by New.
const (
	KindStatic   = "static"
	KindFile     = "file"
	KindPostgres = "postgres"
)

//go:embed infractions.tsv
var embedded []byte

// Source yields dataset lines in order.
type Source interface {
	Lines(ctx context.Context) ([]string, error)
	Name() string
}

// LineStore is the subset of the database store read by StoreSource.
type LineStore interface {
	ListInfractionLines(ctx context.Context) ([]string, error)
}

// Config selects and configures a source.
type Config struct {
	Kind string
	Path string // KindFile
}

// New returns the source named by cfg.Kind. store is only used for
// KindPostgres and must be non-nil then.
func New(cfg Config, store LineStore) (Source, error) {
	switch cfg.Kind {
	case "", KindStatic:
		return StaticSource{}, nil
	case KindFile:
		if cfg.Path == "" {
			return nil, fmt.Errorf("file dataset source requires a path")
		}
		return FileSource{Path: cfg.Path}, nil
	case KindPostgres:
		if store == nil {
			return nil, fmt.Errorf("postgres dataset source requires a store")
		}
		return StoreSource{Store: store}, nil
	default:
		return nil, fmt.Errorf("unknown dataset source %q", cfg.Kind)
	}
}

// StaticSource serves the dataset compiled into the binary.
type StaticSource struct{}

func (StaticSource) Name() string { return KindStatic }

func (StaticSource) Lines(ctx context.Context) ([]string, error) {
	return SplitLines(embedded)
}

// FileSource reads a tab-separated dataset file.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return KindFile }

func (s FileSource) Lines(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.Path, err)
	}
	return SplitLines(data)
}

// StoreSource reads the dataset from Postgres in insertion order.
type StoreSource struct {
	Store LineStore
}

func (s StoreSource) Name() string { return KindPostgres }

func (s StoreSource) Lines(ctx context.Context) ([]string, error) {
	lines, err := s.Store.ListInfractionLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset from postgres: %w", err)
	}
	return lines, nil
}

// SplitLines splits data on "\n". A single trailing newline does not yield
// an extra record; any other empty line is kept so the parser rejects it.
// Carriage returns are left in place.
func SplitLines(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(splitNewline)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to split dataset: %w", err)
	}
	return lines, nil
}

// splitNewline is bufio.ScanLines without the carriage return stripping.
func splitNewline(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// Fetch reads lines from src and records the fetch duration on m, which may
// be nil.
func Fetch(ctx context.Context, src Source, m *metrics.Metrics) ([]string, error) {
	start := time.Now()
	lines, err := src.Lines(ctx)
	if m != nil {
		m.RecordDatasetFetch(src.Name(), time.Since(start).Seconds(), err)
	}
	return lines, err
}

// Join renders lines back into file form, one record per line.
func Join(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
