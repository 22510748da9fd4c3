// Package archive writes aged-out readings to parquet files before
// retention deletes them from the database. Files are partitioned by
// month so a year of history stays a handful of columnar files that
// DuckDB can query directly if old data is ever needed again.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/77degrees/climate-analyzer/internal/model"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("parquet writer closed")

// =============================================================================
// Options
// =============================================================================

// Options configures the parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType
}

// CompressionType represents a parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionGzip
)

// DefaultOptions returns default parquet options.
func DefaultOptions() Options {
	return Options{
		Compression: CompressionZstd,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// =============================================================================
// Row Conversion
// =============================================================================

// ReadingRow represents a reading in parquet format. The entity ID is
// denormalized in so archive files stand alone without the sensors
// table.
type ReadingRow struct {
	EntityID     string   `parquet:"entity_id,zstd"`
	SensorID     int64    `parquet:"sensor_id"`
	TimestampMs  int64    `parquet:"timestamp_ms"`
	Value        *float64 `parquet:"value,optional"`
	HVACAction   *string  `parquet:"hvac_action,optional,zstd"`
	HVACMode     *string  `parquet:"hvac_mode,optional,zstd"`
	SetpointHeat *float64 `parquet:"setpoint_heat,optional"`
	SetpointCool *float64 `parquet:"setpoint_cool,optional"`
	FanMode      *string  `parquet:"fan_mode,optional,zstd"`
}

// SampleToRow converts a Sample to a ReadingRow.
func SampleToRow(s *model.Sample, entityID string) ReadingRow {
	return ReadingRow{
		EntityID:     entityID,
		SensorID:     s.SensorID,
		TimestampMs:  s.Timestamp.UnixMilli(),
		Value:        s.Value,
		HVACAction:   s.HVACAction,
		HVACMode:     s.HVACMode,
		SetpointHeat: s.SetpointHeat,
		SetpointCool: s.SetpointCool,
		FanMode:      s.FanMode,
	}
}

// RowToSample converts a ReadingRow back to a Sample.
func RowToSample(r *ReadingRow) model.Sample {
	return model.Sample{
		SensorID:     r.SensorID,
		Timestamp:    time.UnixMilli(r.TimestampMs).UTC(),
		Value:        r.Value,
		HVACAction:   r.HVACAction,
		HVACMode:     r.HVACMode,
		SetpointHeat: r.SetpointHeat,
		SetpointCool: r.SetpointCool,
		FanMode:      r.FanMode,
	}
}

// =============================================================================
// Writer
// =============================================================================

// Writer writes readings to a parquet file.
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[ReadingRow]
	rowCount int64
	closed   bool
}

// NewWriter creates a new reading parquet writer.
func NewWriter(path string, opts Options) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}

	return &Writer{
		path:   path,
		file:   f,
		writer: parquet.NewGenericWriter[ReadingRow](f, writerOpts...),
	}, nil
}

// Write writes rows to the parquet file.
func (w *Writer) Write(rows []ReadingRow) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// Close closes the writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// =============================================================================
// Reader
// =============================================================================

// ReadFile reads all rows from an archive file.
func ReadFile(path string) ([]ReadingRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[ReadingRow](f)
	defer reader.Close()

	out := make([]ReadingRow, 0, reader.NumRows())
	buf := make([]ReadingRow, 1024)
	for {
		n, err := reader.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			break
		}
	}

	return out, nil
}
