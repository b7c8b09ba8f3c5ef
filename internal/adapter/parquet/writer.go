// Package parquet writes output tables as Parquet files.
package parquet

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/agent-precip-etl/internal/domain"
	"github.com/xitongsys/parquet-go-source/local"
	pq "github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

const (
	fileExt     = ".parquet"
	parallelism = 4
)

// row is the on-disk layout of an output row. Column names and order are
// fixed, including the lower-case "region".
type row struct {
	Biosample     string  `parquet:"name=Biosample, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Agent         string  `parquet:"name=Agent, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Date          string  `parquet:"name=Date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Country       string  `parquet:"name=Country, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Region        string  `parquet:"name=region, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	Precipitation float64 `parquet:"name=Precipitation, type=DOUBLE"`
}

func toRow(r domain.OutputRow) row {
	return row(r)
}

// ReadTable reads a file written by Writer back into a table for the agent.
func ReadTable(path, agent string) (table domain.OutputTable, err error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return domain.OutputTable{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(row), parallelism)
	if err != nil {
		return domain.OutputTable{}, fmt.Errorf("read %s: %w", path, err)
	}
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	rows := make([]row, n)
	if n > 0 {
		if err := pr.Read(&rows); err != nil {
			return domain.OutputTable{}, fmt.Errorf("read rows of %s: %w", path, err)
		}
	}

	table = domain.OutputTable{Agent: agent, Rows: make([]domain.OutputRow, n)}
	for i := range rows {
		table.Rows[i] = domain.OutputRow(rows[i])
	}
	return table, nil
}

// Writer writes each table to "<dir>/<agent>.parquet".
// It implements pipeline.TableLoader.
type Writer struct {
	dir    string
	logger *slog.Logger
}

// NewWriter creates a Writer for dir. The directory must exist.
func NewWriter(dir string, logger *slog.Logger) *Writer {
	return &Writer{dir: dir, logger: logger}
}

// Path returns the output file path for an agent.
func (w *Writer) Path(agent string) string {
	return filepath.Join(w.dir, agent+fileExt)
}

// LoadTable writes the table, replacing any previous file for the agent. The
// file is written under a temporary name and renamed into place.
func (w *Writer) LoadTable(_ context.Context, table domain.OutputTable) error {
	path := w.Path(table.Agent)
	tmp := path + ".tmp"

	if err := writeFile(tmp, table.Rows); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write parquet %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename parquet %s: %w", path, err)
	}

	w.logger.Debug("parquet written", "agent", table.Agent, "path", path, "rows", len(table.Rows))
	return nil
}

func writeFile(path string, rows []domain.OutputRow) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if cerr := fw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close file: %w", cerr)
		}
	}()

	pw, err := writer.NewParquetWriter(fw, new(row), parallelism)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	pw.CompressionType = pq.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(toRow(rows[i])); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize: %w", err)
	}
	return nil
}
