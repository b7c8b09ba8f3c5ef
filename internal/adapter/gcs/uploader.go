// Package gcs uploads Parquet output files to Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/couchcryptid/agent-precip-etl/internal/domain"
)

const contentTypeParquet = "application/vnd.apache.parquet"

// Uploader copies "<localDir>/<agent>.parquet" to
// "gs://<bucket>/<prefix>/<agent>.parquet". It implements pipeline.TableLoader
// and must run after the Parquet writer.
type Uploader struct {
	client   *storage.Client
	bucket   string
	prefix   string
	localDir string
	logger   *slog.Logger

	newWriter func(ctx context.Context, object string) io.WriteCloser
}

// NewUploader creates a client using Application Default Credentials.
func NewUploader(ctx context.Context, bucket, prefix, localDir string, logger *slog.Logger) (*Uploader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	u := &Uploader{
		client:   client,
		bucket:   bucket,
		prefix:   prefix,
		localDir: localDir,
		logger:   logger,
	}
	u.newWriter = u.objectWriter
	return u, nil
}

func (u *Uploader) objectWriter(ctx context.Context, object string) io.WriteCloser {
	w := u.client.Bucket(u.bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentTypeParquet
	return w
}

// ObjectName returns the object key for an agent's file.
func (u *Uploader) ObjectName(agent string) string {
	return path.Join(u.prefix, agent+".parquet")
}

// LoadTable uploads the agent's Parquet file.
func (u *Uploader) LoadTable(ctx context.Context, table domain.OutputTable) error {
	local := filepath.Join(u.localDir, table.Agent+".parquet")
	object := u.ObjectName(table.Agent)

	f, err := os.Open(local)
	if err != nil {
		return fmt.Errorf("open %s: %w", local, err)
	}
	defer f.Close()

	w := u.newWriter(ctx, object)
	n, err := io.Copy(w, f)
	if err != nil {
		_ = w.Close()
		return fmt.Errorf("upload gs://%s/%s: %w", u.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize gs://%s/%s: %w", u.bucket, object, err)
	}

	u.logger.Info("uploaded to gcs", "agent", table.Agent, "bucket", u.bucket, "object", object, "bytes", n)
	return nil
}

// Close releases the storage client.
func (u *Uploader) Close() error {
	if u.client == nil {
		return nil
	}
	return u.client.Close()
}
