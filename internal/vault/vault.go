// Package vault stores receipt document binaries in a GCS bucket and builds
// archive exports of linked receipts.
package vault

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	gcsstorage "cloud.google.com/go/storage"

	"github.com/castlemilk/taxledger/backend/internal/model"
)

// Vault wraps the GCS bucket holding receipt binaries. Receipt records keep
// only the object path (DocumentRef); the bytes never pass through the store.
type Vault struct {
	bucket *gcsstorage.BucketHandle
}

// New creates a vault over a GCS bucket handle.
func New(bucket *gcsstorage.BucketHandle) *Vault {
	return &Vault{bucket: bucket}
}

// Put writes a receipt document and returns its object path.
func (v *Vault) Put(ctx context.Context, tenantID, receiptID, filename string, r io.Reader) (string, error) {
	path := fmt.Sprintf("receipts/%s/%s%s", tenantID, receiptID, extensionFromPath(filename))
	w := v.bucket.Object(path).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("write receipt document: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close receipt document: %w", err)
	}
	return path, nil
}

// Open reads a stored receipt document.
func (v *Vault) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	r, err := v.bucket.Object(path).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open receipt document: %w", err)
	}
	return r, nil
}

// Delete removes a stored receipt document.
func (v *Vault) Delete(ctx context.Context, path string) error {
	if err := v.bucket.Object(path).Delete(ctx); err != nil {
		return fmt.Errorf("delete receipt document: %w", err)
	}
	return nil
}

// ArchiveEntry names one receipt inside an export archive: the folder is the
// reporting line of the linked transaction, the label comes from the vendor
// and date.
type ArchiveEntry struct {
	Receipt *model.Receipt
	Folder  string
	Label   string
}

// ExportArchive builds a ZIP of receipt documents organized into per-line
// folders. Objects that cannot be read are skipped rather than failing the
// whole export; the returned count is the number of documents included.
func (v *Vault) ExportArchive(ctx context.Context, entries []ArchiveEntry) ([]byte, int, error) {
	var buf bytes.Buffer
	zipWriter := zip.NewWriter(&buf)

	count := 0
	for _, entry := range entries {
		if entry.Receipt.DocumentRef == "" {
			continue
		}
		name := sanitizeFilename(entry.Label)
		if name == "" {
			name = "receipt"
		}
		short := entry.Receipt.ID
		if len(short) > 8 {
			short = short[:8]
		}
		filename := fmt.Sprintf("%s/%s_%s%s",
			entry.Folder, name, short, extensionFromPath(entry.Receipt.DocumentRef))

		reader, err := v.bucket.Object(entry.Receipt.DocumentRef).NewReader(ctx)
		if err != nil {
			continue
		}
		data, err := io.ReadAll(reader)
		reader.Close()
		if err != nil {
			continue
		}

		w, err := zipWriter.Create(filename)
		if err != nil {
			continue
		}
		if _, err := w.Write(data); err != nil {
			continue
		}
		count++
	}

	if err := zipWriter.Close(); err != nil {
		return nil, 0, fmt.Errorf("create zip: %w", err)
	}
	return buf.Bytes(), count, nil
}

// sanitizeFilename removes or replaces characters unsafe for filenames.
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "", "?", "", "\"", "", "<", "", ">", "", "|", "")
	result := replacer.Replace(s)
	if len(result) > 50 {
		result = result[:50]
	}
	return result
}

// extensionFromPath extracts the file extension from a storage path.
func extensionFromPath(path string) string {
	idx := strings.LastIndex(path, ".")
	if idx < 0 {
		return ".bin"
	}
	return path[idx:]
}
