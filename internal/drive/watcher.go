package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/restock-go/internal/source"
)

// FileClient is the part of the Drive API the downloader needs.
type FileClient interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	FetchFile(ctx context.Context, fileID string, w io.Writer) (*File, error)
}

// DownloadOptions controls how input tables are pulled from Google Drive.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader syncs the input tables of a forecast run from a Drive folder
// into a local directory laid out for source.Dir.
type Downloader struct {
	client FileClient
}

// NewDownloader creates a new Downloader.
func NewDownloader(client FileClient) *Downloader {
	return &Downloader{client: client}
}

// inputTables are the base names a forecast run reads.
var inputTables = map[string]bool{
	trimExt(source.SalesFile):      true,
	trimExt(source.InventoryFile):  true,
	trimExt(source.WarehouseFile):  true,
	trimExt(source.IncomingFile):   true,
	trimExt(source.DictionaryFile): true,
	trimExt(source.DimensionsFile): true,
}

// DownloadFolder fetches every known input table from the folder and returns
// the local paths written.
//
//   - CSV files are stored as is.
//   - XLSX files and Google Sheets are converted to CSV from their first sheet.
//   - The event sheet is kept as a workbook.
//
// Files with other names are skipped.
func (d *Downloader) DownloadFolder(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.client.ListFiles(ctx, opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		base := strings.ToLower(trimExt(f.Name))
		ext := strings.ToLower(filepath.Ext(f.Name))
		if f.IsSpreadsheet() {
			ext = ".xlsx"
		}
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		var target string
		switch {
		case base == trimExt(source.EventSheetXLSXFile):
			target = filepath.Join(opts.DownloadDir, base+ext)
		case inputTables[base]:
			target = filepath.Join(opts.DownloadDir, base+".csv")
		default:
			log.Debug().Str("file", f.Name).Msg("drive: skipping unrelated file")
			continue
		}

		if err := d.fetchTo(ctx, f, ext, target); err != nil {
			return nil, err
		}
		localPaths = append(localPaths, target)
	}

	log.Info().Str("folder", opts.FolderID).Int("files", len(localPaths)).Msg("drive: inputs downloaded")
	return localPaths, nil
}

func (d *Downloader) fetchTo(ctx context.Context, f *File, ext, target string) error {
	var buf bytes.Buffer
	if _, err := d.client.FetchFile(ctx, f.ID, &buf); err != nil {
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}

	if ext == ".xlsx" && filepath.Ext(target) == ".csv" {
		if err := convertXLSXToCSV(&buf, target); err != nil {
			return fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
		}
		return nil
	}

	if err := os.WriteFile(target, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}

func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
