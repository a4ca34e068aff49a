package drive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/andresuchdata/restock-go/internal/domain"
)

type fakeClient struct {
	files   []*File
	content map[string][]byte
}

func (f *fakeClient) ListFiles(context.Context, string) ([]*File, error) {
	return f.files, nil
}

func (f *fakeClient) FetchFile(_ context.Context, fileID string, w io.Writer) (*File, error) {
	for _, file := range f.files {
		if file.ID == fileID {
			_, err := w.Write(f.content[fileID])
			return file, err
		}
	}
	return nil, errors.New("not found")
}

func workbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestDownloader_DownloadFolder(t *testing.T) {
	client := &fakeClient{
		files: []*File{
			{ID: "1", Name: "sales.csv", MimeType: "text/csv"},
			{ID: "2", Name: "Inventory.xlsx", MimeType: xlsxMimeType},
			{ID: "3", Name: "event_sheet", MimeType: spreadsheetMimeType},
			{ID: "4", Name: "notes.txt", MimeType: "text/plain"},
			{ID: "5", Name: "budget.csv", MimeType: "text/csv"},
		},
		content: map[string][]byte{
			"1": []byte("date,asin,unit_sales\n2024-06-01,A1,2\n"),
			"3": []byte("workbook"),
		},
	}
	client.content["2"] = workbook(t, [][]interface{}{{"date", "asin", "sku"}, {"2024-06-01", "A1", "SKU-A"}})

	dir := t.TempDir()
	paths, err := NewDownloader(client).DownloadFolder(context.Background(), DownloadOptions{FolderID: "folder", DownloadDir: dir})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "sales.csv"),
		filepath.Join(dir, "inventory.csv"),
		filepath.Join(dir, "event_sheet.xlsx"),
	}, paths)

	inventory, err := os.ReadFile(filepath.Join(dir, "inventory.csv"))
	require.NoError(t, err)
	assert.Equal(t, "date,asin,sku\n2024-06-01,A1,SKU-A\n", string(inventory))

	sheet, err := os.ReadFile(filepath.Join(dir, "event_sheet.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(sheet))
}

func TestDownloader_RequiresDir(t *testing.T) {
	_, err := NewDownloader(&fakeClient{}).DownloadFolder(context.Background(), DownloadOptions{})
	require.Error(t, err)
}

func TestEventSheetSource_XLSX(t *testing.T) {
	client := &fakeClient{
		files: []*File{{ID: "sheet", Name: "Event performance", MimeType: spreadsheetMimeType}},
		content: map[string][]byte{
			"sheet": workbook(t, [][]interface{}{
				{domain.EventEntityColumn, "PD Avg"},
				{"A1", "40"},
				{"", ""},
			}),
		},
	}

	sheet, err := NewEventSheetSource(client, "sheet").FetchEventSheet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{domain.EventEntityColumn, "PD Avg"}, sheet.Header)
	assert.Equal(t, [][]string{{"A1", "40"}}, sheet.Rows)
}

func TestEventSheetSource_CSV(t *testing.T) {
	client := &fakeClient{
		files:   []*File{{ID: "csv", Name: "events.csv", MimeType: "text/csv"}},
		content: map[string][]byte{"csv": []byte("ASIN,PD Avg\nA1,40\n")},
	}

	sheet, err := NewEventSheetSource(client, "csv").FetchEventSheet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A1", "40"}}, sheet.Rows)
}

func TestEventSheetSource_NotConfigured(t *testing.T) {
	_, err := NewEventSheetSource(&fakeClient{}, "").FetchEventSheet(context.Background())
	require.Error(t, err)
}
