package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/andresuchdata/restock-go/internal/domain"
	"github.com/andresuchdata/restock-go/internal/source"
)

// FileFetcher downloads a single Drive file.
type FileFetcher interface {
	FetchFile(ctx context.Context, fileID string, w io.Writer) (*File, error)
}

// EventSheetSource reads the event performance sheet straight from Drive.
type EventSheetSource struct {
	files  FileFetcher
	fileID string
}

// NewEventSheetSource returns a source for the Drive file fileID.
func NewEventSheetSource(files FileFetcher, fileID string) *EventSheetSource {
	return &EventSheetSource{files: files, fileID: fileID}
}

func (s *EventSheetSource) FetchEventSheet(ctx context.Context) (domain.EventSheet, error) {
	if s.fileID == "" {
		return domain.EventSheet{}, fmt.Errorf("event sheet file id is not configured")
	}

	var buf bytes.Buffer
	file, err := s.files.FetchFile(ctx, s.fileID, &buf)
	if err != nil {
		return domain.EventSheet{}, err
	}

	if !file.IsSpreadsheet() && strings.HasSuffix(strings.ToLower(file.Name), ".csv") {
		return source.ReadEventSheetCSV(&buf)
	}
	return source.ReadEventSheetXLSX(&buf)
}
