package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// ImportKind names an importable or exportable dataset.
type ImportKind string

const (
	KindMentees  ImportKind = "mentees"
	KindMentors  ImportKind = "mentors"
	KindGroups   ImportKind = "groups"
	KindMeetings ImportKind = "meetings"
)

// Export formats.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
	FormatPDF  = "pdf"
)

// ErrUnknownKind is returned for a dataset the backend does not know.
var ErrUnknownKind = errors.New("unknown import kind")

// ParseImportKind validates a dataset name.
func ParseImportKind(s string) (ImportKind, error) {
	switch k := ImportKind(s); k {
	case KindMentees, KindMentors, KindGroups, KindMeetings:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ImportService uploads spreadsheets and downloads templates and exports.
type ImportService struct {
	c *apiclient.Client
}

// Upload sends a spreadsheet for import.
func (s *ImportService) Upload(ctx context.Context, kind ImportKind, name string, r io.Reader) (*model.ImportResult, error) {
	resp, err := s.c.Do(ctx, &apiclient.Request{
		Method:    http.MethodPost,
		Path:      "/import/" + string(kind),
		Multipart: apiclient.NewMultipart().File("file", name, r),
		Timeout:   s.c.Config().UploadTimeout,
	})
	if err != nil {
		return nil, err
	}
	var res model.ImportResult
	if err := apiclient.DecodeData(resp, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Template downloads the empty import spreadsheet for kind.
func (s *ImportService) Template(ctx context.Context, kind ImportKind) (*apiclient.Download, error) {
	return s.c.Download(ctx, "/import/"+string(kind)+"/template", nil)
}

// Export downloads kind in the given format, CSV when format is empty.
// Empty filter values are skipped.
func (s *ImportService) Export(ctx context.Context, kind ImportKind, format string, filters map[string]string) (*apiclient.Download, error) {
	if format == "" {
		format = FormatCSV
	}
	q := url.Values{}
	q.Set("format", format)
	for k, v := range filters {
		if v != "" {
			q.Set(k, v)
		}
	}
	return s.c.Download(ctx, "/export/"+string(kind), q)
}
