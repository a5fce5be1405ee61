package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/types"
)

// Google Sheets are exported; anything else is downloaded as is.
const (
	mimeSpreadsheet = "application/vnd.google-apps.spreadsheet"
	mimeCSV         = "text/csv"
)

// DriveSource discovers exports in a shared-drive folder.
type DriveSource struct {
	files    *drive.FilesService
	folderID string
	driveID  string
	logger   *zap.Logger
}

// NewDrive builds a Drive client. Credentials are read from
// cfg.CredentialsFile, which may hold a service account key or an external
// account (workload identity federation) configuration. When cfg.Endpoint is
// set the client talks to it without authentication.
func NewDrive(ctx context.Context, cfg config.DriveConfig, logger *zap.Logger) (*DriveSource, error) {
	var opts []option.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	} else {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, errors.Wrap(err, "read credentials")
		}
		creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveReadonlyScope)
		if err != nil {
			return nil, errors.Wrap(err, "parse credentials")
		}
		opts = append(opts, option.WithCredentials(creds))
	}

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create drive service")
	}

	return &DriveSource{
		files:    svc.Files,
		folderID: cfg.FolderID,
		driveID:  cfg.DriveID,
		logger:   logger,
	}, nil
}

// ListFiles lists every file in the folder, newest first.
func (s *DriveSource) ListFiles(ctx context.Context) ([]types.SourceFile, error) {
	call := s.files.List().
		Q(fmt.Sprintf("'%s' in parents", strings.ReplaceAll(s.folderID, "'", `\'`))).
		IncludeItemsFromAllDrives(true).
		SupportsAllDrives(true).
		Spaces("drive").
		Fields("nextPageToken, files(id, name, createdTime, trashed)").
		OrderBy("createdTime desc")
	if s.driveID != "" {
		call = call.Corpora("drive").DriveId(s.driveID)
	}

	var files []types.SourceFile
	err := call.Pages(ctx, func(page *drive.FileList) error {
		for _, f := range page.Files {
			created, err := time.Parse(time.RFC3339, f.CreatedTime)
			if err != nil {
				return errors.Wrapf(err, "created time of %s", f.Name)
			}
			files = append(files, types.SourceFile{
				ID:        f.Id,
				Name:      f.Name,
				CreatedAt: created,
				Trashed:   f.Trashed,
			})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list drive folder")
	}

	s.logger.Debug("listed drive folder", zap.String("folder", s.folderID), zap.Int("files", len(files)))
	return files, nil
}

// FetchCSV returns a file's content as CSV.
func (s *DriveSource) FetchCSV(ctx context.Context, id string) ([]byte, error) {
	meta, err := s.files.Get(id).SupportsAllDrives(true).Fields("id, name, mimeType").Context(ctx).Do()
	if err != nil {
		return nil, errors.Wrapf(err, "get metadata of %s", id)
	}

	var body io.ReadCloser
	if meta.MimeType == mimeSpreadsheet {
		resp, err := s.files.Export(id, mimeCSV).Context(ctx).Download()
		if err != nil {
			return nil, errors.Wrapf(err, "export %s", meta.Name)
		}
		body = resp.Body
	} else {
		resp, err := s.files.Get(id).SupportsAllDrives(true).Context(ctx).Download()
		if err != nil {
			return nil, errors.Wrapf(err, "download %s", meta.Name)
		}
		body = resp.Body
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", meta.Name)
	}
	s.logger.Debug("fetched file", zap.String("name", meta.Name), zap.String("mime_type", meta.MimeType),
		zap.Int("bytes", len(data)))
	return data, nil
}
