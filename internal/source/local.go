package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/ginjaninja78/wfc-ingest/internal/types"
	"github.com/ginjaninja78/wfc-ingest/internal/workbook"
)

// LocalSource discovers exports in a directory. It stands in for the Drive
// folder when files have been downloaded by hand. The modification time
// plays the role of the created time.
type LocalSource struct {
	dir string
}

// NewLocal returns a source over dir.
func NewLocal(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

// ListFiles returns the .csv and .xlsx files directly under the directory.
func (s *LocalSource) ListFiles(_ context.Context) ([]types.SourceFile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "read dir")
	}

	var files []types.SourceFile
	for _, e := range entries {
		if e.IsDir() || !supported(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", e.Name())
		}
		files = append(files, types.SourceFile{
			ID:        e.Name(),
			Name:      e.Name(),
			CreatedAt: info.ModTime(),
		})
	}
	return files, nil
}

// FetchCSV reads a file by name. Workbooks are converted to CSV.
func (s *LocalSource) FetchCSV(_ context.Context, id string) ([]byte, error) {
	if filepath.Base(id) != id {
		return nil, errors.Errorf("invalid file id %q", id)
	}
	path := filepath.Join(s.dir, id)

	if strings.EqualFold(filepath.Ext(id), ".xlsx") {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open workbook")
		}
		defer f.Close()

		data, err := workbook.ToCSV(f)
		if err != nil {
			return nil, types.NewPipelineError(types.KindParse, id, err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}
	return data, nil
}

func supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return !strings.HasPrefix(name, "~$")
	}
	return false
}
