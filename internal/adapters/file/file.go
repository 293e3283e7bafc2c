package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// DownloadFile returns the byte content of a file on a provided URL.
func DownloadFile(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		err = fmt.Errorf("error creating request %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		err = fmt.Errorf("error executing request %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("unexpected status code on download: %d", res.StatusCode)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}

	buf, err := io.ReadAll(res.Body)
	if err != nil {
		err = fmt.Errorf("error reading response %w", err)
		log.Error().Err(err).Str("path", path).Send()
		return nil, err
	}

	return buf, nil
}

// Load returns the content of source, which is either an http(s) URL or a local path.
func Load(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return DownloadFile(ctx, source)
	}

	buf, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("error reading file %w", err)
	}

	return buf, nil
}

// ReadFile returns the content of path, or nil without error when the file does not exist.
func ReadFile(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading file %w", err)
	}

	return buf, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into place, so readers never see a
// partially written file.
func WriteFileAtomic(path string, data []byte) error {
	id, err := uuid.NewV4()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("error creating directory %w", err)
	}

	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), id.String()))

	log.Trace().Int("bytes", len(data)).Str("path", path).Msg("writing file")

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("error writing temp file %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		RemoveFile(tmp)
		return fmt.Errorf("error replacing file %w", err)
	}

	return nil
}

// RemoveFile removes a file at the given path and logs failures. Missing files are not an error.
func RemoveFile(path string) {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("path", path).Err(err).Msg("could not remove file")
		return
	}
	log.Trace().Str("path", path).Msg("removed file")
}
