package stores

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	fa "github.com/panyam/fireauth"
)

// writeAtomicFile replaces path with data through a temp file in the same
// directory, so readers never see a partial record.
func writeAtomicFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

// readJSON decodes path into v. A missing file is reported as fa.ErrNotFound.
func readJSON(path string, what, key string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s %s: %w", what, key, fa.ErrNotFound)
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// listJSON decodes every .json file under dir with decode. A missing dir is
// an empty listing.
func listJSON(dir string, decode func(data []byte) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return err
		}
		if err := decode(data); err != nil {
			return fmt.Errorf("decode %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// safeName turns a key (email, id) into a single path element.
func safeName(key string) string {
	return url.PathEscape(key) + ".json"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
