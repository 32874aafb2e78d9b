package pristine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// writeFile replaces name inside root with data through a temp file and a
// rename, so readers never observe a partial file.
func writeFile(root *os.Root, name string, data []byte) error {
	tmp, tmpPath, err := createTemp(root, filepath.Dir(name), filepath.Base(name))
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = root.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = root.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = root.Remove(tmpPath)
		return err
	}
	if err := root.Rename(tmpPath, name); err != nil {
		_ = root.Remove(tmpPath)
		return err
	}
	return nil
}

func createTemp(root *os.Root, dir, base string) (*os.File, string, error) {
	for tries := 0; tries < 100; tries++ {
		path := filepath.Join(dir, "."+base+"-"+uuid.NewString()+".tmp")
		f, err := root.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, defaultFilePerm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", err
		}
		return f, path, nil
	}
	return nil, "", errors.New("failed to create temp file")
}
