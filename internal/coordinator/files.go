package coordinator

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// StoreFiles lists a durable store's files: the data file and its WAL and
// shared-memory side files.
func StoreFiles(path string) []string {
	return []string{path, path + "-wal", path + "-shm"}
}

// RemoveFiles deletes the store's side files and then the data file.
// Missing files are not an error.
func RemoveFiles(path string) error {
	files := StoreFiles(path)
	var errs []error
	for _, f := range []string{files[1], files[2], files[0]} {
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// copySeed copies a prebuilt store out of the bundle. dest must not exist;
// a partial copy is removed.
func copySeed(bundle fs.FS, seed, dest string) (err error) {
	src, err := bundle.Open(seed)
	if err != nil {
		return fmt.Errorf("open seed: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create store file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close store file: %w", cerr)
		}
		if err != nil {
			os.Remove(dest)
		}
	}()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("copy seed: %w", err)
	}
	return nil
}
