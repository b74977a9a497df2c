package dump

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// checkFileNotExists checks that there is no file at the specified path.
func checkFileNotExists(p string) error {
	_, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err == nil {
		err = fs.ErrExist
	}
	return fmt.Errorf("file '%s' absence check failed: %w", p, err)
}
