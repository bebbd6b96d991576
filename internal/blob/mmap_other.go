//go:build !unix

package blob

import (
	"errors"
	"os"
)

var errNoMmap = errors.New("mmap not supported on this platform")

func mapFile(*os.File, int64) ([]byte, func() error, error) {
	return nil, nil, errNoMmap
}
