//go:build !unix

package search

import "os"

// mmapFile has no portable implementation outside unix; SearchPath falls
// back to reader-streaming on every platform this build targets.
func mmapFile(f *os.File) (data []byte, closeFn func() error, ok bool, err error) {
	return nil, nil, false, nil
}
