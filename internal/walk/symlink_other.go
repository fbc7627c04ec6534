//go:build !unix

package walk

import "os"

// deviceInodeKey has no portable non-unix implementation; pathStackKey
// falls back to a canonicalized-path hash instead.
func deviceInodeKey(info os.FileInfo) (dev, ino uint64, ok bool) {
	return 0, 0, false
}
