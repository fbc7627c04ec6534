//go:build unix

package walk

import (
	"os"
	"syscall"
)

// deviceInodeKey extracts the device/inode pair the kernel assigns a
// directory, the most reliable symlink-loop signal (spec.md §4.4).
func deviceInodeKey(info os.FileInfo) (dev, ino uint64, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return uint64(st.Dev), uint64(st.Ino), true
}
