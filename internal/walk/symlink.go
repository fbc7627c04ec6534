package walk

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	rgerrors "github.com/standardbeagle/rgcore/internal/errors"
)

// pathStackKey computes the symlink-loop detection key for a directory
// entry (spec.md §4.4 "maintaining a path-stack (device+inode on
// platforms that support it; canonicalized path otherwise)"). Only
// directories need a key, since only directories are ever descended into.
func pathStackKey(path string, info os.FileInfo) (uint64, bool) {
	if !info.IsDir() {
		return 0, false
	}
	if dev, ino, ok := deviceInodeKey(info); ok {
		var buf [16]byte
		binary.LittleEndian.PutUint64(buf[:8], dev)
		binary.LittleEndian.PutUint64(buf[8:], ino)
		return xxhash.Sum64(buf[:]), true
	}
	canon, err := filepath.EvalSymlinks(path)
	if err != nil {
		canon = path
	}
	return xxhash.Sum64String(canon), true
}

func errSymlinkLoop(path string) error {
	return rgerrors.New(rgerrors.KindSymlinkLoop, path, fmt.Errorf("symlink loop detected"))
}

// statForDescent decides whether the walker should read path as a
// directory: info (from Lstat) is returned unchanged when it is already
// a directory; when it's a symlink, the target is resolved with Stat and
// returned in its place only if the target itself is a directory. Any
// other entry (regular file, broken symlink, symlink to a non-directory)
// yields ok=false. The entry reported to the visitor always keeps the
// original Lstat info — this only affects whether/how the walker
// recurses.
func statForDescent(path string, info os.FileInfo) (os.FileInfo, bool) {
	if info.IsDir() {
		return info, true
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return nil, false
	}
	target, err := os.Stat(path)
	if err != nil || !target.IsDir() {
		return nil, false
	}
	return target, true
}

// pathStack is the walker's current chain of ancestor directory keys,
// hashed with xxhash rather than kept as raw strings/inode pairs so
// membership checks during deep recursion stay a cheap uint64 compare.
type pathStack struct {
	keys []uint64
}

func newPathStack() *pathStack { return &pathStack{} }

func (s *pathStack) push(k uint64) { s.keys = append(s.keys, k) }

func (s *pathStack) pop() { s.keys = s.keys[:len(s.keys)-1] }

func (s *pathStack) contains(k uint64) bool {
	for _, existing := range s.keys {
		if existing == k {
			return true
		}
	}
	return false
}
