package scan

import (
	"os"
	"time"
)

// fileTimes extracts the change/creation time and modification time for a
// file. Filesystems that expose no ctime (and in-memory test filesystems)
// fall back to mtime for both.
func fileTimes(info os.FileInfo) (ctime, mtime time.Time) {
	mtime = info.ModTime()
	if ct, ok := ctimeFromSys(info); ok {
		return ct, mtime
	}
	return mtime, mtime
}
