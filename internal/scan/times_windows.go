package scan

import (
	"os"
	"syscall"
	"time"
)

// Windows reports a true creation time, which is what older-file keeper
// preference wants on NTFS volumes.
func ctimeFromSys(info os.FileInfo) (time.Time, bool) {
	st, ok := info.Sys().(*syscall.Win32FileAttributeData)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(0, st.CreationTime.Nanoseconds()), true
}
