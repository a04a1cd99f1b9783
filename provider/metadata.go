package provider

import (
	"os"
	"time"
)

// localFileInfo keeps the os.FileInfo it was built from so identity checks
// (os.SameFile) keep working on wrapped values.
type localFileInfo struct {
	os.FileInfo
	atime time.Time
}

func (l *localFileInfo) AccessTime() time.Time { return l.atime }

// WrapOSFileInfo converts an os.FileInfo into a FileInfo.
func WrapOSFileInfo(info os.FileInfo) FileInfo {
	return &localFileInfo{
		FileInfo: info,
		atime:    accessTime(info),
	}
}

// SameFile reports whether a and b describe the same underlying file. It is
// false unless both values came from WrapOSFileInfo.
func SameFile(a, b FileInfo) bool {
	la, ok := a.(*localFileInfo)
	if !ok {
		return false
	}
	lb, ok := b.(*localFileInfo)
	if !ok {
		return false
	}
	return os.SameFile(la.FileInfo, lb.FileInfo)
}
