//go:build !(linux || darwin || freebsd || netbsd)

package provider

import (
	"os"
	"time"
)

// Platforms without a portable access time report the modification time.
func fileTimes(path string) (time.Time, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return info.ModTime(), info.ModTime(), nil
}

func setFileTimes(path string, atime, mtime time.Time) error {
	return os.Chtimes(path, atime, mtime)
}

func accessTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
