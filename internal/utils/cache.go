package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"transittracker.app/internal/report"
)

// CacheFileName names the cached copy of the resource at location:
// prefix, an underscore, the SHA-1 of location, then ext.
func CacheFileName(prefix, location, ext string) string {
	hash := sha1.Sum([]byte(location))
	return prefix + "_" + hex.EncodeToString(hash[:]) + ext
}

// GetLastCachedFile returns the most recently modified file in cacheDir
// whose name starts with prefix.
func GetLastCachedFile(cacheDir, prefix string) (string, error) {
	files, err := os.ReadDir(cacheDir)
	if err != nil {
		return "", err
	}

	var lastModTime time.Time
	var lastModFile string

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), prefix) {
			continue
		}
		fileInfo, err := file.Info()
		if err != nil {
			return "", err
		}
		if fileInfo.ModTime().After(lastModTime) {
			lastModTime = fileInfo.ModTime()
			lastModFile = file.Name()
		}
	}

	if lastModFile == "" {
		return "", fmt.Errorf("no cached files found with prefix %q", prefix)
	}

	return filepath.Join(cacheDir, lastModFile), nil
}

// CreateCacheDirectory ensures the cache directory exists, creating it if necessary.
func CreateCacheDirectory(cacheDir string) error {
	stat, err := os.Stat(cacheDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
				Level: sentry.LevelError,
				ExtraContext: map[string]interface{}{
					"cache_dir": cacheDir,
				},
			})
			return err
		}
		return nil
	}
	if !stat.IsDir() {
		err := fmt.Errorf("%s is not a directory", cacheDir)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Level: sentry.LevelError,
			ExtraContext: map[string]interface{}{
				"cache_dir": cacheDir,
			},
		})
		return err
	}
	return nil
}

// WriteCacheFile stores data as cacheDir/name. Readers never see a partial
// file: the data is written next to it and renamed into place.
func WriteCacheFile(cacheDir, name string, data []byte) error {
	if err := CreateCacheDirectory(cacheDir); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(cacheDir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(cacheDir, name))
}
