package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// SysHealth is the health endpoint payload: process memory stats plus the
// on-disk footprint of the planner's data directory, with the sqlite database
// (and its WAL/journal sidecars) broken out from caches and everything else.
type SysHealth struct {
	AllocMB      uint64
	TotalAllocMB uint64
	SysMB        uint64
	NumGC        uint32
	Goroutines   int
	DatabaseSize string
	DataDirSize  string
}

// GetSysHealth collects real-time health data. dataDir is the directory
// holding the sqlite file and the embedding cache.
func GetSysHealth(dataDir string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	dbBytes, totalBytes := dataDirSizes(dataDir)

	return SysHealth{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		DatabaseSize: humanSize(dbBytes),
		DataDirSize:  humanSize(totalBytes),
	}
}

// dataDirSizes walks the data directory once, summing sqlite files (.db plus
// the -wal/-shm/-journal sidecars sqlite leaves next to them) separately from
// the directory total.
func dataDirSizes(dir string) (dbBytes, totalBytes int64) {
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		totalBytes += info.Size()
		if isSQLiteFile(path) {
			dbBytes += info.Size()
		}
		return nil
	})
	return dbBytes, totalBytes
}

func isSQLiteFile(path string) bool {
	for _, suffix := range []string{".db", ".db-wal", ".db-shm", ".db-journal"} {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func humanSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
