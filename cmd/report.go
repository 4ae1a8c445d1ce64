// File: cmd/report.go
package cmd

import (
	"fmt"
	"path/filepath"
	"time"
)

// reportPath names a per-batch report file by its start instant, so repeated
// firings never overwrite each other.
func reportPath(dir string, startedAt time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("batch-%s.json", startedAt.Format("20060102-150405")))
}
