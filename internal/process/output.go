package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"waveline/internal/queue"
)

// outputName derives a collision-free output filename from the upload's
// stored name, the job type, and the job identifier.
func outputName(file *queue.AudioFile, job *queue.Job, ext string) string {
	base := strings.TrimSuffix(file.Filename, filepath.Ext(file.Filename))
	return fmt.Sprintf("%s_%s_%d%s", base, job.Type, job.ID, ext)
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
