package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LogStorage manages saving step logs to files
type LogStorage struct {
	BaseDir string
}

// NewLogStorage creates a new log storage handler
func NewLogStorage(baseDir string) *LogStorage {
	return &LogStorage{BaseDir: baseDir}
}

// SaveLog writes the output of one step to <base>/<run>/<stage>_<step>.log
// and returns the file path.
func (ls *LogStorage) SaveLog(runID, stage, step, stdout, stderr string) (string, error) {
	dir := filepath.Join(ls.BaseDir, sanitize(runID))
	if err := os.MkdirAll(dir, 0775); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", sanitize(stage), sanitize(step))
	filePath := filepath.Join(dir, filename)

	if err := os.WriteFile(filePath, []byte(formatLog(stdout, stderr)), 0644); err != nil {
		return "", fmt.Errorf("write log: %w", err)
	}
	return filePath, nil
}

// ReadLog returns the content of a saved log.
func (ls *LogStorage) ReadLog(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatLog(stdout, stderr string) string {
	var b strings.Builder
	b.WriteString("=== stdout ===\n")
	b.WriteString(stdout)
	if stdout != "" && !strings.HasSuffix(stdout, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("=== stderr ===\n")
	b.WriteString(stderr)
	if stderr != "" && !strings.HasSuffix(stderr, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// sanitize removes special characters from names for filenames
func sanitize(name string) string {
	var clean strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_':
			clean.WriteRune(r)
		case r == ' ' || r == '.' || r == '/':
			clean.WriteRune('-')
		}
	}
	if clean.Len() == 0 {
		return "step"
	}
	return clean.String()
}
