package service

import (
	"fmt"
	"os"
	"path/filepath"
)

// SourceService inspects the feature documents in the local data directory.
type SourceService struct {
	dataDir string
}

// NewSourceService creates a source service over publicDir/data.
func NewSourceService(publicDir string) *SourceService {
	return &SourceService{
		dataDir: filepath.Join(publicDir, "data"),
	}
}

// SourceFile describes a feature document on disk.
type SourceFile struct {
	Name string
	Size string
}

// Stat returns the document for a source id, if it exists.
func (s *SourceService) Stat(id string) (SourceFile, bool) {
	name := id + ".json"
	info, err := os.Stat(filepath.Join(s.dataDir, name))
	if err != nil || info.IsDir() {
		return SourceFile{}, false
	}
	return SourceFile{Name: name, Size: formatSize(info.Size())}, true
}

// DataDir returns the path to the data directory.
func (s *SourceService) DataDir() string {
	return s.dataDir
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
