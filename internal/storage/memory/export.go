package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OCAP2/stats/internal/util"
	"github.com/OCAP2/stats/pkg/core"
)

// exportFileName builds the output name from the replay file, falling back to
// the mission name for records without one.
func exportFileName(rec *core.MissionRecord, compress bool) string {
	base := util.Stem(rec.File)
	if base == "" || base == "." {
		base = rec.FileDate + "_" + rec.MissionName
	}
	base = strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(base)

	if compress {
		return base + ".stats.json.gz"
	}
	return base + ".stats.json"
}

// exportJSON writes rec to the output directory
func (b *Backend) exportJSON(rec *core.MissionRecord) (string, error) {
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(rec, b.cfg.CompressOutput))

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, rec)
	} else {
		err = writeJSON(outputPath, rec)
	}
	if err != nil {
		return "", err
	}
	return outputPath, nil
}

func writeJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode mission: %w", err)
	}
	return gzWriter.Close()
}
