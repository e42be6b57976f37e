package extractor

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	// ocrSamplePages caps how many leading pages the emptiness heuristic
	// inspects on large documents.
	ocrSamplePages = 32

	// ocrEmptyThreshold is the fraction of empty sampled pages above which
	// OCR is attempted.
	ocrEmptyThreshold = 0.8

	ocrBinary = "ocrmypdf"
)

// OCRAvailable reports whether the external OCR tool is on PATH.
func OCRAvailable() bool {
	_, err := exec.LookPath(ocrBinary)
	return err == nil
}

// needsOCR applies the emptiness heuristic to already-extracted page text:
// sample up to the first 32 pages and report true when more than 80% have
// no extractable text.
func needsOCR(texts []string) bool {
	sample := len(texts)
	if sample == 0 {
		return false
	}
	if sample > ocrSamplePages {
		sample = ocrSamplePages
	}
	empty := 0
	for _, t := range texts[:sample] {
		if strings.TrimSpace(t) == "" {
			empty++
		}
	}
	return float64(empty)/float64(sample) > ocrEmptyThreshold
}

// OCRIfNeeded decides whether the PDF at path warrants OCR and, if so and
// ocrmypdf is available, produces an OCR'd copy and returns its path.
// Every failure mode falls back to the original path; OCR is strictly
// best-effort.
func OCRIfNeeded(ctx context.Context, path string) string {
	if !IsPDF(path) {
		return path
	}
	pages, err := Extract(path)
	if err != nil {
		return path
	}
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	if !needsOCR(texts) || !OCRAvailable() {
		return path
	}

	tmpDir, err := os.MkdirTemp("", "docvault-ocr-")
	if err != nil {
		return path
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	out := filepath.Join(tmpDir, base+"-ocr.pdf")

	cmd := exec.CommandContext(ctx, ocrBinary, "--skip-text", path, out)
	if err := cmd.Run(); err != nil {
		return path
	}
	if _, err := os.Stat(out); err != nil {
		return path
	}
	return out
}
