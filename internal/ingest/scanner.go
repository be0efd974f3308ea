package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/haycash/docextract/constants"
	"github.com/haycash/docextract/internal/common"
)

// Scanner finds the PDF documents to ingest under a directory tree.
// Byte-identical files are deduplicated by content hash so the same scan
// dropped in two folders does not produce two records.
type Scanner struct {
	namePattern *regexp.Regexp
	logger      *slog.Logger
}

// NewScanner compiles the optional filename filter. An empty pattern admits
// every file with an allowed extension.
func NewScanner(namePattern string, logger *slog.Logger) (*Scanner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scanner{logger: logger}
	if namePattern != "" {
		re, err := regexp.Compile(namePattern)
		if err != nil {
			return nil, fmt.Errorf("%w: file pattern %q: %v", common.ErrInvalidInput, namePattern, err)
		}
		s.namePattern = re
	}
	return s, nil
}

// Scan walks root and returns the paths to process, sorted, duplicates
// removed. Unreadable files are skipped with a warning, not fatal: the batch
// must not die because one file has bad permissions.
func (s *Scanner) Scan(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: input %s: %v", common.ErrInvalidInput, root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: input %s is not a directory", common.ErrInvalidInput, root)
	}

	var candidates []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("ingest.walk.error", "path", path, "error", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if !constants.IsAllowedExt(ext) {
			return nil
		}
		if s.namePattern != nil && !s.namePattern.MatchString(d.Name()) {
			return nil
		}
		candidates = append(candidates, path)
		return nil
	})
	if err != nil {
		return nil, common.WrapError(err, "walk input directory")
	}

	// Sorted order makes dedupe deterministic: the lexically first copy wins.
	sort.Strings(candidates)

	seen := make(map[string]string, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, path := range candidates {
		sum, err := fileDigest(path)
		if err != nil {
			s.logger.Warn("ingest.hash.failed", "path", path, "error", err)
			continue
		}
		if first, dup := seen[sum]; dup {
			s.logger.Info("ingest.duplicate.skipped", "path", path, "same_as", first)
			continue
		}
		seen[sum] = path
		out = append(out, path)
	}

	s.logger.Info("ingest.scan.done", "root", root, "found", len(candidates), "unique", len(out))
	return out, nil
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
