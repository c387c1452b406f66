package db

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/zip"
	"golang.org/x/text/encoding/charmap"

	"github.com/yumyai/bgcselect/logger"
	"github.com/yumyai/bgcselect/pkg/model"
	"go.uber.org/zap"
)

var ErrRecordDirMissing = errors.New("record directory does not exist")

const (
	unzippedSuffix = "__unzipped"
	renamedSuffix  = "__renamed"
	latestSuffix   = "__latest_output"
)

// RecordDir is a folder of antiSMASH GenBank files, possibly zipped.
type RecordDir struct {
	Dir            string
	IgnorePatterns []string // doublestar patterns, relative to Dir
}

func NewRecordDir(dir string, ignore []string) (*RecordDir, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRecordDirMissing, dir)
	}
	for _, p := range ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	return &RecordDir{Dir: dir, IgnorePatterns: ignore}, nil
}

// Unzip replaces every .zip archive below Dir with a "<name>__unzipped" folder,
// repeating until no archive is left. Archives that cannot be extracted are
// kept and skipped. It returns the number of extracted archives.
func (rd *RecordDir) Unzip() (int, error) {
	failed := make(map[string]bool)
	extracted := 0

	for {
		var archives []string
		err := filepath.WalkDir(rd.Dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".zip") && !failed[path] {
				archives = append(archives, path)
			}
			return nil
		})
		if err != nil {
			return extracted, fmt.Errorf("walk %s: %w", rd.Dir, err)
		}
		if len(archives) == 0 {
			return extracted, nil
		}

		for _, archive := range archives {
			target := strings.TrimSuffix(archive, ".zip") + unzippedSuffix
			for exists(target) {
				target += renamedSuffix
			}

			if err := extractZip(archive, target); err != nil {
				logger.Warn("Skipping archive", zap.String("archive", archive), zap.Error(err))
				if rerr := os.RemoveAll(target); rerr != nil {
					logger.Warn("Failed to remove partial extraction", zap.String("path", target), zap.Error(rerr))
				}
				failed[archive] = true
				continue
			}
			if err := os.Remove(archive); err != nil {
				return extracted, fmt.Errorf("remove extracted archive: %w", err)
			}
			extracted++
		}
	}
}

func extractZip(archive, target string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer zr.Close()

	root, err := filepath.Abs(target)
	if err != nil {
		return err
	}

	for _, f := range zr.File {
		dest := filepath.Join(root, f.Name)
		if dest != root && !strings.HasPrefix(dest, root+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes the extraction folder", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(dest, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := extractFile(f, dest); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Discover lists record files below Dir in lexical order. Hidden files and
// files matching an ignore pattern are left out.
func (rd *RecordDir) Discover() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(rd.Dir), "**/*"+model.RecordExtension, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("discover records in %s: %w", rd.Dir, err)
	}

	paths := make([]string, 0, len(matches))
	for _, rel := range matches {
		if rd.Ignored(rel) {
			continue
		}
		paths = append(paths, filepath.Join(rd.Dir, filepath.FromSlash(rel)))
	}
	sort.Strings(paths)
	return paths, nil
}

// Ignored reports whether a path relative to Dir is skipped by Discover.
func (rd *RecordDir) Ignored(rel string) bool {
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(filepath.Base(rel), ".") {
		return true
	}
	for _, p := range rd.IgnorePatterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// ReadRecord reads one record file as text.
func ReadRecord(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return DecodeRecord(raw)
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeRecord returns UTF-8 text, stripping a BOM. Bytes that are not valid
// UTF-8 are read as Windows-1252, which covers Latin-1 organism names.
func DecodeRecord(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode record: %w", err)
	}
	return string(decoded), nil
}

// CopyRecord copies src into dir under its base name. On a name collision the
// destination gets a "__latest_output" suffix, growing the underscores until
// free, when rename is set; otherwise nothing is copied and "" is returned.
func CopyRecord(src, dir string, rename bool) (string, error) {
	dest := filepath.Join(dir, filepath.Base(src))

	if exists(dest) {
		if !rename {
			return "", nil
		}
		dest += latestSuffix
		for exists(dest) {
			dest = strings.TrimSuffix(dest, latestSuffix) + "_" + latestSuffix
		}
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return "", fmt.Errorf("copy %s: %w", src, err)
	}
	return dest, out.Close()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
