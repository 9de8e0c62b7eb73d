// Package resolver populates a model.FileCollection from a submitted
// input (spec.md §4.3): a single file, a zip archive, or a manifest file
// listing other paths. Grounded on original_source/aodncore/pipeline's
// resolve step family (get_resolve_runner's extension/content dispatch,
// ZipFileResolveRunner's path-traversal guard, SimpleManifestResolveRunner's
// one-path-per-line format) — the teacher itself has no resolver, since an
// artifact arrives as a single HTTP body.
package resolver

import (
	"archive/zip"
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/pipelineerr"
)

// Resolver populates a FileCollection from one submitted input path.
type Resolver struct {
	// ScratchDir is where archive contents are expanded and single-file
	// inputs are copied to, matching model.HandlerState.ScratchDir.
	ScratchDir string

	// FilterRegex, if non-nil, is applied to each resolved SourcePath;
	// matches are excluded from the collection entirely (spec.md §4.2:
	// "A filter_regex applied during resolve marks excluded files by
	// removing them from the collection").
	FilterRegex *regexp.Regexp
}

// Resolve dispatches inputPath to the appropriate resolve strategy and
// returns a populated collection. Every returned record has a verified
// readable LocalPath, a computed Checksum, Size, and MimeType, per spec.md
// §4.3's post-resolve guarantee.
func (r *Resolver) Resolve(inputPath string) (*model.FileCollection, error) {
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, pipelineerr.WrapInvalidInput(fmt.Errorf("submitted input %q: %w", inputPath, err))
	}
	if info.IsDir() {
		return nil, pipelineerr.NewInvalidInput("submitted input %q is a directory, not a file", inputPath)
	}

	kind, err := classify(inputPath)
	if err != nil {
		return nil, err
	}

	var collection *model.FileCollection
	switch kind {
	case kindArchive:
		collection, err = r.resolveArchive(inputPath)
	case kindManifest:
		collection, err = r.resolveManifest(inputPath)
	default:
		collection, err = r.resolveSingle(inputPath)
	}
	if err != nil {
		return nil, err
	}

	if r.FilterRegex != nil {
		for _, f := range collection.All() {
			if r.FilterRegex.MatchString(f.SourcePath) {
				collection.Discard(f.LocalPath)
			}
		}
	}

	return collection, nil
}

type inputKind int

const (
	kindSingle inputKind = iota
	kindArchive
	kindManifest
)

var manifestExtensions = map[string]bool{
	".manifest": true,
	".mf":       true,
}

// classify identifies the input kind by extension first, then content
// sniff, per spec.md §4.3: "Identify input kind by extension then content
// sniff".
func classify(path string) (inputKind, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".zip" {
		return kindArchive, nil
	}
	if manifestExtensions[ext] {
		return kindManifest, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return kindSingle, pipelineerr.WrapInvalidInput(err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	n, _ := io.ReadFull(f, magic)
	if n == 4 && magic[0] == 'P' && magic[1] == 'K' {
		return kindArchive, nil
	}

	return kindSingle, nil
}

func (r *Resolver) resolveSingle(inputPath string) (*model.FileCollection, error) {
	collection := model.NewFileCollection()

	dest := filepath.Join(r.ScratchDir, filepath.Base(inputPath))
	if err := copyFile(inputPath, dest); err != nil {
		return nil, pipelineerr.WrapResolveFailure(err)
	}

	pf, err := newResolvedFile(dest, filepath.Base(inputPath))
	if err != nil {
		return nil, err
	}
	if err := collection.Add(pf); err != nil {
		return nil, pipelineerr.WrapResolveFailure(err)
	}
	return collection, nil
}

// resolveArchive expands a zip archive into ScratchDir, rejecting any entry
// whose name is absolute or contains a ".." path-traversal segment, per
// spec.md §4.3: "Archive expansion must reject entries with absolute paths
// or .. segments".
func (r *Resolver) resolveArchive(inputPath string) (*model.FileCollection, error) {
	zr, err := zip.OpenReader(inputPath)
	if err != nil {
		return nil, pipelineerr.WrapResolveFailure(fmt.Errorf("opening archive %q: %w", inputPath, err))
	}
	defer zr.Close()

	collection := model.NewFileCollection()

	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if err := validateArchiveEntryName(entry.Name); err != nil {
			return nil, err
		}

		dest := filepath.Join(r.ScratchDir, filepath.FromSlash(entry.Name))
		if err := extractZipEntry(entry, dest); err != nil {
			return nil, pipelineerr.WrapResolveFailure(err)
		}

		pf, err := newResolvedFile(dest, entry.Name)
		if err != nil {
			return nil, err
		}
		if err := collection.Add(pf); err != nil {
			return nil, pipelineerr.WrapResolveFailure(err)
		}
	}

	return collection, nil
}

func validateArchiveEntryName(name string) error {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return pipelineerr.NewResolveFailure("archive entry %q has an absolute path", name)
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return pipelineerr.NewResolveFailure("archive entry %q attempts path traversal", name)
		}
	}
	return nil
}

func extractZipEntry(entry *zip.File, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}

// resolveManifest reads a text file listing one path per line (blank lines
// and "#"-prefixed comments ignored) and adds each listed path in place,
// with no copy into scratch, per spec.md §4.3: "manifest (text file listing
// paths) -> add each listed path in place with no copy".
func (r *Resolver) resolveManifest(inputPath string) (*model.FileCollection, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return nil, pipelineerr.WrapResolveFailure(err)
	}
	defer f.Close()

	collection := model.NewFileCollection()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if _, err := os.Stat(line); err != nil {
			return nil, pipelineerr.WrapResolveFailure(fmt.Errorf("manifest entry %q: %w", line, err))
		}

		pf, err := newResolvedFile(line, line)
		if err != nil {
			return nil, err
		}
		if err := collection.Add(pf); err != nil {
			return nil, pipelineerr.WrapResolveFailure(err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, pipelineerr.WrapResolveFailure(err)
	}

	return collection, nil
}

// newResolvedFile builds a *model.PipelineFile for localPath (which must
// already exist and be readable), computing Checksum, Size, and MimeType —
// the per-record guarantee spec.md §4.3 requires of every resolved record.
func newResolvedFile(localPath, sourcePath string) (*model.PipelineFile, error) {
	checksum, size, err := checksumAndSize(localPath)
	if err != nil {
		return nil, pipelineerr.WrapResolveFailure(err)
	}

	pf := model.NewPipelineFile(localPath, sourcePath)
	pf.Checksum = checksum
	pf.Size = size
	pf.MimeType = mime.TypeByExtension(filepath.Ext(localPath))
	pf.FileType = classifyFileType(localPath)
	return pf, nil
}

func classifyFileType(path string) model.FileType {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nc":
		return model.FileTypeNetCDF
	case ".pdf":
		return model.FileTypePDF
	case ".csv":
		return model.FileTypeCSV
	default:
		return model.FileTypeUnknown
	}
}

func checksumAndSize(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}
