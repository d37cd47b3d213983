package asset

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/pithecene-io/outpost/iox"
	"github.com/pithecene-io/outpost/types"
)

// scratchMarker is embedded in scratch file names so they can be skipped
// when listing the asset root.
const scratchMarker = ".partial-"

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Store materializes assets under a fixed root directory.
//
// Writes go to a scratch file in the target directory, are synced, and are
// then renamed over the destination, so readers see either the previous file
// or the complete new one. A failed write leaves any previous file untouched.
//
// Store holds no mutable state beyond the root path.
type Store struct {
	root string
}

// NewStore creates a store rooted at root, creating the directory if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("asset root must not be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve asset root %q: %w", root, err)
	}
	if err := os.MkdirAll(abs, dirMode); err != nil {
		return nil, fmt.Errorf("create asset root %q: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute asset root.
func (s *Store) Root() string {
	return s.root
}

// Path returns the absolute path for a relative asset path.
// The path is validated lexically and then checked to be a descendant of the
// root after cleaning.
func (s *Store) Path(rel string) (string, error) {
	if err := ValidatePath(rel); err != nil {
		return "", err
	}
	full := filepath.Join(s.root, filepath.FromSlash(strings.ReplaceAll(rel, `\`, "/")))
	within, err := filepath.Rel(s.root, full)
	if err != nil || within == "." || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", &PathSafetyError{Path: rel, Reason: "resolves outside asset root"}
	}
	return full, nil
}

// Exists reports whether a regular file exists at rel.
func (s *Store) Exists(rel string) bool {
	full, err := s.Path(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// ContentMatches reports whether the file at rel holds exactly data.
// A missing file is not an error; it simply does not match.
func (s *Store) ContentMatches(rel string, data []byte) (bool, error) {
	full, err := s.Path(rel)
	if err != nil {
		return false, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open %s: %w", full, err)
	}
	defer iox.DiscardClose(f)

	info, err := f.Stat()
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", full, err)
	}
	if !info.Mode().IsRegular() || info.Size() != int64(len(data)) {
		return false, nil
	}

	onDisk, err := digestReader(f)
	if err != nil {
		return false, fmt.Errorf("hash %s: %w", full, err)
	}
	return onDisk == Digest(data), nil
}

// Write atomically replaces the file at rel with data, creating missing
// intermediate directories. Failures are *WriteError.
func (s *Store) Write(rel string, data []byte) error {
	full, err := s.Path(rel)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return newWriteError("mkdir", dir, err)
	}

	// The scratch file lives beside the destination so the rename never
	// crosses a filesystem boundary.
	scratch := filepath.Join(dir, "."+filepath.Base(full)+scratchMarker+uuid.NewString())
	f, err := os.OpenFile(scratch, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fileMode)
	if err != nil {
		return newWriteError("create", scratch, err)
	}

	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		iox.DiscardClose(f)
		iox.RemoveQuietly(scratch)
		return newWriteError("write", scratch, err)
	}
	if err := f.Sync(); err != nil {
		iox.DiscardClose(f)
		iox.RemoveQuietly(scratch)
		return newWriteError("sync", scratch, err)
	}
	if err := f.Close(); err != nil {
		iox.RemoveQuietly(scratch)
		return newWriteError("close", scratch, err)
	}

	if err := os.Rename(scratch, full); err != nil {
		iox.RemoveQuietly(scratch)
		return newWriteError("rename", full, err)
	}
	return nil
}

// Fingerprint returns the hex BLAKE3 digest of the file at rel.
func (s *Store) Fingerprint(rel string) (string, error) {
	full, err := s.Path(rel)
	if err != nil {
		return "", err
	}
	f, err := os.Open(full)
	if err != nil {
		return "", err
	}
	defer iox.DiscardClose(f)
	return digestReader(f)
}

// List walks the asset root and returns a record per materialized file,
// sorted by path. In-flight scratch files are skipped.
func (s *Store) List() ([]types.AssetRecord, error) {
	var records []types.AssetRecord
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || isScratchName(d.Name()) || !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		digest, err := s.Fingerprint(filepath.ToSlash(rel))
		if err != nil {
			return err
		}

		records = append(records, types.AssetRecord{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			Digest:  digest,
			ModTime: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list asset root %s: %w", s.root, err)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

// Digest returns the hex BLAKE3 digest of data.
func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func digestReader(r io.Reader) (string, error) {
	h := blake3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func isScratchName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, scratchMarker)
}
