// Package contentstore is the on-disk, content-addressed blob store backing
// the cache. Every object is addressed by a UUID (the caller computes it,
// typically SHA1(lfn)) and lives at a two-level fan-out path under the store
// root, limiting the number of entries in any one directory.
package contentstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Store is a directory-rooted, content-addressed blob store.
type Store struct {
	dir string
}

// New returns a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("contentstore: error creating root %q: %w", dir, err)
	}

	return &Store{dir: dir}, nil
}

// Path returns the on-disk path for the given uuid, without checking that
// it exists. It is the two-level fan-out form
// <dir>/<uuid[0:2]>/<uuid[2:4]>/<uuid>.
func (s *Store) Path(uuid string) string {
	if len(uuid) < 4 {
		return filepath.Join(s.dir, uuid)
	}

	return filepath.Join(s.dir, uuid[0:2], uuid[2:4], uuid)
}

// Has reports whether uuid is present in the store.
func (s *Store) Has(uuid string) bool {
	_, err := os.Stat(s.Path(uuid))

	return err == nil
}

// Open returns a reader over the file stored under uuid.
func (s *Store) Open(uuid string) (*os.File, error) {
	f, err := os.Open(s.Path(uuid))
	if err != nil {
		return nil, fmt.Errorf("contentstore: error opening %q: %w", uuid, err)
	}

	return f, nil
}

// Stat returns the os.FileInfo for the file stored under uuid.
func (s *Store) Stat(uuid string) (os.FileInfo, error) {
	fi, err := os.Stat(s.Path(uuid))
	if err != nil {
		return nil, fmt.Errorf("contentstore: error stating %q: %w", uuid, err)
	}

	return fi, nil
}

// Remove deletes the file stored under uuid. It is not an error if the file
// is already absent.
func (s *Store) Remove(uuid string) error {
	if err := os.Remove(s.Path(uuid)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("contentstore: error removing %q: %w", uuid, err)
	}

	return nil
}

// PutReader streams src into the store under uuid, writing to a temporary
// file in the same fan-out directory and renaming it into place on
// completion so readers never observe a partial file.
func (s *Store) PutReader(ctx context.Context, uuid string, src io.Reader) (int64, error) {
	dst := s.Path(uuid)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("contentstore: error creating directory for %q: %w", uuid, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return 0, fmt.Errorf("contentstore: error creating temp file for %q: %w", uuid, err)
	}

	tmpName := tmp.Name()

	defer func() {
		_ = os.Remove(tmpName)
	}()

	n, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()

		return n, fmt.Errorf("contentstore: error writing %q: %w", uuid, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()

		return n, fmt.Errorf("contentstore: error syncing %q: %w", uuid, err)
	}

	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("contentstore: error closing temp file for %q: %w", uuid, err)
	}

	if err := os.Rename(tmpName, dst); err != nil {
		return n, fmt.Errorf("contentstore: error renaming into place %q: %w", uuid, err)
	}

	zerolog.Ctx(ctx).Debug().Str("uuid", uuid).Int64("bytes", n).Msg("stored object")

	return n, nil
}

// PutFile publishes srcPath as uuid, either renaming it (when rename is
// true and the move is same-filesystem) or copying its bytes otherwise.
func (s *Store) PutFile(ctx context.Context, uuid, srcPath string, rename bool) error {
	dst := s.Path(uuid)

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("contentstore: error creating directory for %q: %w", uuid, err)
	}

	if rename {
		if err := os.Rename(srcPath, dst); err == nil {
			zerolog.Ctx(ctx).Debug().Str("uuid", uuid).Str("src", srcPath).Msg("renamed into store")

			return nil
		}
		// fall through to copy, e.g. cross-device rename.
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("contentstore: error opening source %q: %w", srcPath, err)
	}
	defer src.Close()

	if _, err := s.PutReader(ctx, uuid, src); err != nil {
		return err
	}

	return nil
}

// Materialize places the stored object for uuid at destPath, either via
// symlink (default) or a full byte copy. It fails if destPath already
// exists.
func (s *Store) Materialize(uuid, destPath string, symlink bool) error {
	if _, err := os.Lstat(destPath); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, destPath)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("contentstore: error creating destination directory for %q: %w", destPath, err)
	}

	src := s.Path(uuid)

	if symlink {
		if err := os.Symlink(src, destPath); err != nil {
			return fmt.Errorf("contentstore: error symlinking %q to %q: %w", destPath, src, err)
		}

		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("contentstore: error opening %q: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(destPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("contentstore: error creating %q: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("contentstore: error copying %q to %q: %w", src, destPath, err)
	}

	return nil
}
