package pkg

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
)

// PathExists returns whether the given file or directory exists. A path of
// the other kind (a file when a dir is expected, and vice versa) is an error.
func PathExists(path string, isDir bool) (bool, error) {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if isDir && !stat.IsDir() {
		return false, fmt.Errorf("%s is not a directory", path)
	}
	if !isDir && stat.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return true, nil
}

// Compress writes src as a gzipped tarball to buf. Entry names are relative
// to src's parent, so the archive unpacks into a single directory. Files for
// which skip returns true are left out; skip may be nil.
func Compress(src string, buf io.Writer, skip func(path string, fi os.FileInfo) bool) (err error) {
	// tar > gzip > buf
	gzipWriter := gzip.NewWriter(buf)
	tarWriter := tar.NewWriter(gzipWriter)

	root := filepath.Dir(filepath.Clean(src))
	if walkErr := filepath.Walk(src, func(file string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if skip != nil && !fi.IsDir() && skip(file, fi) {
			return nil
		}

		header, err := tar.FileInfoHeader(fi, file)
		if err != nil {
			return err
		}

		// must provide real name
		// (see https://golang.org/src/archive/tar/common.go?#L626)
		name, err := filepath.Rel(root, file)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(name)

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}

		if !fi.IsDir() {
			return copyFile(tarWriter, file)
		}

		return nil
	}); walkErr != nil {
		return walkErr
	}

	// produce tar
	if err := tarWriter.Close(); err != nil {
		return err
	}
	// produce gzip
	return gzipWriter.Close()
}

func copyFile(dst io.Writer, path string) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	_, err = io.Copy(dst, f)
	return err
}
