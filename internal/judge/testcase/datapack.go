package testcase

import (
	"archive/tar"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"

	appErr "lojudge/pkg/errors"
)

const packSuffix = ".tar.zst"

// FindPack returns the path of the first test data archive in dir, or ""
// when none exists. Archives are the distribution format for downloaded
// test data; loose .in/.out files take precedence at the call site.
func FindPack(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), packSuffix) {
			continue
		}
		return filepath.Join(dir, entry.Name())
	}
	return ""
}

// ExtractPack unpacks a tar.zst archive into destDir. Entry paths are
// confined to destDir; escaping entries abort the extraction.
func ExtractPack(srcPath, destDir string) error {
	file, err := os.Open(srcPath)
	if err != nil {
		return appErr.Wrapf(err, appErr.DataPackInvalid, "open data pack failed")
	}
	defer file.Close()

	zstdReader, err := zstd.NewReader(file)
	if err != nil {
		return appErr.Wrapf(err, appErr.DataPackInvalid, "create zstd reader failed")
	}
	defer zstdReader.Close()

	tr := tar.NewReader(zstdReader)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return appErr.Wrapf(err, appErr.DataPackInvalid, "read tar entry failed")
		}
		if hdr.Name == "" {
			continue
		}
		cleanName := filepath.Clean(hdr.Name)
		if strings.HasPrefix(cleanName, "..") || filepath.IsAbs(cleanName) {
			return appErr.New(appErr.DataPackInvalid).WithMessage("invalid tar entry path")
		}
		target := filepath.Join(destDir, cleanName)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(filepath.Separator)) {
			return appErr.New(appErr.DataPackInvalid).WithMessage("tar entry escape detected")
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return appErr.Wrapf(err, appErr.DataPackInvalid, "create dir failed")
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return appErr.Wrapf(err, appErr.DataPackInvalid, "create parent dir failed")
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode))
			if err != nil {
				return appErr.Wrapf(err, appErr.DataPackInvalid, "create file failed")
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return appErr.Wrapf(err, appErr.DataPackInvalid, "write file failed")
			}
			if err := out.Close(); err != nil {
				return appErr.Wrapf(err, appErr.DataPackInvalid, "close file failed")
			}
		}
	}
	return nil
}
