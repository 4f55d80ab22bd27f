// ***************************************************************************
//
//  Copyright 2017 David (Dizzy) Smith, dizzyd@dizzyd.com
//
//  Licensed under the Apache License, Version 2.0 (the "License");
//  you may not use this file except in compliance with the License.
//  You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
//   Unless required by applicable law or agreed to in writing, software
//   distributed under the License is distributed on an "AS IS" BASIS,
//   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//   See the License for the specific language governing permissions and
//   limitations under the License.
// ***************************************************************************

// Package pathsafe guards archive extraction and manifest-declared relative
// paths against zip-slip style escapes out of the destination directory.
package pathsafe

import (
	"archive/zip"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"minesync/internal/apperr"
)

// SafeRelativePath validates a manifest-declared relative path and returns
// the cleaned form. It rejects absolute paths, empty paths, and any ".."
// component that would walk outside the destination root.
func SafeRelativePath(raw string) (string, error) {
	if raw == "" {
		return "", apperr.New(apperr.KindPathSafety, "empty path")
	}

	cleaned := path.Clean(strings.ReplaceAll(raw, "\\", "/"))
	if path.IsAbs(cleaned) {
		return "", apperr.New(apperr.KindPathSafety, "absolute path rejected: %s", raw)
	}

	var kept []string
	for _, part := range strings.Split(cleaned, "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", apperr.New(apperr.KindPathSafety, "parent traversal rejected: %s", raw)
		default:
			kept = append(kept, part)
		}
	}

	if len(kept) == 0 {
		return "", apperr.New(apperr.KindPathSafety, "path resolves to nothing: %s", raw)
	}

	return path.Join(kept...), nil
}

// ExtractZip extracts every regular-file entry in data to destDir. Entries
// whose name fails SafeRelativePath are skipped rather than aborting the
// whole extraction, mirroring a ZIP containing one hostile entry among many
// legitimate ones.
func ExtractZip(data []byte, destDir string) error {
	r, err := zip.NewReader(sizedReader(data), int64(len(data)))
	if err != nil {
		return apperr.Wrap(apperr.KindParse, err, "failed to open archive")
	}

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		rel, err := SafeRelativePath(f.Name)
		if err != nil {
			continue
		}

		target := filepath.Join(destDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return apperr.Wrap(apperr.KindStorage, err, "failed to create directory for %s", rel)
		}

		if err := copyZipEntry(f, target); err != nil {
			return err
		}
	}

	return nil
}

func copyZipEntry(f *zip.File, target string) error {
	src, err := f.Open()
	if err != nil {
		return apperr.Wrap(apperr.KindParse, err, "failed to open archive entry %s", f.Name)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to create %s", target)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "failed to write %s", target)
	}
	return nil
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func sizedReader(data []byte) byteReaderAt {
	return byteReaderAt(data)
}
