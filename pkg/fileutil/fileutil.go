/*
Copyright 2026 Gravitational, Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gravitational/trace"
)

// ResolveFile expands a leading "~", makes the path absolute and checks that
// it names a regular file.
func ResolveFile(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", trace.Wrap(err, "failed to expand %q", path)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", trace.Wrap(err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", trace.NotFound("pkg_path not found: %s", abs)
	}
	if !info.Mode().IsRegular() {
		return "", trace.BadParameter("pkg_path is not a file: %s", abs)
	}

	return abs, nil
}

// SHA256File returns the lowercase hex SHA-256 digest of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", trace.Wrap(err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", trace.Wrap(err, "failed to hash %q", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// WriteFile writes data to path, creating parent directories as needed.
// It reports whether the file content changed.
func WriteFile(path string, data []byte, perm os.FileMode) (changed bool, err error) {
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if string(existing) == string(data) {
			return false, nil
		}
	case !os.IsNotExist(err):
		return false, trace.Wrap(err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, trace.Wrap(err)
	}

	if err := os.WriteFile(path, data, perm); err != nil {
		return false, trace.Wrap(err)
	}

	return true, nil
}
