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

package gitops

import (
	"path"
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slug turns a software title into the file-name stem used for its
// descriptor and scripts, e.g. "Google Chrome.app" becomes "google-chrome".
func Slug(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = strings.TrimSuffix(s, ".app")
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// BranchName is the branch a sync for title and version is pushed to.
func BranchName(prefix, title, version string) string {
	name := Slug(title) + "-" + sanitizeRef(version)
	if prefix = strings.Trim(prefix, "/"); prefix != "" {
		return prefix + "/" + name
	}
	return name
}

// sanitizeRef drops characters git refuses in ref names.
func sanitizeRef(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r <= ' ', r == '~', r == '^', r == ':', r == '?', r == '*', r == '[', r == '\\', r == 0x7f:
			return '-'
		}
		return r
	}, s)
	for strings.Contains(s, "..") {
		s = strings.ReplaceAll(s, "..", ".")
	}
	return strings.Trim(s, ".-/")
}

// layout holds the repository-relative paths written for one title.
type layout struct {
	softwareDir string
	slug        string
}

func (l layout) descriptor() string {
	return path.Join(l.softwareDir, l.slug+".yml")
}

// script returns the script path relative to the descriptor and to the
// repository root.
func (l layout) script(kind string) (rel, full string) {
	rel = path.Join("scripts", l.slug+"-"+kind+".sh")
	return rel, path.Join(l.softwareDir, rel)
}

func (l layout) query() (rel, full string) {
	rel = path.Join("queries", l.slug+"-pre-install-query.yml")
	return rel, path.Join(l.softwareDir, rel)
}
