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
	"bytes"

	"github.com/gravitational/trace"
	"gopkg.in/yaml.v3"
)

// Package is what gets written for a title: its descriptor fields, the
// scripts it references and how the team deploys it.
type Package struct {
	Title   string
	Version string
	// URL the installer can be downloaded from. Descriptors keep their
	// current url when empty.
	URL        string
	HashSHA256 string

	InstallScript     string
	UninstallScript   string
	PreInstallQuery   string
	PostInstallScript string

	SelfService      bool
	LabelsIncludeAny []string
	LabelsExcludeAny []string
}

// script kinds and the descriptor keys referencing them.
var scriptKeys = []struct {
	key  string
	kind string
	body func(p *Package) string
}{
	{key: "install_script", kind: "install", body: func(p *Package) string { return p.InstallScript }},
	{key: "uninstall_script", kind: "uninstall", body: func(p *Package) string { return p.UninstallScript }},
	{key: "post_install_script", kind: "post-install", body: func(p *Package) string { return p.PostInstallScript }},
}

// file is a repository-relative path and its desired content.
type file struct {
	path string
	data []byte
}

// renderDescriptor merges p into the existing descriptor (nil when there is
// none) and returns the descriptor plus the script and query files it
// references. Keys it does not manage are left as they are.
func renderDescriptor(existing []byte, l layout, p *Package) ([]file, error) {
	doc, err := parseDocument(existing)
	if err != nil {
		return nil, trace.Wrap(err, "failed to parse %s", l.descriptor())
	}
	root := doc.Content[0]

	if p.URL != "" {
		set(root, "url", newString(p.URL))
	}
	if p.HashSHA256 != "" {
		set(root, "hash_sha256", newString(p.HashSHA256))
	}

	var files []file
	for _, s := range scriptKeys {
		body := s.body(p)
		if body == "" {
			continue
		}
		rel, full := l.script(s.kind)
		set(root, s.key, pathRef(rel))
		files = append(files, file{path: full, data: withTrailingNewline(body)})
	}

	if p.PreInstallQuery != "" {
		rel, full := l.query()
		set(root, "pre_install_query", pathRef(rel))

		query, err := yaml.Marshal([]map[string]string{{"query": p.PreInstallQuery}})
		if err != nil {
			return nil, trace.Wrap(err)
		}
		files = append(files, file{path: full, data: query})
	}

	out, err := encodeDocument(doc)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return append([]file{{path: l.descriptor(), data: out}}, files...), nil
}

func pathRef(rel string) *yaml.Node {
	m := newMapping()
	set(m, "path", newString(rel))
	return m
}

func withTrailingNewline(s string) []byte {
	b := []byte(s)
	if !bytes.HasSuffix(b, []byte("\n")) {
		b = append(b, '\n')
	}
	return b
}
