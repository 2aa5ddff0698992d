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
	"path/filepath"

	"github.com/gravitational/trace"
	"gopkg.in/yaml.v3"
)

// relativeTo returns target relative to the directory holding from. Both
// are repository-relative slash paths.
func relativeTo(from, target string) (string, error) {
	rel, err := filepath.Rel(filepath.FromSlash(path.Dir(from)), filepath.FromSlash(target))
	if err != nil {
		return "", trace.Wrap(err)
	}
	return filepath.ToSlash(rel), nil
}

// renderTeam makes sure the team file lists the descriptor at descriptorRel
// under software.packages with the deployment settings from p. Everything
// else in the file, comments included, is kept. New entries start with
// setup_experience: false; an existing value is left alone.
func renderTeam(existing []byte, teamPath, descriptorRel string, p *Package) ([]byte, error) {
	doc, err := parseDocument(existing)
	if err != nil {
		return nil, trace.Wrap(err, "failed to parse %s", teamPath)
	}
	root := doc.Content[0]

	software, err := child(root, "software", yaml.MappingNode)
	if err != nil {
		return nil, trace.Wrap(err, "in %s", teamPath)
	}
	packages, err := child(software, "packages", yaml.SequenceNode)
	if err != nil {
		return nil, trace.Wrap(err, "in %s", teamPath)
	}

	entry := findPackage(packages, descriptorRel)
	if entry == nil {
		entry = newMapping()
		set(entry, "path", newString(descriptorRel))
		set(entry, "setup_experience", newBool(false))
		packages.Content = append(packages.Content, entry)
	}

	set(entry, "self_service", newBool(p.SelfService))
	switch {
	case len(p.LabelsIncludeAny) > 0:
		set(entry, "labels_include_any", newStringSequence(p.LabelsIncludeAny))
		remove(entry, "labels_exclude_any")
	case len(p.LabelsExcludeAny) > 0:
		set(entry, "labels_exclude_any", newStringSequence(p.LabelsExcludeAny))
		remove(entry, "labels_include_any")
	default:
		remove(entry, "labels_include_any")
		remove(entry, "labels_exclude_any")
	}

	out, err := encodeDocument(doc)
	return out, trace.Wrap(err)
}

func findPackage(packages *yaml.Node, descriptorRel string) *yaml.Node {
	want := path.Clean(descriptorRel)
	for _, item := range packages.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		if p := lookup(item, "path"); p != nil && path.Clean(p.Value) == want {
			return item
		}
	}
	return nil
}
