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

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/gravitational/trace"
)

// Source is one layer of processor arguments.
type Source interface {
	// Name identifies the layer in logs.
	Name() string
	// Values returns the layer's arguments keyed by upper-case name.
	Values() (map[string]string, error)
}

// EnvSource reads arguments from the process environment.
type EnvSource struct {
	environ func() []string
}

// NewEnvSource creates a source backed by os.Environ.
func NewEnvSource() *EnvSource {
	return &EnvSource{environ: os.Environ}
}

// NewEnvSourceFromList creates a source backed by a fixed KEY=value list.
func NewEnvSourceFromList(environ []string) *EnvSource {
	return &EnvSource{environ: func() []string { return environ }}
}

func (*EnvSource) Name() string {
	return "environment"
}

func (s *EnvSource) Values() (map[string]string, error) {
	values := map[string]string{}
	for _, kv := range s.environ() {
		key, value, ok := strings.Cut(kv, "=")
		// Empty variables do not shadow lower layers.
		if !ok || key == "" || value == "" {
			continue
		}
		values[key] = value
	}
	return values, nil
}

// FileSource reads arguments from a YAML or JSON mapping file. A path of "-"
// reads from stdin.
type FileSource struct {
	name     string
	path     string
	optional bool
	stdin    io.Reader
}

// NewPreferencesSource creates a source for the host preference store. A
// missing preferences file is treated as an empty layer.
func NewPreferencesSource(path string) *FileSource {
	return &FileSource{name: "preferences", path: path, optional: true, stdin: os.Stdin}
}

// NewRecipeSource creates a source for recipe-supplied arguments.
func NewRecipeSource(path string) *FileSource {
	return &FileSource{name: "recipe", path: path, stdin: os.Stdin}
}

func (s *FileSource) Name() string {
	return s.name
}

func (s *FileSource) Values() (map[string]string, error) {
	if s.path == "" {
		return map[string]string{}, nil
	}

	var contents []byte
	var err error
	if s.path == "-" {
		contents, err = io.ReadAll(s.stdin)
	} else {
		contents, err = os.ReadFile(s.path)
	}
	if err != nil {
		if s.optional && os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, trace.Wrap(err, "failed to read %s file %q", s.name, s.path)
	}

	return parseArguments(contents)
}

// DefaultPreferencesPath is where the preference store lives unless
// overridden.
func DefaultPreferencesPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "fleet-importer", "preferences.yaml")
}

func parseArguments(contents []byte) (map[string]string, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(contents, &raw); err != nil {
		return nil, trace.Wrap(err, "failed to parse arguments")
	}

	literals, err := numberLiterals(contents)
	if err != nil {
		return nil, trace.Wrap(err, "failed to parse arguments")
	}

	values := make(map[string]string, len(raw))
	for key, value := range raw {
		if lit, ok := literals[key]; ok {
			values[strings.ToUpper(key)] = lit
			continue
		}
		str, err := stringify(value)
		if err != nil {
			return nil, trace.BadParameter("argument %q: %v", key, err)
		}
		values[strings.ToUpper(key)] = str
	}

	return values, nil
}

// numberLiterals returns the source text of top-level numeric values, so
// that an unquoted "version: 130.0" stays "130.0" instead of the decoded
// float's "130".
func numberLiterals(contents []byte) (map[string]string, error) {
	file, err := parser.ParseBytes(contents, 0)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	literals := map[string]string{}
	for _, doc := range file.Docs {
		var pairs []*ast.MappingValueNode
		switch body := doc.Body.(type) {
		case *ast.MappingNode:
			pairs = body.Values
		case *ast.MappingValueNode:
			pairs = []*ast.MappingValueNode{body}
		}
		for _, pair := range pairs {
			switch pair.Value.(type) {
			case *ast.IntegerNode, *ast.FloatNode:
				literals[pair.Key.GetToken().Value] = pair.Value.GetToken().Value
			}
		}
	}
	return literals, nil
}

func stringify(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int, int64, uint64, float64:
		return fmt.Sprint(v), nil
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			str, err := stringify(item)
			if err != nil {
				return "", err
			}
			if strings.Contains(str, ",") {
				return "", fmt.Errorf("list item %q must not contain a comma", str)
			}
			items = append(items, str)
		}
		return strings.Join(items, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

// Resolver merges argument layers. Layers are listed highest priority first.
type Resolver struct {
	sources []Source
}

// NewResolver creates a resolver over sources, highest priority first.
func NewResolver(sources ...Source) *Resolver {
	return &Resolver{sources: sources}
}

// Resolve returns the merged arguments and, for every key, the name of the
// layer that supplied it.
func (r *Resolver) Resolve() (values map[string]string, origins map[string]string, err error) {
	values = map[string]string{}
	origins = map[string]string{}
	for i := len(r.sources) - 1; i >= 0; i-- {
		source := r.sources[i]
		layer, err := source.Values()
		if err != nil {
			return nil, nil, trace.Wrap(err, "failed to load %s arguments", source.Name())
		}
		for key, value := range layer {
			values[key] = value
			origins[key] = source.Name()
		}
	}
	return values, origins, nil
}

// Load resolves the layered arguments and decodes them into a Config.
func Load(sources ...Source) (*Config, map[string]string, error) {
	values, origins, err := NewResolver(sources...).Resolve()
	if err != nil {
		return nil, nil, trace.Wrap(err)
	}

	c, err := Decode(values)
	if err != nil {
		return nil, nil, trace.Wrap(err)
	}

	return c, origins, nil
}
