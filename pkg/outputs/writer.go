/*
 *  Copyright 2026 Gravitational, Inc
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

// Package outputs renders the processor's output variables for the caller.
package outputs

import (
	"io"
	"os"
	"slices"
	"sort"

	"github.com/gravitational/trace"
)

// Writers take output key/value pairs and render them in a given format.
type Writer interface {
	// Take in output key/value pairs and format them.
	FormatOutputs(values map[string]string) (string, error)
	// Human-readable name of the writer, usually the output format.
	Name() string
}

var (
	jsonWriter    = NewJSONWriter()
	DefaultWriter = jsonWriter

	// A map of all writers available.
	AllWriters = map[string]Writer{
		jsonWriter.Name():        jsonWriter,
		NewGHAEnvWriter().Name(): NewGHAEnvWriter(),
		NewDotenvWriter().Name(): NewDotenvWriter(),
	}
)

// Names returns the names of all writers, sorted.
func Names() []string {
	names := make([]string, 0, len(AllWriters))
	for name := range AllWriters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the writer registered under name.
func Lookup(name string) (Writer, error) {
	if w, ok := AllWriters[name]; ok {
		return w, nil
	}
	return nil, trace.BadParameter("unknown output format %q, must be one of %v", name, Names())
}

// Emit formats values with w and writes them to path, or to stdout when path
// is empty. Files are appended to so that a shared $GITHUB_OUTPUT file keeps
// what earlier steps wrote.
func Emit(w Writer, values map[string]string, path string, stdout io.Writer) error {
	rendered, err := w.FormatOutputs(values)
	if err != nil {
		return trace.Wrap(err, "failed to format outputs as %s", w.Name())
	}

	if path == "" {
		_, err := io.WriteString(stdout, rendered)
		return trace.Wrap(err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return trace.Wrap(err, "failed to open output file %q", path)
	}
	if _, err := io.WriteString(f, rendered); err != nil {
		f.Close()
		return trace.Wrap(err, "failed to write output file %q", path)
	}
	return trace.Wrap(f.Close())
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
