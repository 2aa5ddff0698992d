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

package outputs

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gravitational/trace"
)

// Pulled from https://hexdocs.pm/dotenvy/dotenv-file-format.html#variable-names
var dotEnvKeyValidationRegex = regexp.MustCompile("^[a-zA-Z_]+[a-zA-Z0-9_]*$")

// Outputs the values in .env file format
type DotenvWriter struct{}

// Create a new dotenv-format writer
func NewDotenvWriter() *DotenvWriter {
	return &DotenvWriter{}
}

func (*DotenvWriter) validateValue(key, value string) error {
	if !dotEnvKeyValidationRegex.MatchString(key) {
		return trace.BadParameter("output name %q cannot be written to a dotenv file", key)
	}
	if strings.Contains(value, "\n") {
		return trace.BadParameter("output %q is multiline and cannot be written to a dotenv file", key)
	}
	return nil
}

func (w *DotenvWriter) FormatOutputs(values map[string]string) (string, error) {
	var sb strings.Builder
	for _, key := range sortedKeys(values) {
		if err := w.validateValue(key, values[key]); err != nil {
			return "", trace.Wrap(err)
		}
		fmt.Fprintf(&sb, "%s=%s\n", strings.ToUpper(key), values[key])
	}

	return sb.String(), nil
}

func (*DotenvWriter) Name() string {
	return "dotenv"
}
