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
	"strings"

	"github.com/google/uuid"
	"github.com/gravitational/trace"
)

const delimiterPrefix = "EOF"

// Outputs values in a format that can be parsed by GHA's `GITHUB_OUTPUT` file.
// Multiline values use the heredoc form, see
// https://docs.github.com/en/actions/writing-workflows/choosing-what-your-workflow-does/workflow-commands-for-github-actions#multiline-strings
type GHAEnvWriter struct{}

// Create a new GHA writer
func NewGHAEnvWriter() *GHAEnvWriter {
	return &GHAEnvWriter{}
}

// Generates a delimiter that is guaranteed to not match any line of value.
func generateMultilineDelimiter(value string) string {
	valueLines := strings.Split(value, "\n")

	delimiter := delimiterPrefix
	for {
		if !containsLine(valueLines, delimiter) {
			return delimiter
		}
		delimiter = fmt.Sprintf("%s_%s", delimiterPrefix, uuid.NewString())
	}
}

func containsLine(lines []string, line string) bool {
	for _, l := range lines {
		if l == line {
			return true
		}
	}
	return false
}

func (*GHAEnvWriter) FormatOutputs(values map[string]string) (string, error) {
	var sb strings.Builder
	for _, key := range sortedKeys(values) {
		value := values[key]
		if key == "" {
			return "", trace.Errorf("found empty key for output value %q", value)
		}

		if strings.Contains(value, "\n") {
			delimiter := generateMultilineDelimiter(value)
			fmt.Fprintf(&sb, "%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter)
			continue
		}
		fmt.Fprintf(&sb, "%s=%s\n", key, value)
	}

	return sb.String(), nil
}

func (*GHAEnvWriter) Name() string {
	return "gha-env"
}
