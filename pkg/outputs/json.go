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
	"encoding/json"

	"github.com/gravitational/trace"
)

// Outputs the values as a single indented JSON object.
type JSONWriter struct{}

// Create a new JSON writer
func NewJSONWriter() *JSONWriter {
	return &JSONWriter{}
}

func (*JSONWriter) FormatOutputs(values map[string]string) (string, error) {
	if values == nil {
		values = map[string]string{}
	}
	// Map keys are sorted by the encoder.
	out, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return "", trace.Wrap(err)
	}
	return string(out) + "\n", nil
}

func (*JSONWriter) Name() string {
	return "json"
}
