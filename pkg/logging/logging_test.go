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

package logging

import (
	"bytes"
	"context"
	"testing"

	awslogging "github.com/aws/smithy-go/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	_, err = New(&buf, "loud")
	require.Error(t, err)
}

func TestFromCtx(t *testing.T) {
	assert.Equal(t, DiscardLogger, FromCtx(context.Background()))

	logger, err := New(&bytes.Buffer{}, "debug")
	require.NoError(t, err)
	assert.Equal(t, logger, FromCtx(ToCtx(context.Background(), logger)))
}

func TestToAWSLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug")
	require.NoError(t, err)

	awsLogger := ToAWSLogger(logger)
	awsLogger.Logf(awslogging.Warn, "retrying %s", "PutObject")
	awsLogger.Logf(awslogging.Debug, "request %d", 7)

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "retrying PutObject")
	assert.Contains(t, out, "level=DEBUG")
	assert.Contains(t, out, "request 7")
	assert.Contains(t, out, "source=aws-sdk")
}
