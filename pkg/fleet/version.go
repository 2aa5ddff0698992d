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

package fleet

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gravitational/trace"
)

// MinimumVersion is the oldest Fleet release with the software package API
// this client relies on.
const MinimumVersion = "4.74.0"

var minimumVersion = semver.MustParse(MinimumVersion)

type versionResponse struct {
	Version  string `json:"version"`
	Branch   string `json:"branch"`
	Revision string `json:"revision"`
}

// Version returns the raw version string reported by the server.
func (c *Client) Version(ctx context.Context) (string, error) {
	var resp versionResponse
	if err := c.getJSON(ctx, "/version", nil, &resp); err != nil {
		return "", trace.Wrap(err)
	}
	if resp.Version == "" {
		return "", trace.NotFound("Fleet did not report a version")
	}
	return resp.Version, nil
}

// DetectVersion returns the server's version without any pre-release suffix.
// When the server cannot be asked, it assumes MinimumVersion so that modern
// deployments behind restrictive proxies are not blocked.
func (c *Client) DetectVersion(ctx context.Context) string {
	version, err := c.Version(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "Could not query Fleet version, assuming minimum supported version",
			"assumed_version", MinimumVersion, "error", err)
		return MinimumVersion
	}
	return stripSuffix(version)
}

// IsSupported reports whether version is at least MinimumVersion. Versions
// that cannot be parsed are assumed to be supported.
func IsSupported(version string) bool {
	v, err := semver.NewVersion(stripSuffix(version))
	if err != nil {
		return true
	}
	return !v.LessThan(minimumVersion)
}

// CheckSupported returns an error when version is older than MinimumVersion.
func CheckSupported(version string) error {
	if IsSupported(version) {
		return nil
	}
	return trace.BadParameter("Fleet version %s is not supported. This processor requires Fleet v%s or higher. "+
		"Please upgrade your Fleet server to a supported version.", version, MinimumVersion)
}

func stripSuffix(version string) string {
	version, _, _ = strings.Cut(strings.TrimSpace(version), "-")
	return strings.TrimPrefix(version, "v")
}
