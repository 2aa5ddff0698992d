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

package s3

import (
	"log/slog"
	"strings"

	"github.com/gravitational/fleet-importer/pkg/logging"
)

type Option func(m *Mirror)

// WithPathPrefix places all objects under a key prefix.
func WithPathPrefix(prefix string) Option {
	return func(m *Mirror) {
		m.prefix = strings.Trim(prefix, "/")
	}
}

// WithRegion sets the bucket region used to build public URLs.
func WithRegion(region string) Option {
	return func(m *Mirror) {
		m.region = region
	}
}

// WithCloudFrontDomain serves public URLs from a CloudFront distribution.
func WithCloudFrontDomain(domain string) Option {
	return func(m *Mirror) {
		domain = strings.TrimPrefix(domain, "https://")
		m.cloudFrontDomain = strings.TrimSuffix(domain, "/")
	}
}

// WithRetention keeps only the newest n versions per title. Zero keeps all.
func WithRetention(n int) Option {
	return func(m *Mirror) {
		m.retention = n
	}
}

// WithLogger configures the mirror with the provided logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Mirror) {
		if logger == nil {
			logger = logging.DiscardLogger
		}
		m.logger = logger
	}
}
