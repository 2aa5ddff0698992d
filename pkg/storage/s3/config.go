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
	"context"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gravitational/trace"

	"github.com/gravitational/fleet-importer/pkg/config"
	"github.com/gravitational/fleet-importer/pkg/logging"
)

// FromConfig builds a mirror with credentials and region from the AWS SDK's
// default chain.
func FromConfig(ctx context.Context, cfg config.Mirror, logger *slog.Logger) (*Mirror, error) {
	if logger == nil {
		logger = logging.DiscardLogger
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithLogger(logging.ToAWSLogger(logger)))
	if err != nil {
		return nil, trace.Wrap(err, "failed to load AWS config from default sources")
	}

	client := s3.NewFromConfig(awsCfg)

	return NewMirror(client, cfg.Bucket,
		WithPathPrefix(cfg.Prefix),
		WithRegion(awsCfg.Region),
		WithCloudFrontDomain(cfg.CloudFrontDomain),
		WithRetention(cfg.RetentionVersions),
		WithLogger(logger),
	), nil
}
