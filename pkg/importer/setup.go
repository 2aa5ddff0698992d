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

package importer

import (
	"context"
	"log/slog"

	"github.com/gravitational/trace"

	"github.com/gravitational/fleet-importer/pkg/config"
	"github.com/gravitational/fleet-importer/pkg/fleet"
	"github.com/gravitational/fleet-importer/pkg/gitops"
	"github.com/gravitational/fleet-importer/pkg/logging"
	"github.com/gravitational/fleet-importer/pkg/storage/s3"
)

// FromConfig wires the Fleet client and, when configured, the GitOps syncer
// and S3 mirror.
func FromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Importer, error) {
	if logger == nil {
		logger = logging.DiscardLogger
	}
	client := fleet.NewClient(cfg.FleetAPIBase, cfg.FleetAPIToken,
		fleet.WithRetries(cfg.FleetHTTPRetries),
		fleet.WithLogger(logger),
	)
	opts := []Option{WithLogger(logger)}

	if !cfg.GitOps.Enabled {
		if cfg.Mirror.Enabled() {
			logger.WarnContext(ctx, "aws_s3_bucket is only used in GitOps mode, ignoring it")
		}
		return New(cfg, client, opts...), nil
	}

	gh, err := gitops.NewGitHubClient(ctx, cfg.GitOps)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	opts = append(opts, WithGitOps(gitops.NewSyncer(cfg.GitOps, gh, gitops.WithLogger(logger))))

	if cfg.Mirror.Enabled() {
		mirror, err := s3.FromConfig(ctx, cfg.Mirror, logger)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		opts = append(opts, WithMirror(mirror))
	}

	return New(cfg, client, opts...), nil
}
