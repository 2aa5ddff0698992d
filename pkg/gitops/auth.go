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

package gitops

import (
	"context"
	"os"
	"strings"

	"github.com/gravitational/trace"

	"github.com/gravitational/fleet-importer/libs/github"
	"github.com/gravitational/fleet-importer/pkg/config"
)

// NewGitHubClient picks GitHub credentials in order: GitHub App installation,
// explicit token, then the gh credential chain for the repository's host.
func NewGitHubClient(ctx context.Context, cfg config.GitOps) (*github.Client, error) {
	if cfg.UsesApp() {
		key, err := privateKey(cfg.GitHubAppPrivateKey)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		client, err := github.NewForApp(cfg.GitHubAppID, cfg.GitHubAppInstallationID, key)
		return client, trace.Wrap(err)
	}

	if cfg.GitHubToken != "" {
		client, err := github.New(ctx, cfg.GitHubToken)
		return client, trace.Wrap(err)
	}

	repo, err := github.ParseRepoURL(cfg.RepoURL)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	client, err := github.NewClientFromGHAuth(ctx, repo.Host)
	if err != nil {
		return nil, trace.Wrap(err, "no github_token set and no gh credentials found for %s", repo.Host)
	}
	return client, nil
}

// privateKey accepts either a PEM block or a path to one.
func privateKey(value string) ([]byte, error) {
	if strings.Contains(value, "-----BEGIN") {
		return []byte(value), nil
	}
	key, err := os.ReadFile(value)
	if err != nil {
		return nil, trace.Wrap(err, "failed to read GitHub App private key")
	}
	return key, nil
}
