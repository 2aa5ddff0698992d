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

// Package gitops writes software descriptors into a Fleet GitOps repository
// and proposes them as a pull request.
package gitops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/gravitational/trace"

	"github.com/gravitational/fleet-importer/libs/git"
	"github.com/gravitational/fleet-importer/libs/github"
	"github.com/gravitational/fleet-importer/pkg/config"
	"github.com/gravitational/fleet-importer/pkg/fileutil"
	"github.com/gravitational/fleet-importer/pkg/logging"
)

// Repository is a cloned working copy.
type Repository interface {
	Dir() string
	CreateBranch(name string) error
	HasChanges() (bool, error)
	AddAll() error
	Commit(message, authorName, authorEmail string) (plumbing.Hash, error)
	Push(ctx context.Context, branch string) error
}

// CloneFunc clones a repository into dir.
type CloneFunc func(ctx context.Context, dir string, opts git.CloneOptions) (Repository, error)

// PullRequestClient opens pull requests and hands out the token git uses.
type PullRequestClient interface {
	Token(ctx context.Context) (string, error)
	FindOrCreatePullRequest(ctx context.Context, repo github.Repository, opts github.PullRequestOpts) (*github.PullRequest, error)
}

func cloneRepo(ctx context.Context, dir string, opts git.CloneOptions) (Repository, error) {
	repo, err := git.Clone(ctx, dir, opts)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	return repo, nil
}

// Syncer applies packages to the GitOps repository.
type Syncer struct {
	cfg    config.GitOps
	github PullRequestClient
	clone  CloneFunc
	logger *slog.Logger
}

type Option func(s *Syncer)

// WithLogger configures the syncer with the provided logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger == nil {
			logger = logging.DiscardLogger
		}
		s.logger = logger
	}
}

// WithCloneFunc replaces how the repository is cloned.
func WithCloneFunc(clone CloneFunc) Option {
	return func(s *Syncer) {
		s.clone = clone
	}
}

func NewSyncer(cfg config.GitOps, gh PullRequestClient, opts ...Option) *Syncer {
	s := &Syncer{
		cfg:    cfg,
		github: gh,
		clone:  cloneRepo,
		logger: logging.DiscardLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result reports what a sync pushed. Both fields are empty when the
// repository already matched.
type Result struct {
	Branch         string
	PullRequestURL string
}

// Sync clones the repository, writes the descriptor, scripts and team entry
// for p on a new branch and opens a pull request for it. Nothing is pushed
// when the files are already up to date.
func (s *Syncer) Sync(ctx context.Context, p *Package) (*Result, error) {
	repoRef, err := github.ParseRepoURL(s.cfg.RepoURL)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	token, err := s.github.Token(ctx)
	if err != nil {
		return nil, trace.Wrap(err, "failed to get a token for git")
	}

	dir, err := os.MkdirTemp("", "fleet-gitops-")
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.WarnContext(ctx, "Failed to remove GitOps checkout", "dir", dir, "error", err)
		}
	}()

	s.logger.InfoContext(ctx, "Cloning GitOps repository", "repo", s.cfg.RepoURL, "branch", s.cfg.BaseBranch)
	repo, err := s.clone(ctx, dir, git.CloneOptions{URL: s.cfg.RepoURL, Branch: s.cfg.BaseBranch, Token: token})
	if err != nil {
		return nil, trace.Wrap(err)
	}

	branch := BranchName(s.cfg.BranchPrefix, p.Title, p.Version)
	if err := repo.CreateBranch(branch); err != nil {
		return nil, trace.Wrap(err)
	}

	if err := s.writeFiles(ctx, repo.Dir(), p); err != nil {
		return nil, trace.Wrap(err)
	}

	changed, err := repo.HasChanges()
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if !changed {
		s.logger.InfoContext(ctx, "GitOps repository already up to date, skipping commit and pull request")
		return &Result{}, nil
	}

	title := fmt.Sprintf("Update %s to %s", p.Title, p.Version)
	if err := repo.AddAll(); err != nil {
		return nil, trace.Wrap(err)
	}
	hash, err := repo.Commit(title, s.cfg.GitAuthorName, s.cfg.GitAuthorEmail)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	s.logger.InfoContext(ctx, "Pushing GitOps branch", "branch", branch, "commit", hash.String())
	if err := repo.Push(ctx, branch); err != nil {
		return nil, trace.Wrap(err)
	}

	pr, err := s.github.FindOrCreatePullRequest(ctx, repoRef, github.PullRequestOpts{
		Head:  branch,
		Base:  s.cfg.BaseBranch,
		Title: title,
		Body:  pullRequestBody(p),
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if pr.Existing {
		s.logger.InfoContext(ctx, "Reusing existing pull request", "url", pr.URL)
	} else {
		s.logger.InfoContext(ctx, "Opened pull request", "url", pr.URL)
	}

	return &Result{Branch: branch, PullRequestURL: pr.URL}, nil
}

func (s *Syncer) writeFiles(ctx context.Context, root string, p *Package) error {
	l := layout{softwareDir: s.cfg.SoftwareDir, slug: Slug(p.Title)}

	existing, err := readOptional(root, l.descriptor())
	if err != nil {
		return trace.Wrap(err)
	}
	files, err := renderDescriptor(existing, l, p)
	if err != nil {
		return trace.Wrap(err)
	}

	rel, err := relativeTo(s.cfg.TeamYAMLPath, l.descriptor())
	if err != nil {
		return trace.Wrap(err)
	}
	team, err := readOptional(root, s.cfg.TeamYAMLPath)
	if err != nil {
		return trace.Wrap(err)
	}
	teamData, err := renderTeam(team, s.cfg.TeamYAMLPath, rel, p)
	if err != nil {
		return trace.Wrap(err)
	}
	files = append(files, file{path: s.cfg.TeamYAMLPath, data: teamData})

	for _, f := range files {
		changed, err := fileutil.WriteFile(filepath.Join(root, filepath.FromSlash(f.path)), f.data, 0o644)
		if err != nil {
			return trace.Wrap(err)
		}
		if changed {
			s.logger.DebugContext(ctx, "Wrote GitOps file", "path", f.path)
		}
	}
	return nil
}

func readOptional(root, rel string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, trace.Wrap(err)
}

func pullRequestBody(p *Package) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Automated update of **%s** to version `%s`.\n\n", p.Title, p.Version)
	if p.HashSHA256 != "" {
		fmt.Fprintf(&sb, "- SHA-256: `%s`\n", p.HashSHA256)
	}
	if p.URL != "" {
		fmt.Fprintf(&sb, "- Installer: %s\n", p.URL)
	}
	fmt.Fprintf(&sb, "- Self service: %t\n", p.SelfService)
	if len(p.LabelsIncludeAny) > 0 {
		fmt.Fprintf(&sb, "- Labels (include any): %s\n", strings.Join(p.LabelsIncludeAny, ", "))
	}
	if len(p.LabelsExcludeAny) > 0 {
		fmt.Fprintf(&sb, "- Labels (exclude any): %s\n", strings.Join(p.LabelsExcludeAny, ", "))
	}
	return sb.String()
}
