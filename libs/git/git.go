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

// Package git wraps go-git with the handful of repository operations needed
// to prepare a branch and push it.
package git

import (
	"context"
	"errors"
	"time"

	go_git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/gravitational/trace"
)

// DefaultRemote is the remote a clone pushes to.
const DefaultRemote = "origin"

// Repo provides utility functions around a git repository.
type Repo struct {
	dir        string
	auth       transport.AuthMethod
	Repository *go_git.Repository
}

func NewRepoFromDirectory(dir string) (*Repo, error) {
	inner, err := go_git.PlainOpen(dir)
	if err != nil {
		return &Repo{}, trace.Wrap(err)
	}

	return &Repo{
		dir:        dir,
		Repository: inner,
	}, nil
}

// CloneOptions describes the repository to clone.
type CloneOptions struct {
	// URL of the remote repository.
	URL string
	// Branch to check out. The remote's HEAD is used when empty.
	Branch string
	// Token is sent as HTTP basic auth, the way GitHub accepts installation
	// and personal access tokens. No auth is sent when empty.
	Token string
}

// TokenAuth returns HTTP basic auth for a GitHub token, or nil for an empty one.
func TokenAuth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "x-access-token", Password: token}
}

// Clone clones opts.URL into dir. The same credentials are reused by Push.
func Clone(ctx context.Context, dir string, opts CloneOptions) (*Repo, error) {
	cloneOpts := &go_git.CloneOptions{
		URL:          opts.URL,
		Auth:         TokenAuth(opts.Token),
		SingleBranch: true,
	}
	if opts.Branch != "" {
		cloneOpts.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
	}

	inner, err := go_git.PlainCloneContext(ctx, dir, false, cloneOpts)
	if err != nil {
		return nil, trace.Wrap(err, "failed to clone %s", opts.URL)
	}

	return &Repo{
		dir:        dir,
		auth:       cloneOpts.Auth,
		Repository: inner,
	}, nil
}

// Dir is the repository's working tree.
func (r *Repo) Dir() string {
	return r.dir
}

// CreateBranch creates a branch at HEAD and checks it out.
func (r *Repo) CreateBranch(name string) error {
	wt, err := r.Repository.Worktree()
	if err != nil {
		return trace.Wrap(err)
	}

	err = wt.Checkout(&go_git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
		Keep:   true,
	})
	return trace.Wrap(err, "failed to create branch %q", name)
}

// HasChanges reports whether the working tree differs from HEAD.
func (r *Repo) HasChanges() (bool, error) {
	wt, err := r.Repository.Worktree()
	if err != nil {
		return false, trace.Wrap(err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, trace.Wrap(err)
	}
	return !status.IsClean(), nil
}

// AddAll stages every change in the working tree, deletions included.
func (r *Repo) AddAll() error {
	wt, err := r.Repository.Worktree()
	if err != nil {
		return trace.Wrap(err)
	}
	return trace.Wrap(wt.AddWithOptions(&go_git.AddOptions{All: true}))
}

// Commit records the staged changes.
func (r *Repo) Commit(message, authorName, authorEmail string) (plumbing.Hash, error) {
	wt, err := r.Repository.Worktree()
	if err != nil {
		return plumbing.ZeroHash, trace.Wrap(err)
	}

	hash, err := wt.Commit(message, &go_git.CommitOptions{
		Author: &object.Signature{
			Name:  authorName,
			Email: authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return plumbing.ZeroHash, trace.Wrap(err, "failed to commit")
	}
	return hash, nil
}

// Push pushes branch to the remote it was cloned from.
func (r *Repo) Push(ctx context.Context, branch string) error {
	ref := plumbing.NewBranchReferenceName(branch)
	err := r.Repository.PushContext(ctx, &go_git.PushOptions{
		RemoteName: DefaultRemote,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
		Auth:       r.auth,
	})
	if errors.Is(err, go_git.NoErrAlreadyUpToDate) {
		return nil
	}
	return trace.Wrap(err, "failed to push branch %q", branch)
}

// GetCommitForHead attempts to get the resolved commit for head.
func (r *Repo) GetCommitForHead() (*object.Commit, error) {
	ref, err := r.Repository.Reference(plumbing.HEAD, true)
	if err != nil {
		return &object.Commit{}, trace.Wrap(err, "can't get latest reference for HEAD")
	}
	return r.Repository.CommitObject(ref.Hash())
}

// GetBranchNameForHead attempts to get the short name of the branch HEAD
// points to.
func (r *Repo) GetBranchNameForHead() (string, error) {
	// symbolic-ref HEAD
	ref, err := r.Repository.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", trace.Wrap(err, "not on a branch")
	}

	if ref.Type() != plumbing.SymbolicReference || !ref.Target().IsBranch() {
		return "", trace.BadParameter("not on a branch: %s", ref)
	}
	return ref.Target().Short(), nil
}
