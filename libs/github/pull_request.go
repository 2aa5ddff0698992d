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

package github

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	go_github "github.com/google/go-github/v71/github"
	"github.com/gravitational/trace"
)

// Repository identifies a GitHub repository.
type Repository struct {
	Host  string
	Owner string
	Name  string
}

// ParseRepoURL extracts the host, owner and name from an HTTPS, SSH or
// scp-like git remote URL.
func ParseRepoURL(raw string) (Repository, error) {
	raw = strings.TrimSpace(raw)

	var host, path string
	switch {
	case strings.Contains(raw, "://"):
		u, err := url.Parse(raw)
		if err != nil {
			return Repository{}, trace.BadParameter("invalid repository URL %q: %v", raw, err)
		}
		host, path = u.Hostname(), u.Path
	default:
		// git@github.com:owner/repo.git
		userHost, p, ok := strings.Cut(raw, ":")
		if !ok {
			return Repository{}, trace.BadParameter("invalid repository URL %q", raw)
		}
		_, host, _ = strings.Cut(userHost, "@")
		if host == "" {
			host = userHost
		}
		path = p
	}

	path = strings.TrimSuffix(strings.Trim(path, "/"), ".git")
	owner, name, ok := strings.Cut(path, "/")
	if !ok || host == "" || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repository{}, trace.BadParameter("repository URL %q is not of the form <host>/<owner>/<repo>", raw)
	}

	return Repository{Host: host, Owner: owner, Name: name}, nil
}

// PullRequest is a created or reused pull request.
type PullRequest struct {
	Number int
	URL    string
	// Existing is set when an open pull request for the head was reused.
	Existing bool
}

// PullRequestOpts describes the pull request to open.
type PullRequestOpts struct {
	Head  string
	Base  string
	Title string
	Body  string
}

// FindOrCreatePullRequest opens a pull request from opts.Head into opts.Base.
// If GitHub reports that one already exists for the head, the open pull
// request is looked up and returned instead.
func (c *Client) FindOrCreatePullRequest(ctx context.Context, repo Repository, opts PullRequestOpts) (*PullRequest, error) {
	pr, _, err := c.pulls.Create(ctx, repo.Owner, repo.Name, &go_github.NewPullRequest{
		Title: go_github.Ptr(opts.Title),
		Head:  go_github.Ptr(opts.Head),
		Base:  go_github.Ptr(opts.Base),
		Body:  go_github.Ptr(opts.Body),
	})
	if err == nil {
		return &PullRequest{Number: pr.GetNumber(), URL: pr.GetHTMLURL()}, nil
	}
	if !isAlreadyExists(err) {
		return nil, trace.Wrap(err, "failed to create pull request")
	}

	prs, _, err := c.pulls.List(ctx, repo.Owner, repo.Name, &go_github.PullRequestListOptions{
		State: "open",
		Head:  repo.Owner + ":" + opts.Head,
		Base:  opts.Base,
	})
	if err != nil {
		return nil, trace.Wrap(err, "failed to list pull requests")
	}
	if len(prs) == 0 {
		return nil, trace.NotFound("pull request for %s:%s reported as existing but none is open", repo.Owner, opts.Head)
	}

	return &PullRequest{Number: prs[0].GetNumber(), URL: prs[0].GetHTMLURL(), Existing: true}, nil
}

func isAlreadyExists(err error) bool {
	var errResp *go_github.ErrorResponse
	if !errors.As(err, &errResp) || errResp.Response == nil || errResp.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	if strings.Contains(errResp.Message, "already exists") {
		return true
	}
	for _, e := range errResp.Errors {
		if strings.Contains(e.Message, "already exists") {
			return true
		}
	}
	return false
}
