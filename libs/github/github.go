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
	"net/http"
	"time"

	"github.com/bradleyfalzon/ghinstallation/v2"
	go_github "github.com/google/go-github/v71/github"
	"github.com/gravitational/trace"
	"golang.org/x/oauth2"
)

const ClientTimeout = 30 * time.Second

type Client struct {
	client *go_github.Client
	pulls  pullRequestService

	// token is what git operations against the same host authenticate with.
	token tokenSource
}

type pullRequestService interface {
	Create(ctx context.Context, owner, repo string, pull *go_github.NewPullRequest) (*go_github.PullRequest, *go_github.Response, error)
	List(ctx context.Context, owner, repo string, opts *go_github.PullRequestListOptions) ([]*go_github.PullRequest, *go_github.Response, error)
}

type tokenSource func(ctx context.Context) (string, error)

// New returns a new GitHub Client.
func New(ctx context.Context, token string) (*Client, error) {
	if token == "" {
		return nil, trace.BadParameter("missing GitHub token")
	}
	clt := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	clt.Timeout = ClientTimeout
	cl := go_github.NewClient(clt)
	return &Client{
		client: cl,
		pulls:  cl.PullRequests,
		token: func(context.Context) (string, error) {
			return token, nil
		},
	}, nil
}

// NewForApp returns a new GitHub Client with authentication for a GitHub App.
func NewForApp(appID int64, installationID int64, privateKey []byte) (*Client, error) {
	itr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKey)
	if err != nil {
		return nil, trace.Wrap(err, "failed to configure GitHub App authentication")
	}
	httpClient := &http.Client{Transport: itr}
	httpClient.Timeout = ClientTimeout

	cl := go_github.NewClient(httpClient)
	return &Client{
		client: cl,
		pulls:  cl.PullRequests,
		token:  itr.Token,
	}, nil
}

// Token returns the credential the client authenticates with. For GitHub
// Apps this is a short-lived installation token.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.token == nil {
		return "", trace.NotFound("client has no token")
	}
	token, err := c.token(ctx)
	return token, trace.Wrap(err)
}
