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
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"

	go_github "github.com/google/go-github/v71/github"
)

// newFakeClient creates a new GitHub Client using the provided HTTP mux for handling requests.
// This is useful for testing with mock HTTP responses.
func newFakeClient(mux *http.ServeMux) (*Client, func()) {
	srv := httptest.NewServer(mux)
	closer := func() {
		srv.Close()
	}
	cl := go_github.NewClient(srv.Client())
	baseURL, err := url.Parse(srv.URL + "/")
	if err != nil {
		panic("parsing test server URL: " + err.Error())
	}
	cl.BaseURL = baseURL

	return &Client{
		client: cl,
		pulls:  cl.PullRequests,
	}, closer
}

func respondWithJSONTestdata(w http.ResponseWriter, status int, filename string) error {
	f, err := os.Open(filepath.Join("testdata", filename))
	if err != nil {
		return err
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = io.Copy(w, f)
	return err
}
