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
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"github.com/gravitational/trace"
)

// SoftwareTitle is Fleet's grouping of installers across versions.
type SoftwareTitle struct {
	ID              uint             `json:"id"`
	Name            string           `json:"name"`
	Source          string           `json:"source,omitempty"`
	HashSHA256      string           `json:"hash_sha256,omitempty"`
	Versions        []TitleVersion   `json:"versions"`
	SoftwarePackage *SoftwarePackage `json:"software_package,omitempty"`
}

// SoftwarePackage is the installer currently attached to a title.
type SoftwarePackage struct {
	Name       string `json:"name"`
	Version    string `json:"version"`
	HashSHA256 string `json:"hash_sha256,omitempty"`
}

// TitleVersion is one entry of a title's versions array. Fleet returns
// objects, older servers plain strings.
type TitleVersion struct {
	ID      uint
	Version string
	// Unrecognized is set for entries that are neither strings nor objects
	// with a string version.
	Unrecognized bool
}

func (v *TitleVersion) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 0 && data[0] == '"':
		return trace.Wrap(json.Unmarshal(data, &v.Version))
	case len(data) > 0 && data[0] == '{':
		var obj struct {
			ID      uint   `json:"id"`
			Version string `json:"version"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			v.Unrecognized = true
			return nil
		}
		v.ID, v.Version = obj.ID, obj.Version
	default:
		v.Unrecognized = true
	}
	return nil
}

type titlesResponse struct {
	Count          int             `json:"count"`
	SoftwareTitles []SoftwareTitle `json:"software_titles"`
}

// SearchTitles lists titles available for install on a team whose name
// matches query. Fleet's search is fuzzy, callers still need MatchTitle.
func (c *Client) SearchTitles(ctx context.Context, teamID int, query string) ([]SoftwareTitle, error) {
	params := url.Values{}
	params.Set("available_for_install", "true")
	params.Set("team_id", strconv.Itoa(teamID))
	params.Set("query", query)

	var resp titlesResponse
	if err := c.getJSON(ctx, "/software/titles", params, &resp); err != nil {
		return nil, trace.Wrap(err)
	}
	return resp.SoftwareTitles, nil
}

// MatchKind describes how a title name matched the requested name.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchCaseInsensitive
	MatchFuzzy
)

func (m MatchKind) String() string {
	switch m {
	case MatchExact:
		return "exact"
	case MatchCaseInsensitive:
		return "case-insensitive"
	case MatchFuzzy:
		return "fuzzy"
	default:
		return "none"
	}
}

// MatchTitle picks the title that best matches name. An exact match anywhere
// in titles wins over a case-insensitive one, which wins over a fuzzy one
// (either lowercase name contains the other, e.g. "Zoom" and "zoom.us").
// Ties go to the first title in server order.
func MatchTitle(titles []SoftwareTitle, name string) (*SoftwareTitle, MatchKind) {
	for i := range titles {
		if titles[i].Name == name {
			return &titles[i], MatchExact
		}
	}

	for i := range titles {
		if strings.EqualFold(titles[i].Name, name) {
			return &titles[i], MatchCaseInsensitive
		}
	}

	want := strings.ToLower(name)
	for i := range titles {
		got := strings.ToLower(titles[i].Name)
		if got == "" || want == "" {
			continue
		}
		if strings.Contains(got, want) || strings.Contains(want, got) {
			return &titles[i], MatchFuzzy
		}
	}

	return nil, MatchNone
}

// HasVersion reports whether version is one of the title's uploaded versions
// or the version of its current package.
func (t *SoftwareTitle) HasVersion(version string) bool {
	for _, v := range t.Versions {
		if !v.Unrecognized && v.Version == version {
			return true
		}
	}
	return t.SoftwarePackage != nil && t.SoftwarePackage.Version == version
}

// Hash returns the title's recorded installer hash, if any.
func (t *SoftwareTitle) Hash() string {
	if t.HashSHA256 != "" {
		return t.HashSHA256
	}
	if t.SoftwarePackage != nil {
		return t.SoftwarePackage.HashSHA256
	}
	return ""
}

// ExistingPackage describes a title/version already present on the server.
type ExistingPackage struct {
	TitleID    uint
	TitleName  string
	Version    string
	HashSHA256 string
	Match      MatchKind
}

// FindExistingPackage searches the team's titles for title and reports
// whether version is already uploaded. It returns nil when it is not.
func (c *Client) FindExistingPackage(ctx context.Context, teamID int, title, version string) (*ExistingPackage, error) {
	titles, err := c.SearchTitles(ctx, teamID, title)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	c.logger.InfoContext(ctx, "Searched software titles", "query", title, "results", len(titles))

	match, kind := MatchTitle(titles, title)
	if match == nil {
		for _, t := range titles {
			c.logger.InfoContext(ctx, "Title does not match", "wanted", title, "found", t.Name)
		}
		return nil, nil
	}
	c.logger.InfoContext(ctx, "Found matching software title",
		"match", kind.String(), "title", match.Name, "title_id", match.ID, "versions", len(match.Versions))

	for i, v := range match.Versions {
		if v.Unrecognized {
			c.logger.DebugContext(ctx, "Skipping unrecognized version entry", "index", i)
		}
	}

	if !match.HasVersion(version) {
		c.logger.InfoContext(ctx, "Version not found for title", "title", match.Name, "version", version)
		return nil, nil
	}

	return &ExistingPackage{
		TitleID:    match.ID,
		TitleName:  match.Name,
		Version:    version,
		HashSHA256: match.Hash(),
		Match:      kind,
	}, nil
}
