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

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	name   string
	values map[string]string
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Values() (map[string]string, error) { return s.values, nil }

func requiredArgs() map[string]string {
	return map[string]string{
		"PKG_PATH":        "/tmp/Firefox-130.0.pkg",
		"SOFTWARE_TITLE":  " Firefox.app ",
		"VERSION":         "130.0 ",
		"FLEET_API_BASE":  "https://fleet.example.com/",
		"FLEET_API_TOKEN": "secret",
		"TEAM_ID":         "3",
	}
}

func TestDecodeDefaults(t *testing.T) {
	c, err := Decode(requiredArgs())
	require.NoError(t, err)

	assert.Equal(t, "Firefox.app", c.SoftwareTitle)
	assert.Equal(t, "130.0", c.Version)
	assert.Equal(t, "darwin", c.Platform)
	assert.Equal(t, "https://fleet.example.com", c.FleetAPIBase)
	assert.Equal(t, 3, c.TeamID)
	assert.True(t, c.SelfService)
	assert.False(t, c.AutomaticInstall)
	assert.Equal(t, 2, c.FleetHTTPRetries)
	assert.Empty(t, c.LabelsIncludeAny)
	assert.False(t, c.GitOps.Enabled)
	assert.Equal(t, "main", c.GitOps.BaseBranch)
	assert.Equal(t, "lib/macos/software", c.GitOps.SoftwareDir)
	assert.Equal(t, "software", c.Mirror.Prefix)
	assert.False(t, c.Mirror.Enabled())
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(map[string]string)
		errMsg string
	}{
		{
			name:   "missing token",
			modify: func(m map[string]string) { delete(m, "FLEET_API_TOKEN") },
			errMsg: "FLEET_API_TOKEN",
		},
		{
			name:   "bad team id",
			modify: func(m map[string]string) { m["TEAM_ID"] = "three" },
			errMsg: "TeamID",
		},
		{
			name:   "blank title",
			modify: func(m map[string]string) { m["SOFTWARE_TITLE"] = "   " },
			errMsg: "software_title",
		},
		{
			name:   "unknown platform",
			modify: func(m map[string]string) { m["PLATFORM"] = "beos" },
			errMsg: "platform",
		},
		{
			name: "both label lists",
			modify: func(m map[string]string) {
				m["LABELS_INCLUDE_ANY"] = "a"
				m["LABELS_EXCLUDE_ANY"] = "b"
			},
			errMsg: "only one of labels_include_any or labels_exclude_any",
		},
		{
			name:   "gitops without repo",
			modify: func(m map[string]string) { m["GITOPS_MODE"] = "true" },
			errMsg: "gitops_repo_url",
		},
		{
			name: "gitops without team file",
			modify: func(m map[string]string) {
				m["GITOPS_MODE"] = "true"
				m["GITOPS_REPO_URL"] = "https://github.com/acme/fleet-gitops.git"
			},
			errMsg: "gitops_team_yaml_path",
		},
		{
			name: "app without key",
			modify: func(m map[string]string) {
				m["GITOPS_MODE"] = "true"
				m["GITOPS_REPO_URL"] = "https://github.com/acme/fleet-gitops.git"
				m["GITOPS_TEAM_YAML_PATH"] = "teams/workstations.yml"
				m["GITHUB_APP_ID"] = "1234"
			},
			errMsg: "github_app_private_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := requiredArgs()
			tt.modify(args)

			_, err := Decode(args)
			require.Error(t, err)
			assert.True(t, trace.IsBadParameter(err), "got %T", trace.Unwrap(err))
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestResolverPriority(t *testing.T) {
	env := &staticSource{name: "environment", values: map[string]string{"FLEET_API_TOKEN": "from-env"}}
	prefs := &staticSource{name: "preferences", values: map[string]string{
		"FLEET_API_TOKEN": "from-prefs",
		"FLEET_API_BASE":  "https://prefs.example.com",
	}}
	recipe := &staticSource{name: "recipe", values: requiredArgs()}

	values, origins, err := NewResolver(env, prefs, recipe).Resolve()
	require.NoError(t, err)

	assert.Equal(t, "from-env", values["FLEET_API_TOKEN"])
	assert.Equal(t, "environment", origins["FLEET_API_TOKEN"])
	assert.Equal(t, "https://prefs.example.com", values["FLEET_API_BASE"])
	assert.Equal(t, "preferences", origins["FLEET_API_BASE"])
	assert.Equal(t, "3", values["TEAM_ID"])
	assert.Equal(t, "recipe", origins["TEAM_ID"])
}

func TestEnvSourceSkipsEmpty(t *testing.T) {
	s := &EnvSource{environ: func() []string {
		return []string{"TEAM_ID=4", "VERSION=", "MALFORMED", "=x"}
	}}

	values, err := s.Values()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"TEAM_ID": "4"}, values)
}

func TestFileSource(t *testing.T) {
	recipe := NewRecipeSource(filepath.Join("testdata", "recipe.yaml"))
	values, err := recipe.Values()
	require.NoError(t, err)

	assert.Equal(t, "Firefox.app", values["SOFTWARE_TITLE"])
	assert.Equal(t, "7", values["TEAM_ID"])
	assert.Equal(t, "false", values["SELF_SERVICE"])
	assert.Equal(t, "Workstations,Engineering", values["LABELS_INCLUDE_ANY"])
	assert.Equal(t, "#!/bin/sh\necho installed\n", values["POST_INSTALL_SCRIPT"])
}

func TestFileSourceStdin(t *testing.T) {
	s := NewRecipeSource("-")
	s.stdin = strings.NewReader(`{"team_id": 12, "gitops_mode": true}`)

	values, err := s.Values()
	require.NoError(t, err)
	assert.Equal(t, "12", values["TEAM_ID"])
	assert.Equal(t, "true", values["GITOPS_MODE"])
}

func TestFileSourceKeepsNumberText(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{name: "yaml", contents: "version: 130.0\nother: 1.10\nteam_id: 007\n"},
		{name: "json", contents: `{"version": 130.0, "other": 1.10, "team_id": 007}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRecipeSource("-")
			s.stdin = strings.NewReader(tt.contents)

			values, err := s.Values()
			require.NoError(t, err)
			assert.Equal(t, "130.0", values["VERSION"])
			assert.Equal(t, "1.10", values["OTHER"])
			assert.Equal(t, "007", values["TEAM_ID"])
		})
	}
}

func TestFileSourceMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	values, err := NewPreferencesSource(missing).Values()
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = NewRecipeSource(missing).Values()
	require.Error(t, err)
}

func TestFileSourceRejectsNested(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("labels_include_any:\n  nested: map\n"), 0o644))

	_, err := NewPreferencesSource(path).Values()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "labels_include_any")
}

func TestLoad(t *testing.T) {
	env := &staticSource{name: "environment", values: map[string]string{"GITOPS_MODE": "false"}}
	recipe := NewRecipeSource(filepath.Join("testdata", "recipe.yaml"))
	prefs := &staticSource{name: "preferences", values: map[string]string{
		"FLEET_API_BASE":  "https://fleet.example.com",
		"FLEET_API_TOKEN": "token",
	}}

	c, origins, err := Load(env, prefs, recipe)
	require.NoError(t, err)

	assert.Equal(t, []string{"Workstations", "Engineering"}, c.LabelsIncludeAny)
	assert.False(t, c.SelfService)
	assert.Equal(t, 7, c.TeamID)
	assert.Equal(t, "preferences", origins["FLEET_API_TOKEN"])
}
