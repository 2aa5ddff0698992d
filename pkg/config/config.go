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
	"slices"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/gravitational/trace"
)

// Platforms accepted by Fleet for software installers.
var Platforms = []string{"darwin", "windows", "linux", "ios", "ipados"}

// Config holds every processor argument. Field tags name the upper-case
// form of the argument, which is also its environment variable.
type Config struct {
	// Required basics
	PkgPath       string `env:"PKG_PATH,required,notEmpty"`
	SoftwareTitle string `env:"SOFTWARE_TITLE,required,notEmpty"`
	Version       string `env:"VERSION,required,notEmpty"`
	Platform      string `env:"PLATFORM" envDefault:"darwin"`

	// Fleet API
	FleetAPIBase     string `env:"FLEET_API_BASE,required,notEmpty"`
	FleetAPIToken    string `env:"FLEET_API_TOKEN,required,notEmpty"`
	TeamID           int    `env:"TEAM_ID,required,notEmpty"`
	FleetHTTPRetries int    `env:"FLEET_HTTP_RETRIES" envDefault:"2"`

	// Deployment options
	SelfService       bool     `env:"SELF_SERVICE" envDefault:"true"`
	AutomaticInstall  bool     `env:"AUTOMATIC_INSTALL" envDefault:"false"`
	LabelsIncludeAny  []string `env:"LABELS_INCLUDE_ANY" envSeparator:","`
	LabelsExcludeAny  []string `env:"LABELS_EXCLUDE_ANY" envSeparator:","`
	InstallScript     string   `env:"INSTALL_SCRIPT"`
	UninstallScript   string   `env:"UNINSTALL_SCRIPT"`
	PreInstallQuery   string   `env:"PRE_INSTALL_QUERY"`
	PostInstallScript string   `env:"POST_INSTALL_SCRIPT"`

	GitOps GitOps
	Mirror Mirror
}

// GitOps configures the optional GitOps repository sync.
type GitOps struct {
	Enabled        bool   `env:"GITOPS_MODE" envDefault:"false"`
	RepoURL        string `env:"GITOPS_REPO_URL"`
	BaseBranch     string `env:"GITOPS_BASE_BRANCH" envDefault:"main"`
	SoftwareDir    string `env:"GITOPS_SOFTWARE_DIR" envDefault:"lib/macos/software"`
	TeamYAMLPath   string `env:"GITOPS_TEAM_YAML_PATH"`
	BranchPrefix   string `env:"GITOPS_BRANCH_PREFIX" envDefault:"fleet-importer"`
	GitAuthorName  string `env:"GIT_AUTHOR_NAME" envDefault:"fleet-importer"`
	GitAuthorEmail string `env:"GIT_AUTHOR_EMAIL" envDefault:"fleet-importer@localhost"`

	// GitHub credentials. An app installation takes precedence over a
	// token, and the gh credential chain is used when neither is set.
	GitHubToken             string `env:"GITHUB_TOKEN"`
	GitHubAppID             int64  `env:"GITHUB_APP_ID"`
	GitHubAppInstallationID int64  `env:"GITHUB_APP_INSTALLATION_ID"`
	GitHubAppPrivateKey     string `env:"GITHUB_APP_PRIVATE_KEY"`
}

// UsesApp reports whether GitHub App credentials are configured.
func (g GitOps) UsesApp() bool {
	return g.GitHubAppID != 0
}

// Mirror configures the optional S3 copy of the installer referenced from
// GitOps descriptors.
type Mirror struct {
	Bucket            string `env:"AWS_S3_BUCKET"`
	Prefix            string `env:"AWS_S3_PREFIX" envDefault:"software"`
	CloudFrontDomain  string `env:"AWS_CLOUDFRONT_DOMAIN"`
	RetentionVersions int    `env:"S3_RETENTION_VERSIONS" envDefault:"0"`
}

// Enabled reports whether an S3 mirror is configured.
func (m Mirror) Enabled() bool {
	return m.Bucket != ""
}

// Decode converts the merged argument map into a Config and validates it.
func Decode(values map[string]string) (*Config, error) {
	c := &Config{}
	if err := env.ParseWithOptions(c, env.Options{Environment: values}); err != nil {
		return nil, trace.BadParameter("invalid processor arguments: %v", err)
	}

	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, trace.Wrap(err)
	}

	return c, nil
}

func (c *Config) normalize() {
	c.SoftwareTitle = strings.TrimSpace(c.SoftwareTitle)
	c.Version = strings.TrimSpace(c.Version)
	c.Platform = strings.ToLower(strings.TrimSpace(c.Platform))
	c.FleetAPIBase = strings.TrimRight(strings.TrimSpace(c.FleetAPIBase), "/")
	c.LabelsIncludeAny = cleanList(c.LabelsIncludeAny)
	c.LabelsExcludeAny = cleanList(c.LabelsExcludeAny)
	c.GitOps.SoftwareDir = strings.Trim(c.GitOps.SoftwareDir, "/")
	c.Mirror.Prefix = strings.Trim(c.Mirror.Prefix, "/")
	c.Mirror.CloudFrontDomain = strings.TrimSuffix(strings.TrimPrefix(c.Mirror.CloudFrontDomain, "https://"), "/")
}

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	if c.SoftwareTitle == "" {
		return trace.BadParameter("software_title must not be blank")
	}
	if c.Version == "" {
		return trace.BadParameter("version must not be blank")
	}
	if !slices.Contains(Platforms, c.Platform) {
		return trace.BadParameter("platform %q is not one of %s", c.Platform, strings.Join(Platforms, "|"))
	}
	if c.TeamID < 0 {
		return trace.BadParameter("team_id must not be negative")
	}
	if c.FleetHTTPRetries < 0 {
		return trace.BadParameter("fleet_http_retries must not be negative")
	}
	if len(c.LabelsIncludeAny) > 0 && len(c.LabelsExcludeAny) > 0 {
		return trace.BadParameter("only one of labels_include_any or labels_exclude_any may be specified")
	}
	if c.Mirror.RetentionVersions < 0 {
		return trace.BadParameter("s3_retention_versions must not be negative")
	}

	if c.GitOps.Enabled {
		if c.GitOps.RepoURL == "" {
			return trace.BadParameter("gitops_repo_url is required when gitops_mode is enabled")
		}
		if c.GitOps.TeamYAMLPath == "" {
			return trace.BadParameter("gitops_team_yaml_path is required when gitops_mode is enabled")
		}
		if c.GitOps.UsesApp() && (c.GitOps.GitHubAppInstallationID == 0 || c.GitOps.GitHubAppPrivateKey == "") {
			return trace.BadParameter("github_app_installation_id and github_app_private_key are required with github_app_id")
		}
	}

	return nil
}

func cleanList(in []string) []string {
	var out []string
	for _, item := range in {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
