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

// Package importer runs the upload pipeline: version gate, duplicate check,
// upload and the optional GitOps follow-up.
package importer

import (
	"context"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/gravitational/trace"

	"github.com/gravitational/fleet-importer/pkg/config"
	"github.com/gravitational/fleet-importer/pkg/fileutil"
	"github.com/gravitational/fleet-importer/pkg/fleet"
	"github.com/gravitational/fleet-importer/pkg/gitops"
	"github.com/gravitational/fleet-importer/pkg/logging"
	"github.com/gravitational/fleet-importer/pkg/storage/s3"
)

// Output names reported to the host.
const (
	OutputTitleID        = "fleet_title_id"
	OutputInstallerID    = "fleet_installer_id"
	OutputHashSHA256     = "hash_sha256"
	OutputGitBranch      = "git_branch"
	OutputPullRequestURL = "pull_request_url"
	OutputFleetVersion   = "fleet_version"
	OutputExists         = "version_exists"
)

// FleetClient is the part of the Fleet API the pipeline uses.
type FleetClient interface {
	DetectVersion(ctx context.Context) string
	FindExistingPackage(ctx context.Context, teamID int, title, version string) (*fleet.ExistingPackage, error)
	UploadPackage(ctx context.Context, r fleet.UploadRequest) (*fleet.UploadResult, error)
}

// Mirror stores installers somewhere GitOps descriptors can point to.
type Mirror interface {
	Upload(ctx context.Context, localPath, slug, version string) (*s3.Object, error)
	Prune(ctx context.Context, slug, current string) ([]string, error)
}

// Syncer proposes descriptor changes to the GitOps repository.
type Syncer interface {
	Sync(ctx context.Context, p *gitops.Package) (*gitops.Result, error)
}

type Importer struct {
	cfg    *config.Config
	fleet  FleetClient
	mirror Mirror
	gitops Syncer
	logger *slog.Logger
}

type Option func(i *Importer)

// WithMirror copies fresh uploads to m before the GitOps sync.
func WithMirror(m Mirror) Option {
	return func(i *Importer) {
		i.mirror = m
	}
}

// WithGitOps enables the GitOps sync after a fresh upload.
func WithGitOps(s Syncer) Option {
	return func(i *Importer) {
		i.gitops = s
	}
}

// WithLogger configures the importer with the provided logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger == nil {
			logger = logging.DiscardLogger
		}
		i.logger = logger
	}
}

func New(cfg *config.Config, client FleetClient, opts ...Option) *Importer {
	i := &Importer{
		cfg:    cfg,
		fleet:  client,
		logger: logging.DiscardLogger,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Result is what a run reports. Zero identifiers mean Fleet did not return
// any, which happens when nothing was uploaded.
type Result struct {
	TitleID        uint
	InstallerID    uint
	HashSHA256     string
	GitBranch      string
	PullRequestURL string

	// Skipped is set when the version was already present on the server.
	Skipped bool
}

// Outputs renders the result as the host's output variables. Missing
// values are empty strings.
func (r *Result) Outputs() map[string]string {
	return map[string]string{
		OutputTitleID:        formatID(r.TitleID),
		OutputInstallerID:    formatID(r.InstallerID),
		OutputHashSHA256:     r.HashSHA256,
		OutputGitBranch:      r.GitBranch,
		OutputPullRequestURL: r.PullRequestURL,
	}
}

func formatID(id uint) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(uint64(id), 10)
}

// Run uploads the installer unless the version is already on the server,
// then runs the GitOps sync when one is configured.
func (i *Importer) Run(ctx context.Context) (*Result, error) {
	pkgPath, hash, err := i.prepare(ctx)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	if existing := i.findExisting(ctx); existing != nil {
		i.logger.InfoContext(ctx, "Package already exists in Fleet, skipping upload",
			"title", existing.TitleName, "version", existing.Version, "title_id", existing.TitleID)
		return &Result{HashSHA256: hash, Skipped: true}, nil
	}

	upload, err := i.fleet.UploadPackage(ctx, fleet.UploadRequest{
		TeamID:            i.cfg.TeamID,
		PackagePath:       pkgPath,
		SelfService:       i.cfg.SelfService,
		AutomaticInstall:  i.cfg.AutomaticInstall,
		LabelsIncludeAny:  i.cfg.LabelsIncludeAny,
		LabelsExcludeAny:  i.cfg.LabelsExcludeAny,
		InstallScript:     i.cfg.InstallScript,
		UninstallScript:   i.cfg.UninstallScript,
		PreInstallQuery:   i.cfg.PreInstallQuery,
		PostInstallScript: i.cfg.PostInstallScript,
	})
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if upload.AlreadyExists {
		return &Result{HashSHA256: hash, Skipped: true}, nil
	}

	res := &Result{
		TitleID:     upload.TitleID,
		InstallerID: upload.InstallerID,
		HashSHA256:  upload.HashSHA256,
	}
	if res.HashSHA256 == "" {
		res.HashSHA256 = hash
	}
	i.logger.InfoContext(ctx, "Uploaded package to Fleet",
		"title_id", res.TitleID, "installer_id", res.InstallerID, "hash_sha256", res.HashSHA256)

	if i.gitops == nil {
		return res, nil
	}
	if err := i.syncGitOps(ctx, pkgPath, res); err != nil {
		return nil, trace.Wrap(err)
	}
	return res, nil
}

// prepare resolves the installer, checks the server version and hashes the
// installer.
func (i *Importer) prepare(ctx context.Context) (pkgPath, hash string, err error) {
	pkgPath, err = fileutil.ResolveFile(i.cfg.PkgPath)
	if err != nil {
		return "", "", trace.Wrap(err)
	}
	if len(i.cfg.LabelsIncludeAny) > 0 && len(i.cfg.LabelsExcludeAny) > 0 {
		return "", "", trace.BadParameter("only one of labels_include_any or labels_exclude_any may be specified")
	}

	version := i.fleet.DetectVersion(ctx)
	if err := fleet.CheckSupported(version); err != nil {
		return "", "", trace.Wrap(err)
	}
	i.logger.InfoContext(ctx, "Fleet version is supported", "version", version)

	hash, err = fileutil.SHA256File(pkgPath)
	if err != nil {
		return "", "", trace.Wrap(err, "failed to hash %s", pkgPath)
	}
	i.logger.DebugContext(ctx, "Hashed installer", "path", pkgPath, "hash_sha256", hash)
	return pkgPath, hash, nil
}

// findExisting treats a failed lookup as "not present" so that the upload
// and its conflict handling decide instead.
func (i *Importer) findExisting(ctx context.Context) *fleet.ExistingPackage {
	existing, err := i.fleet.FindExistingPackage(ctx, i.cfg.TeamID, i.cfg.SoftwareTitle, i.cfg.Version)
	if err != nil {
		i.logger.WarnContext(ctx, "Failed to check for existing package, proceeding with upload", "error", err)
		return nil
	}
	return existing
}

func (i *Importer) syncGitOps(ctx context.Context, pkgPath string, res *Result) error {
	slug := gitops.Slug(i.cfg.SoftwareTitle)

	var url string
	if i.mirror != nil {
		obj, err := i.mirror.Upload(ctx, pkgPath, slug, i.cfg.Version)
		if err != nil {
			return trace.Wrap(err)
		}
		url = obj.URL
	}

	sync, err := i.gitops.Sync(ctx, &gitops.Package{
		Title:             i.cfg.SoftwareTitle,
		Version:           i.cfg.Version,
		URL:               url,
		HashSHA256:        res.HashSHA256,
		InstallScript:     i.cfg.InstallScript,
		UninstallScript:   i.cfg.UninstallScript,
		PreInstallQuery:   i.cfg.PreInstallQuery,
		PostInstallScript: i.cfg.PostInstallScript,
		SelfService:       i.cfg.SelfService,
		LabelsIncludeAny:  i.cfg.LabelsIncludeAny,
		LabelsExcludeAny:  i.cfg.LabelsExcludeAny,
	})
	if err != nil {
		return trace.Wrap(err, "GitOps sync failed")
	}
	res.GitBranch = sync.Branch
	res.PullRequestURL = sync.PullRequestURL

	if i.mirror != nil {
		// The installer is already referenced by then, a failed cleanup
		// only leaves extra objects behind.
		if _, err := i.mirror.Prune(ctx, slug, i.cfg.Version); err != nil {
			i.logger.WarnContext(ctx, "Failed to prune old mirrored versions", "error", err)
		}
	}
	return nil
}

// CheckResult reports whether the configured version is already on the
// server.
type CheckResult struct {
	FleetVersion string
	Exists       bool
	TitleID      uint
	HashSHA256   string
}

func (r *CheckResult) Outputs() map[string]string {
	return map[string]string{
		OutputFleetVersion: r.FleetVersion,
		OutputExists:       strconv.FormatBool(r.Exists),
		OutputTitleID:      formatID(r.TitleID),
		OutputHashSHA256:   r.HashSHA256,
	}
}

// Check runs the version gate and the duplicate lookup without uploading.
// Unlike Run, a failed lookup is an error.
func (i *Importer) Check(ctx context.Context) (*CheckResult, error) {
	version := i.fleet.DetectVersion(ctx)
	if err := fleet.CheckSupported(version); err != nil {
		return nil, trace.Wrap(err)
	}
	res := &CheckResult{FleetVersion: version}

	if i.cfg.PkgPath != "" {
		pkgPath, err := fileutil.ResolveFile(i.cfg.PkgPath)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		if res.HashSHA256, err = fileutil.SHA256File(pkgPath); err != nil {
			return nil, trace.Wrap(err, "failed to hash %s", filepath.Base(pkgPath))
		}
	}

	existing, err := i.fleet.FindExistingPackage(ctx, i.cfg.TeamID, i.cfg.SoftwareTitle, i.cfg.Version)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if existing != nil {
		res.Exists = true
		res.TitleID = existing.TitleID
	}
	return res, nil
}
