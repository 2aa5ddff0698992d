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

package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/gravitational/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gravitational/fleet-importer/pkg/config"
	"github.com/gravitational/fleet-importer/pkg/fleet"
	"github.com/gravitational/fleet-importer/pkg/gitops"
	"github.com/gravitational/fleet-importer/pkg/storage/s3"
)

// sha256 of "hello world"
const helloHash = "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"

type mockFleet struct {
	mock.Mock
}

func (m *mockFleet) DetectVersion(ctx context.Context) string {
	return m.Called(ctx).String(0)
}

func (m *mockFleet) FindExistingPackage(ctx context.Context, teamID int, title, version string) (*fleet.ExistingPackage, error) {
	ret := m.Called(ctx, teamID, title, version)
	existing, _ := ret.Get(0).(*fleet.ExistingPackage)
	return existing, ret.Error(1)
}

func (m *mockFleet) UploadPackage(ctx context.Context, r fleet.UploadRequest) (*fleet.UploadResult, error) {
	ret := m.Called(ctx, r)
	res, _ := ret.Get(0).(*fleet.UploadResult)
	return res, ret.Error(1)
}

type mockMirror struct {
	mock.Mock
}

func (m *mockMirror) Upload(ctx context.Context, localPath, slug, version string) (*s3.Object, error) {
	ret := m.Called(ctx, localPath, slug, version)
	obj, _ := ret.Get(0).(*s3.Object)
	return obj, ret.Error(1)
}

func (m *mockMirror) Prune(ctx context.Context, slug, current string) ([]string, error) {
	ret := m.Called(ctx, slug, current)
	pruned, _ := ret.Get(0).([]string)
	return pruned, ret.Error(1)
}

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) Sync(ctx context.Context, p *gitops.Package) (*gitops.Result, error) {
	ret := m.Called(ctx, p)
	res, _ := ret.Get(0).(*gitops.Result)
	return res, ret.Error(1)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	pkg := filepath.Join(t.TempDir(), "Firefox-131.0.pkg")
	require.NoError(t, os.WriteFile(pkg, []byte("hello world"), 0o644))

	return &config.Config{
		PkgPath:          pkg,
		SoftwareTitle:    "Firefox.app",
		Version:          "131.0",
		Platform:         "darwin",
		FleetAPIBase:     "https://fleet.example.com",
		FleetAPIToken:    "token",
		TeamID:           7,
		SelfService:      true,
		LabelsIncludeAny: []string{"Workstations"},
		InstallScript:    "installer -pkg x -target /",
	}
}

func TestRunUploads(t *testing.T) {
	cfg := testConfig(t)
	f := &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.75.0")
	f.On("FindExistingPackage", mock.Anything, 7, "Firefox.app", "131.0").Return(nil, nil)
	f.On("UploadPackage", mock.Anything, mock.MatchedBy(func(r fleet.UploadRequest) bool {
		return r.TeamID == 7 && filepath.Base(r.PackagePath) == "Firefox-131.0.pkg" && r.SelfService &&
			r.InstallScript == cfg.InstallScript && len(r.LabelsIncludeAny) == 1
	})).Return(&fleet.UploadResult{TitleID: 42, InstallerID: 314, HashSHA256: "server-hash"}, nil).Once()

	res, err := New(cfg, f).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		OutputTitleID:        "42",
		OutputInstallerID:    "314",
		OutputHashSHA256:     "server-hash",
		OutputGitBranch:      "",
		OutputPullRequestURL: "",
	}, res.Outputs())
	f.AssertExpectations(t)
}

func TestRunUsesLocalHashWhenServerOmitsIt(t *testing.T) {
	f := &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.74.0")
	f.On("FindExistingPackage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.On("UploadPackage", mock.Anything, mock.Anything).Return(&fleet.UploadResult{TitleID: 1, InstallerID: 2}, nil)

	res, err := New(testConfig(t), f).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, helloHash, res.HashSHA256)
}

func TestRunSkipsExistingVersion(t *testing.T) {
	f := &mockFleet{}
	syncer := &mockSyncer{}
	f.On("DetectVersion", mock.Anything).Return("4.80.1")
	f.On("FindExistingPackage", mock.Anything, 7, "Firefox.app", "131.0").
		Return(&fleet.ExistingPackage{TitleID: 42, TitleName: "Firefox.app", Version: "131.0"}, nil)

	res, err := New(testConfig(t), f, WithGitOps(syncer)).Run(t.Context())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "", res.Outputs()[OutputTitleID])
	assert.Equal(t, "", res.Outputs()[OutputInstallerID])
	assert.Equal(t, helloHash, res.Outputs()[OutputHashSHA256])
	f.AssertNotCalled(t, "UploadPackage", mock.Anything, mock.Anything)
	syncer.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
}

func TestRunConflictIsSuccess(t *testing.T) {
	f := &mockFleet{}
	syncer := &mockSyncer{}
	f.On("DetectVersion", mock.Anything).Return("4.74.0")
	f.On("FindExistingPackage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.On("UploadPackage", mock.Anything, mock.Anything).Return(&fleet.UploadResult{AlreadyExists: true}, nil)

	res, err := New(testConfig(t), f, WithGitOps(syncer)).Run(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "", res.Outputs()[OutputTitleID])
	assert.Equal(t, "", res.Outputs()[OutputInstallerID])
	assert.Equal(t, helloHash, res.Outputs()[OutputHashSHA256])
	syncer.AssertNotCalled(t, "Sync", mock.Anything, mock.Anything)
}

func TestRunSearchFailureProceeds(t *testing.T) {
	f := &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.74.0")
	f.On("FindExistingPackage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, trace.ConnectionProblem(nil, "connection reset"))
	f.On("UploadPackage", mock.Anything, mock.Anything).Return(&fleet.UploadResult{TitleID: 1, InstallerID: 2}, nil).Once()

	_, err := New(testConfig(t), f).Run(t.Context())
	require.NoError(t, err)
	f.AssertExpectations(t)
}

func TestRunUploadError(t *testing.T) {
	f := &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.74.0")
	f.On("FindExistingPackage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.On("UploadPackage", mock.Anything, mock.Anything).
		Return(nil, trace.AccessDenied("Fleet upload failed: 403 forbidden"))

	_, err := New(testConfig(t), f).Run(t.Context())
	require.Error(t, err)
	assert.True(t, trace.IsAccessDenied(err))
	assert.Contains(t, err.Error(), "403 forbidden")
}

func TestRunRejectsOldFleet(t *testing.T) {
	f := &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.60.2")

	_, err := New(testConfig(t), f).Run(t.Context())
	require.Error(t, err)
	assert.True(t, trace.IsBadParameter(err))
	f.AssertNotCalled(t, "FindExistingPackage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.AssertNotCalled(t, "UploadPackage", mock.Anything, mock.Anything)
}

func TestRunValidatesInputs(t *testing.T) {
	t.Run("missing package", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.PkgPath = filepath.Join(t.TempDir(), "missing.pkg")

		_, err := New(cfg, &mockFleet{}).Run(t.Context())
		require.Error(t, err)
		assert.True(t, trace.IsNotFound(err))
	})

	t.Run("both label lists", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.LabelsExcludeAny = []string{"Servers"}

		_, err := New(cfg, &mockFleet{}).Run(t.Context())
		require.Error(t, err)
		assert.True(t, trace.IsBadParameter(err))
	})
}

func TestRunGitOps(t *testing.T) {
	cfg := testConfig(t)
	f := &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.74.0")
	f.On("FindExistingPackage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.On("UploadPackage", mock.Anything, mock.Anything).Return(&fleet.UploadResult{TitleID: 42, InstallerID: 314}, nil)

	mirror := &mockMirror{}
	mirror.On("Upload", mock.Anything, mock.Anything, "firefox", "131.0").
		Return(&s3.Object{Key: "software/firefox/131.0/Firefox-131.0.pkg", URL: "https://cdn.example.com/software/firefox/131.0/Firefox-131.0.pkg", Uploaded: true}, nil).Once()
	mirror.On("Prune", mock.Anything, "firefox", "131.0").Return(nil, trace.Errorf("list failed")).Once()

	syncer := &mockSyncer{}
	syncer.On("Sync", mock.Anything, mock.MatchedBy(func(p *gitops.Package) bool {
		return p.Title == "Firefox.app" && p.Version == "131.0" && p.HashSHA256 == helloHash &&
			p.URL == "https://cdn.example.com/software/firefox/131.0/Firefox-131.0.pkg" && p.SelfService
	})).Return(&gitops.Result{Branch: "fleet-importer/firefox-131.0", PullRequestURL: "https://github.com/acme/gitops/pull/7"}, nil).Once()

	res, err := New(cfg, f, WithGitOps(syncer), WithMirror(mirror)).Run(t.Context())
	// Pruning failures are only logged.
	require.NoError(t, err)
	assert.Equal(t, "fleet-importer/firefox-131.0", res.Outputs()[OutputGitBranch])
	assert.Equal(t, "https://github.com/acme/gitops/pull/7", res.Outputs()[OutputPullRequestURL])
	mirror.AssertExpectations(t)
	syncer.AssertExpectations(t)
}

func TestRunGitOpsError(t *testing.T) {
	f := &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.74.0")
	f.On("FindExistingPackage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	f.On("UploadPackage", mock.Anything, mock.Anything).Return(&fleet.UploadResult{TitleID: 42, InstallerID: 314}, nil)
	syncer := &mockSyncer{}
	syncer.On("Sync", mock.Anything, mock.Anything).Return(nil, trace.Errorf("push rejected"))

	_, err := New(testConfig(t), f, WithGitOps(syncer)).Run(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push rejected")
}

func TestCheck(t *testing.T) {
	f := &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.74.0")
	f.On("FindExistingPackage", mock.Anything, 7, "Firefox.app", "131.0").
		Return(&fleet.ExistingPackage{TitleID: 42}, nil).Once()

	res, err := New(testConfig(t), f).Check(t.Context())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		OutputFleetVersion: "4.74.0",
		OutputExists:       "true",
		OutputTitleID:      "42",
		OutputHashSHA256:   helloHash,
	}, res.Outputs())

	f = &mockFleet{}
	f.On("DetectVersion", mock.Anything).Return("4.74.0")
	f.On("FindExistingPackage", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, trace.AccessDenied("denied"))
	_, err = New(testConfig(t), f).Check(t.Context())
	require.Error(t, err)
}
