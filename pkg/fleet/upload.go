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
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gravitational/trace"
)

// UploadRequest describes an installer and its deployment settings.
type UploadRequest struct {
	TeamID      int
	PackagePath string

	SelfService      bool
	AutomaticInstall bool
	LabelsIncludeAny []string
	LabelsExcludeAny []string

	InstallScript     string
	UninstallScript   string
	PreInstallQuery   string
	PostInstallScript string
}

// UploadResult is what Fleet reports about an uploaded installer.
type UploadResult struct {
	TitleID     uint   `json:"title_id"`
	InstallerID uint   `json:"installer_id"`
	HashSHA256  string `json:"hash_sha256"`

	// AlreadyExists is set when Fleet answered 409 Conflict.
	AlreadyExists bool `json:"-"`
}

type uploadResponse struct {
	SoftwarePackage UploadResult `json:"software_package"`
}

// UploadPackage sends the installer to Fleet. A 409 Conflict is not an error:
// the result has AlreadyExists set and no identifiers.
func (c *Client) UploadPackage(ctx context.Context, r UploadRequest) (*UploadResult, error) {
	if len(r.LabelsIncludeAny) > 0 && len(r.LabelsExcludeAny) > 0 {
		return nil, trace.BadParameter("only one of labels_include_any or labels_exclude_any may be specified")
	}

	f, err := os.Open(r.PackagePath)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, trace.Wrap(err)
	}

	head, tail, contentType, err := multipartEnvelope(r)
	if err != nil {
		return nil, trace.Wrap(err)
	}

	body := io.MultiReader(bytes.NewReader(head), f, bytes.NewReader(tail))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/software/package", nil), body)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	req.ContentLength = int64(len(head)) + info.Size() + int64(len(tail))
	c.authorize(req.Header)
	req.Header.Set("Content-Type", contentType)

	c.logger.InfoContext(ctx, "Uploading file to Fleet", "path", r.PackagePath, "bytes", info.Size())
	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, trace.Wrap(err, "Fleet upload failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		c.logger.InfoContext(ctx, "Package already exists in Fleet (409 Conflict)")
		return &UploadResult{AlreadyExists: true}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, statusError("Fleet upload", resp)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return &UploadResult{}, nil
	}

	var decoded uploadResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, trace.Wrap(err, "failed to decode Fleet upload response")
	}
	return &decoded.SoftwarePackage, nil
}

// multipartEnvelope renders every form field plus the file part header
// (head) and the closing boundary (tail). The file content goes in between,
// which lets the body be streamed with a known length.
func multipartEnvelope(r UploadRequest) (head, tail []byte, contentType string, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := [][2]string{
		{"team_id", strconv.Itoa(r.TeamID)},
		{"self_service", strconv.FormatBool(r.SelfService)},
	}
	optional := [][2]string{
		{"install_script", r.InstallScript},
		{"uninstall_script", r.UninstallScript},
		{"pre_install_query", r.PreInstallQuery},
		{"post_install_script", r.PostInstallScript},
	}
	for _, field := range optional {
		if field[1] != "" {
			fields = append(fields, field)
		}
	}
	if r.AutomaticInstall {
		fields = append(fields, [2]string{"automatic_install", "true"})
	}
	for _, label := range r.LabelsIncludeAny {
		fields = append(fields, [2]string{"labels_include_any", label})
	}
	for _, label := range r.LabelsExcludeAny {
		fields = append(fields, [2]string{"labels_exclude_any", label})
	}

	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, nil, "", trace.Wrap(err)
		}
	}
	if _, err := w.CreateFormFile("software", filepath.Base(r.PackagePath)); err != nil {
		return nil, nil, "", trace.Wrap(err)
	}

	head = bytes.Clone(buf.Bytes())
	buf.Reset()
	if err := w.Close(); err != nil {
		return nil, nil, "", trace.Wrap(err)
	}
	tail = bytes.Clone(buf.Bytes())

	return head, tail, w.FormDataContentType(), nil
}
