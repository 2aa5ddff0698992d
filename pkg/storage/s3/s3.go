/*
 *  Copyright 2026 Gravitational, Inc
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

// Package s3 mirrors installers into an S3 bucket so that GitOps descriptors
// can reference a stable download URL.
package s3

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/aws/smithy-go/ptr"
	"github.com/gravitational/trace"
	"golang.org/x/sync/errgroup"

	"github.com/gravitational/fleet-importer/pkg/logging"
)

const (
	// DeleteObjects accepts at most this many keys per request.
	maxDeleteBatch = 1000

	pruneConcurrency = 4
)

// S3Client is a reduced version of s3.Client that only defines required methods.
// This makes testing significantly easier.
type S3Client interface {
	s3manager.UploadAPIClient
	s3.HeadObjectAPIClient
	s3.ListObjectsV2APIClient
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Mirror uploads installers under <prefix>/<slug>/<version>/<file>.
type Mirror struct {
	client           S3Client
	bucket           string
	prefix           string
	region           string
	cloudFrontDomain string
	retention        int
	logger           *slog.Logger
}

// NewMirror creates a mirror writing to bucket.
func NewMirror(client S3Client, bucket string, opts ...Option) *Mirror {
	m := &Mirror{
		client: client,
		bucket: bucket,
		logger: logging.DiscardLogger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name identifies the mirror in logs.
func (m *Mirror) Name() string {
	return "s3@" + m.bucket
}

// Object is an installer stored in the mirror.
type Object struct {
	Key string
	URL string
	// Uploaded is false when the object was already present.
	Uploaded bool
}

// Key returns the object key for a file of a given title slug and version.
func (m *Mirror) Key(slug, version, filename string) string {
	return path.Join(m.prefix, slug, version, filename)
}

// URL returns the public URL of key: through CloudFront when a distribution
// is configured, otherwise the virtual-hosted S3 URL.
func (m *Mirror) URL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	escaped := strings.Join(segments, "/")

	if m.cloudFrontDomain != "" {
		return fmt.Sprintf("https://%s/%s", m.cloudFrontDomain, escaped)
	}
	if m.region == "" || m.region == "us-east-1" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", m.bucket, escaped)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", m.bucket, m.region, escaped)
}

// Upload stores the installer at localPath unless an object with the same
// key exists already.
func (m *Mirror) Upload(ctx context.Context, localPath, slug, version string) (*Object, error) {
	key := m.Key(slug, version, filepath.Base(localPath))
	obj := &Object{Key: key, URL: m.URL(key)}

	exists, err := m.exists(ctx, key)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	if exists {
		m.logger.InfoContext(ctx, "Installer already mirrored", "bucket", m.bucket, "key", key)
		return obj, nil
	}

	f, err := os.Open(localPath)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	defer f.Close()

	uploader := s3manager.NewUploader(m.client, func(u *s3manager.Uploader) {
		u.ClientOptions = append(u.ClientOptions, func(o *s3.Options) {
			o.Logger = logging.ToAWSLogger(m.logger)
		})
	})

	m.logger.InfoContext(ctx, "Uploading installer to S3", "bucket", m.bucket, "key", key)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &m.bucket,
		Key:    &key,
		Body:   f,
	}); err != nil {
		return nil, trace.Wrap(err, "failed to upload %q to bucket %q", key, m.bucket)
	}

	obj.Uploaded = true
	return obj, nil
}

func (m *Mirror) exists(ctx context.Context, key string) (bool, error) {
	_, err := m.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &m.bucket, Key: &key})
	if err == nil {
		return true, nil
	}

	var notFound *s3types.NotFound
	if errors.As(err, &notFound) {
		return false, nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && (apiErr.ErrorCode() == "NotFound" || apiErr.ErrorCode() == "NoSuchKey") {
		return false, nil
	}
	return false, trace.Wrap(err, "failed to check for %q in bucket %q", key, m.bucket)
}

// Prune deletes all but the newest retained versions of slug. The current
// version is never deleted. It returns the removed versions.
func (m *Mirror) Prune(ctx context.Context, slug, current string) ([]string, error) {
	if m.retention <= 0 {
		return nil, nil
	}

	versions, err := m.listVersions(ctx, slug)
	if err != nil {
		return nil, trace.Wrap(err)
	}
	slices.SortFunc(versions, func(a, b string) int {
		return compareVersions(b, a)
	})

	var stale []string
	kept := 0
	for _, v := range versions {
		if v == current || kept < m.retention {
			kept++
			continue
		}
		stale = append(stale, v)
	}
	if len(stale) == 0 {
		return nil, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(pruneConcurrency)
	for _, v := range stale {
		eg.Go(func() error {
			return m.deletePrefix(egCtx, m.Key(slug, v, "")+"/")
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, trace.Wrap(err, "failed to prune versions of %q", slug)
	}

	m.logger.InfoContext(ctx, "Pruned mirrored versions", "slug", slug, "versions", stale)
	return stale, nil
}

// listVersions returns the version "directories" stored for slug.
func (m *Mirror) listVersions(ctx context.Context, slug string) ([]string, error) {
	prefix := m.Key(slug, "", "") + "/"
	paginator := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket:    &m.bucket,
		Prefix:    &prefix,
		Delimiter: ptr.String("/"),
	})

	var versions []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, trace.Wrap(err, "failed to list %q in bucket %q", prefix, m.bucket)
		}
		for _, p := range page.CommonPrefixes {
			if p.Prefix == nil {
				continue
			}
			v := strings.Trim(strings.TrimPrefix(*p.Prefix, prefix), "/")
			if v != "" {
				versions = append(versions, v)
			}
		}
	}
	return versions, nil
}

func (m *Mirror) deletePrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(m.client, &s3.ListObjectsV2Input{
		Bucket: &m.bucket,
		Prefix: &prefix,
	})

	var ids []s3types.ObjectIdentifier
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return trace.Wrap(err, "failed to list %q in bucket %q", prefix, m.bucket)
		}
		for _, obj := range page.Contents {
			ids = append(ids, s3types.ObjectIdentifier{Key: obj.Key})
		}
	}

	for batch := range slices.Chunk(ids, maxDeleteBatch) {
		out, err := m.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: &m.bucket,
			Delete: &s3types.Delete{Objects: batch, Quiet: ptr.Bool(true)},
		})
		if err != nil {
			return trace.Wrap(err, "failed to delete objects under %q", prefix)
		}
		if len(out.Errors) > 0 {
			e := out.Errors[0]
			return trace.Errorf("failed to delete %q: %s %s", deref(e.Key), deref(e.Code), deref(e.Message))
		}
	}
	return nil
}

// compareVersions orders semantic versions semantically and anything else
// lexically, with semantic versions sorting after non-semantic ones.
func compareVersions(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	switch {
	case errA == nil && errB == nil:
		if c := va.Compare(vb); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	case errA == nil:
		return 1
	case errB == nil:
		return -1
	default:
		return cmp.Compare(a, b)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
