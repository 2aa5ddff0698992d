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

package s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

// mockS3Client matches calls on context and input only. The SDK helpers
// append their own option functions, which cannot be compared.
type mockS3Client struct {
	mock.Mock

	putOptions []func(*s3.Options)
}

var _ S3Client = (*mockS3Client)(nil)

func (s3c *mockS3Client) HeadObject(ctx context.Context, input *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	ret := s3c.Called(ctx, input)
	out, _ := ret.Get(0).(*s3.HeadObjectOutput)
	return out, ret.Error(1)
}

func (s3c *mockS3Client) PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	s3c.putOptions = opts
	ret := s3c.Called(ctx, input)
	out, _ := ret.Get(0).(*s3.PutObjectOutput)
	return out, ret.Error(1)
}

func (s3c *mockS3Client) ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	ret := s3c.Called(ctx, input)
	out, _ := ret.Get(0).(*s3.ListObjectsV2Output)
	return out, ret.Error(1)
}

func (s3c *mockS3Client) DeleteObjects(ctx context.Context, input *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	ret := s3c.Called(ctx, input)
	out, _ := ret.Get(0).(*s3.DeleteObjectsOutput)
	return out, ret.Error(1)
}

func (s3c *mockS3Client) UploadPart(ctx context.Context, input *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	ret := s3c.Called(ctx, input)
	out, _ := ret.Get(0).(*s3.UploadPartOutput)
	return out, ret.Error(1)
}

func (s3c *mockS3Client) CreateMultipartUpload(ctx context.Context, input *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	ret := s3c.Called(ctx, input)
	out, _ := ret.Get(0).(*s3.CreateMultipartUploadOutput)
	return out, ret.Error(1)
}

func (s3c *mockS3Client) CompleteMultipartUpload(ctx context.Context, input *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	ret := s3c.Called(ctx, input)
	out, _ := ret.Get(0).(*s3.CompleteMultipartUploadOutput)
	return out, ret.Error(1)
}

func (s3c *mockS3Client) AbortMultipartUpload(ctx context.Context, input *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	ret := s3c.Called(ctx, input)
	out, _ := ret.Get(0).(*s3.AbortMultipartUploadOutput)
	return out, ret.Error(1)
}
