// Package storage keeps binary content such as passage audio in S3 buckets.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/bible-game/common/pkg/logger"
)

const (
	// AudioContentType is stored with every passage audio object.
	AudioContentType = "audio/mpeg"
	audioExtension   = ".mp3"
)

var (
	// ErrObjectNotFound means the bucket has no object under the requested key.
	ErrObjectNotFound = errors.New("object not found")
	// ErrUploadNotConfirmed means a put succeeded but the object could not be seen afterwards.
	ErrUploadNotConfirmed = errors.New("uploaded object does not exist in bucket")
	// ErrBucketNotConfigured means no bucket name was configured for the operation.
	ErrBucketNotConfigured = errors.New("bucket is not configured")
)

// ObjectAPI is the part of the S3 client the bucket service uses.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Object is an item read back from a bucket.
type Object struct {
	Key           string
	ContentType   string
	ContentLength int64
	Content       []byte
}

// BucketService uploads and retrieves keyed content.
type BucketService struct {
	client      ObjectAPI
	audioBucket string
	logger      *logger.Logger
}

// NewBucketService creates a bucket service. audioBucket may be empty when
// only the generic operations are used.
func NewBucketService(client ObjectAPI, audioBucket string, log *logger.Logger) *BucketService {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &BucketService{
		client:      client,
		audioBucket: audioBucket,
		logger:      log.WithComponent("storage"),
	}
}

// AudioKey returns the object key holding the audio of a passage.
func AudioKey(passageKey string) string {
	return passageKey + audioExtension
}

// UploadAudio stores the audio of a passage and returns its location.
func (s *BucketService) UploadAudio(ctx context.Context, passageKey string, content []byte) (string, error) {
	if s.audioBucket == "" {
		return "", ErrBucketNotConfigured
	}

	s.logger.Debug("Uploading passage audio", "passage", passageKey)
	return s.Upload(ctx, s.audioBucket, AudioKey(passageKey), AudioContentType, content)
}

// GetAudio returns the audio bytes of a passage.
func (s *BucketService) GetAudio(ctx context.Context, passageKey string) ([]byte, error) {
	if s.audioBucket == "" {
		return nil, ErrBucketNotConfigured
	}

	s.logger.Debug("Retrieving passage audio", "passage", passageKey)
	obj, err := s.Retrieve(ctx, s.audioBucket, AudioKey(passageKey))
	if err != nil {
		return nil, err
	}
	return obj.Content, nil
}

// Upload puts content under key and confirms the object exists before
// returning the key as its location.
func (s *BucketService) Upload(ctx context.Context, bucket, key, contentType string, content []byte) (string, error) {
	log := s.logger.WithFields(map[string]interface{}{"bucket": bucket, "key": key})
	log.Debug("Uploading item", "content_type", contentType, "size", len(content))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(content))),
		Body:          bytes.NewReader(content),
	})
	if err != nil {
		log.Error("Error uploading item", "error", err.Error())
		return "", fmt.Errorf("failed to upload %s/%s: %w", bucket, key, err)
	}

	exists, err := s.Exists(ctx, bucket, key)
	if err != nil {
		return "", fmt.Errorf("failed to confirm upload of %s/%s: %w", bucket, key, err)
	}
	if !exists {
		log.Error("Uploaded item does not exist in bucket")
		return "", ErrUploadNotConfirmed
	}

	log.Debug("Item saved")
	return key, nil
}

// Retrieve reads an object and its content type.
func (s *BucketService) Retrieve(ctx context.Context, bucket, key string) (*Object, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrObjectNotFound
		}
		s.logger.Error("Error retrieving item", "bucket", bucket, "key", key, "error", err.Error())
		return nil, fmt.Errorf("failed to retrieve %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", bucket, key, err)
	}

	return &Object{
		Key:           key,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: int64(len(content)),
		Content:       content,
	}, nil
}

// Exists reports whether a non-empty object is stored under key.
func (s *BucketService) Exists(ctx context.Context, bucket, key string) (bool, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			s.logger.Debug("Key not found", "bucket", bucket, "key", key)
			return false, nil
		}
		return false, fmt.Errorf("failed to check %s/%s: %w", bucket, key, err)
	}
	return aws.ToInt64(out.ContentLength) > 0, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
