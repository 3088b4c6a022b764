// Package blobstore wraps the S3-compatible object store behind the
// put/get/presign/exists contract of spec.md §4.3, generalizing the
// teacher's service/oss.go (UploadToMinIO/UploadVideo free functions over a
// package-level *minio.Client) into a struct-held client with content-hash
// idempotency.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const hashMetadataKey = "X-Amz-Meta-Content-Sha256"

type Store struct {
	client     *minio.Client
	bucket     string
	presignTTL time.Duration
}

type Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	Secure     bool
	PresignTTL time.Duration
}

func New(cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{client: client, bucket: cfg.Bucket, presignTTL: ttl}, nil
}

func (s *Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("make bucket: %w", err)
		}
	}
	return nil
}

// PutResult is returned by Put: the presigned URL and the content hash used
// for idempotency.
type PutResult struct {
	URL  string
	Hash string
}

// Put uploads bytes to key with the given MIME type. Two puts with
// identical content to the same key are idempotent: if an object already
// exists at key with the same content-SHA256 metadata, no re-upload occurs
// (spec.md §4.3).
func (s *Store) Put(ctx context.Context, key string, data []byte, mime string) (PutResult, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return PutResult{}, err
	}
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if existing, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err == nil {
		if existing.UserMetadata[hashMetadataKey] == hash {
			u, presignErr := s.Presign(ctx, key, s.presignTTL)
			if presignErr != nil {
				return PutResult{}, presignErr
			}
			return PutResult{URL: u, Hash: hash}, nil
		}
	}

	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  mime,
		UserMetadata: map[string]string{hashMetadataKey: hash},
	})
	if err != nil {
		return PutResult{}, fmt.Errorf("put object: %w", err)
	}

	u, err := s.Presign(ctx, key, s.presignTTL)
	if err != nil {
		return PutResult{}, err
	}
	return PutResult{URL: u, Hash: hash}, nil
}

// PutReader uploads from an io.Reader (e.g. an HTTP response body), mirroring
// the teacher's UploadToMinIO which takes a reader and a size hint (size -1
// for unknown). Used when the caller already has a streaming source and
// does not want to buffer it to compute a hash up front.
func (s *Store) PutReader(ctx context.Context, key string, r io.Reader, size int64, mime string) (string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	if mime == "" {
		mime = contentTypeByExt(key)
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: mime})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return s.Presign(ctx, key, s.presignTTL)
}

// Get fetches the object at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object: %w", err)
	}
	defer obj.Close()
	return io.ReadAll(obj)
}

// Presign issues a time-limited GET URL for key.
func (s *Store) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = s.presignTTL
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign: %w", err)
	}
	return u.String(), nil
}

// Exists reports whether key is present in the bucket.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Key builds the flat-namespace path-prefix convention of spec.md §4.3:
// {project_id}/{artifact_type}/{uuid}.{ext}.
func Key(projectID, artifactType, id, ext string) string {
	return fmt.Sprintf("%s/%s/%s%s", projectID, artifactType, id, ext)
}

func contentTypeByExt(key string) string {
	switch filepath.Ext(key) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".srt", ".vtt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
