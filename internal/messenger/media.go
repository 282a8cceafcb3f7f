// internal/messenger/media.go
// Media storage for image/audio/doc message payloads. Uploads return a
// URL which becomes the message's payload field; local disk is the
// default backend, S3 the production one.

package messenger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds the upload size limit")
	ErrUnsupportedType = errors.New("unsupported file type")
)

var allowedMediaTypes = []string{
	"image/jpeg", "image/png", "image/gif", "image/webp",
	"audio/mpeg", "audio/wav", "audio/ogg", "audio/webm",
	"application/pdf", "application/zip",
	"text/plain",
}

type MediaStorage interface {
	Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error)
}

// LocalMediaStorage writes uploads to a directory served by the API.
type LocalMediaStorage struct {
	dir         string
	baseURL     string
	maxFileSize int64
}

func NewLocalMediaStorage(dir, baseURL string, maxFileSize int64) (*LocalMediaStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalMediaStorage{dir: dir, baseURL: baseURL, maxFileSize: maxFileSize}, nil
}

func (l *LocalMediaStorage) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := checkUpload(header, l.maxFileSize); err != nil {
		return "", err
	}

	name := uniqueName(header.Filename)
	dst, err := os.Create(filepath.Join(l.dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return fmt.Sprintf("%s/uploads/%s", strings.TrimRight(l.baseURL, "/"), name), nil
}

// S3MediaStorage uploads to an S3 bucket.
type S3MediaStorage struct {
	s3Client    *s3.S3
	bucketName  string
	region      string
	maxFileSize int64
}

func NewS3MediaStorage(awsSession *session.Session, bucketName, region string, maxFileSize int64) *S3MediaStorage {
	return &S3MediaStorage{
		s3Client:    s3.New(awsSession),
		bucketName:  bucketName,
		region:      region,
		maxFileSize: maxFileSize,
	}
}

func (s *S3MediaStorage) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	if err := checkUpload(header, s.maxFileSize); err != nil {
		return "", err
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	key := fmt.Sprintf("messenger/%s", uniqueName(header.Filename))
	_, err := s.s3Client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(header.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", fmt.Errorf("upload to S3: %w", err)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucketName, s.region, key), nil
}

func checkUpload(header *multipart.FileHeader, maxSize int64) error {
	if maxSize > 0 && header.Size > maxSize {
		return ErrFileTooLarge
	}
	contentType := header.Header.Get("Content-Type")
	for _, t := range allowedMediaTypes {
		if t == contentType {
			return nil
		}
	}
	return ErrUnsupportedType
}

func uniqueName(filename string) string {
	ext := filepath.Ext(filename)
	return uuid.NewString() + ext
}
