package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// ObjectStore holds uploaded cover images. UploadFile returns the public
// URL of the stored object.
type ObjectStore interface {
	UploadFile(ctx context.Context, file io.Reader, id string) (string, error)
	DeleteFile(ctx context.Context, id string) error
}

type CloudinaryStore struct {
	store  *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryStore(store *cloudinary.Cloudinary, folder string) *CloudinaryStore {
	return &CloudinaryStore{
		store:  store,
		folder: folder,
	}
}

func (s *CloudinaryStore) UploadFile(ctx context.Context, file io.Reader, id string) (string, error) {
	overwrite := true

	resp, err := s.store.Upload.Upload(ctx, file, uploader.UploadParams{
		PublicID:  id,
		Folder:    s.folder,
		Overwrite: &overwrite,
	})

	if err != nil {
		return "", fmt.Errorf("error uploading file: %+v", err)
	}

	if resp.Error.Message != "" {
		return "", fmt.Errorf("error uploading file: %s", resp.Error.Message)
	}

	return resp.SecureURL, nil
}

func (s *CloudinaryStore) DeleteFile(ctx context.Context, id string) error {
	publicId := id
	if s.folder != "" {
		publicId = s.folder + "/" + id
	}

	if _, err := s.store.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicId}); err != nil {
		return fmt.Errorf("error deleting file: %+v", err)
	}

	return nil
}

type S3Store struct {
	client    *s3.Client
	bucket    string
	region    string
	publicURL string
}

// NewS3Store uploads into bucket. publicURL, when set, is the base that
// object keys are appended to; otherwise the virtual-hosted bucket URL is
// used.
func NewS3Store(client *s3.Client, bucket string, region string, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		region:    region,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func coverObjectKey(id string) string {
	return "covers/" + id + ".jpg"
}

func (s *S3Store) UploadFile(ctx context.Context, file io.Reader, id string) (string, error) {
	key := coverObjectKey(id)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String("image/jpeg"),
	})

	if err != nil {
		return "", fmt.Errorf("error uploading object to s3, %v", err)
	}

	return s.objectURL(key), nil
}

func (s *S3Store) DeleteFile(ctx context.Context, id string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(coverObjectKey(id)),
	})

	if err != nil {
		return fmt.Errorf("error deleting object from s3, %v", err)
	}

	return nil
}

func (s *S3Store) objectURL(key string) string {
	if s.publicURL != "" {
		return s.publicURL + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}
