package minio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"agrismart/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const CropImagesBucket = "crop-images"

type MinioClient struct {
	client        *minio.Client
	publicBaseURL string
}

func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	isSecure, err := strconv.ParseBool(cfg.MinioSecure)
	if err != nil {
		log.Printf("Invalid value for MinIO secure flag: %v. Defaulting to false.", err)
		isSecure = false
	}
	minioClient, err := minio.New(cfg.MinioUrl, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: isSecure,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to MinIO client: %w", err)
	}

	if err := ensureBucket(minioClient, CropImagesBucket, cfg.MinioLocation); err != nil {
		return nil, err
	}

	// Crop images are served straight from the bucket by public URL.
	if err := SetPublicBucketPolicy(minioClient, CropImagesBucket); err != nil {
		log.Printf("Failed to set public policy for %s bucket: %v", CropImagesBucket, err)
		return nil, err
	}

	publicBaseURL := cfg.PublicBaseURL
	if publicBaseURL == "" {
		scheme := "http"
		if isSecure {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s", scheme, cfg.MinioUrl)
	}

	return &MinioClient{
		client:        minioClient,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

func SetPublicBucketPolicy(minioClient *minio.Client, bucketName string) error {
	policy := map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{
			{
				"Action":    []string{"s3:GetObject"},
				"Effect":    "Allow",
				"Principal": map[string]any{"AWS": []string{"*"}},
				"Resource":  []string{fmt.Sprintf("arn:aws:s3:::%s/*", bucketName)},
			},
		},
	}

	policyBytes, err := json.Marshal(policy)
	if err != nil {
		return fmt.Errorf("error marshalling policy: %w", err)
	}

	err = minioClient.SetBucketPolicy(context.Background(), bucketName, string(policyBytes))
	if err != nil {
		return fmt.Errorf("error setting bucket policy: %w", err)
	}

	return nil
}

func ensureBucket(client *minio.Client, bucketName, location string) error {
	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		log.Printf("error checking bucket existence: %v", err)
		return err
	}
	if !exists {
		err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: location})
		if err != nil {
			log.Printf("error creating bucket: %v", err)
			return err
		}
		log.Printf("Bucket created successfully %s", bucketName)
	}

	return nil
}

func (mc *MinioClient) UploadFile(ctx context.Context, objectName, contentType string, reader io.Reader, size int64) error {
	_, err := mc.client.PutObject(ctx, CropImagesBucket, objectName, reader, size,
		minio.PutObjectOptions{ContentType: contentType},
	)
	return err
}

// PublicURL builds the public download URL for an uploaded object.
func (mc *MinioClient) PublicURL(objectName string) string {
	return fmt.Sprintf("%s/%s/%s", mc.publicBaseURL, CropImagesBucket, objectName)
}

// DeleteFolder removes every object under a key prefix, used when a crop is deleted.
func (mc *MinioClient) DeleteFolder(ctx context.Context, folderPath string) error {
	if !strings.HasSuffix(folderPath, "/") {
		folderPath += "/"
	}

	objectsCh := mc.client.ListObjects(ctx, CropImagesBucket, minio.ListObjectsOptions{
		Prefix:    folderPath,
		Recursive: true,
	})

	for object := range objectsCh {
		if object.Err != nil {
			return object.Err
		}
		err := mc.client.RemoveObject(ctx, CropImagesBucket, object.Key, minio.RemoveObjectOptions{})
		if err != nil {
			return err
		}
	}
	return nil
}
