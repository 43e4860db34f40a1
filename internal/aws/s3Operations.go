package aws

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/rs/zerolog/log"
)

// S3's ListObjectsV2 never returns more than this per page.
const maxPageSize = 1000

// S3API is the subset of *s3.Client the service calls.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Service struct {
	client S3API
}

// Using Constructor Pattern to initalize our s3Service
func NewS3Service(client S3API) *S3Service {
	return &S3Service{client: client}
}

func (service *S3Service) ListObjects(ctx context.Context, bucket, prefix string, maxKeys int) ([]types.ObjectInfo, error) {
	pageSize := min(maxKeys, maxPageSize)
	paginator := s3.NewListObjectsV2Paginator(service.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(pageSize)),
	})

	objects := make([]types.ObjectInfo, 0, pageSize)
	for paginator.HasMorePages() && len(objects) < maxKeys {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("couldn't list objects in bucket: %s, AWS error: %w", bucket, err)
		}
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectInfo{
				Bucket:       bucket,
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         aws.ToString(obj.ETag),
				LastModified: aws.ToTime(obj.LastModified),
			})
			if len(objects) == maxKeys {
				break
			}
		}
	}
	log.Debug().Str("bucket", bucket).Str("prefix", prefix).Int("count", len(objects)).Msg("listed objects")
	return objects, nil
}

func (service *S3Service) GetObject(ctx context.Context, bucket, key string) (*types.ImageBuffer, error) {
	resp, err := service.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't download object with key: %s, AWS error: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", err)
	}
	return &types.ImageBuffer{Data: data, ContentType: aws.ToString(resp.ContentType)}, nil
}

// PutObject is a single request, so a partial upload never becomes visible.
func (service *S3Service) PutObject(ctx context.Context, bucket, key string, buffer *types.ImageBuffer, acl string) error {
	input := &s3.PutObjectInput{
		Bucket:            aws.String(bucket),
		Key:               aws.String(key),
		Body:              bytes.NewReader(buffer.Data),
		ContentLength:     aws.Int64(int64(len(buffer.Data))),
		ChecksumAlgorithm: s3types.ChecksumAlgorithmSha256,
	}
	if buffer.ContentType != "" {
		input.ContentType = aws.String(buffer.ContentType)
	}
	if acl != "" {
		input.ACL = s3types.ObjectCannedACL(acl)
	}
	if _, err := service.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("couldn't upload object with key: %s, AWS error: %w", key, err)
	}
	return nil
}
