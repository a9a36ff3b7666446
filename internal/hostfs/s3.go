package hostfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/prn-tf/sbc-engine/internal/sbchash"
	"github.com/prn-tf/sbc-engine/internal/store"
)

// S3 is a store.Database[sbchash.AronovichHash] backed by an S3-compatible
// object store, for deployments scrubbing a corpus too large to keep in a
// local database.
type S3 struct {
	client *s3.Client
	bucket string
}

// S3Config names the connection parameters for NewS3. Endpoint is optional
// and, when set, points at an S3-compatible endpoint rather than AWS itself.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3 loads an AWS config from cfg (falling back to the default
// credential chain when AccessKeyID is empty) and returns a client scoped
// to cfg.Bucket.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("hostfs: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

var _ store.Database[sbchash.AronovichHash] = (*S3)(nil)

func s3ObjectKey(key store.SBCKey[sbchash.AronovichHash]) string {
	return fmt.Sprintf("chunks/%d/%d/%d/%d", key.Hash.Value, key.Type.Kind, key.Type.ParentHash.Value, key.Type.Number)
}

func (s *S3) Insert(key store.SBCKey[sbchash.AronovichHash], data []byte) error {
	_, err := s.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3ObjectKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrStorageInsert, err)
	}
	return nil
}

func (s *S3) Get(key store.SBCKey[sbchash.AronovichHash]) ([]byte, error) {
	out, err := s.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3ObjectKey(key)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("hostfs: get s3 chunk: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("hostfs: read s3 chunk body: %w", err)
	}
	return data, nil
}

func (s *S3) Contains(key store.SBCKey[sbchash.AronovichHash]) bool {
	_, err := s.client.HeadObject(context.Background(), &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3ObjectKey(key)),
	})
	return err == nil
}

func (s *S3) Remove(key store.SBCKey[sbchash.AronovichHash]) {
	_, _ = s.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s3ObjectKey(key)),
	})
}

// Iterate lists and fetches every object under the chunks/ prefix. Meant
// for small corpora or offline verification; a scrub pass over a large S3
// bucket should avoid relying on a full Iterate.
func (s *S3) Iterate() []store.Record[sbchash.AronovichHash] {
	ctx := context.Background()
	var out []store.Record[sbchash.AronovichHash]

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String("chunks/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return out
		}
		for _, obj := range page.Contents {
			var hashValue, kind, parentHash uint32
			var number uint16
			if _, err := fmt.Sscanf(aws.ToString(obj.Key), "chunks/%d/%d/%d/%d", &hashValue, &kind, &parentHash, &number); err != nil {
				continue
			}
			getOut, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: obj.Key})
			if err != nil {
				continue
			}
			data, err := io.ReadAll(getOut.Body)
			getOut.Body.Close()
			if err != nil {
				continue
			}
			out = append(out, store.Record[sbchash.AronovichHash]{
				Key: store.SBCKey[sbchash.AronovichHash]{
					Hash: sbchash.NewAronovichHash(hashValue),
					Type: store.ChunkType[sbchash.AronovichHash]{
						Kind:       store.ChunkKind(kind),
						ParentHash: sbchash.NewAronovichHash(parentHash),
						Number:     number,
					},
				},
				Data: data,
			})
		}
	}
	return out
}
