package chunkstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/bihari123/reelpick/internal/logger"
)

// S3Config configures the S3-backed chunk store. It exists as a separate
// deployment option for replicas that don't share a filesystem volume —
// the local backend's shared-volume requirement doesn't hold across
// hosts without one.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string // set for S3-compatible services (e.g. MinIO)
	Prefix   string
}

// S3Backend stores chunks as individual objects under
// <prefix>/<fileID>/chunk_<n> and assembles them by downloading every
// chunk and uploading the joined bytes as one final object.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
	log    *logger.Logger
}

// NewS3Backend builds a backend against cfg, verifying bucket access.
func NewS3Backend(ctx context.Context, cfg S3Config, log *logger.Logger) (*S3Backend, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("chunkstore: load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	if _, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(cfg.Bucket),
		MaxKeys: aws.Int32(1),
	}); err != nil {
		return nil, fmt.Errorf("chunkstore: verify bucket access: %w", err)
	}

	return &S3Backend{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, log: log}, nil
}

func (b *S3Backend) key(fileID string, parts ...string) string {
	k := fmt.Sprintf("%s/%s", b.prefix, fileID)
	for _, p := range parts {
		k = k + "/" + p
	}
	return k
}

func (b *S3Backend) chunkKey(fileID string, chunkIndex int) string {
	return b.key(fileID, fmt.Sprintf("chunk_%d", chunkIndex))
}

func (b *S3Backend) finalKey(fileName string) string {
	return fmt.Sprintf("%s/%s", b.prefix, fileName)
}

// WriteChunk uploads chunkIndex's bytes as its own object. A retried
// chunk upload simply overwrites the same key.
func (b *S3Backend) WriteChunk(ctx context.Context, fileID string, chunkIndex int, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("chunkstore: read chunk body: %w", err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.chunkKey(fileID, chunkIndex)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return 0, fmt.Errorf("chunkstore: put chunk object: %w", err)
	}
	return int64(len(data)), nil
}

// Concatenate downloads every chunk in order and re-uploads them as one
// object. S3 has no native append; for chunk counts beyond what fits
// comfortably in memory, a multipart upload keyed by chunk index would
// avoid buffering the whole file, but that is not implemented here.
func (b *S3Backend) Concatenate(ctx context.Context, fileID, fileName string, totalChunks int) (string, error) {
	type piece struct {
		idx  int
		data []byte
	}
	pieces := make([]piece, totalChunks)
	var wg sync.WaitGroup
	errCh := make(chan error, totalChunks)

	for i := 0; i < totalChunks; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(b.bucket),
				Key:    aws.String(b.chunkKey(fileID, idx)),
			})
			if err != nil {
				errCh <- fmt.Errorf("chunkstore: get chunk %d: %w", idx, err)
				return
			}
			data, err := io.ReadAll(out.Body)
			out.Body.Close()
			if err != nil {
				errCh <- fmt.Errorf("chunkstore: read chunk %d: %w", idx, err)
				return
			}
			pieces[idx] = piece{idx: idx, data: data}
		}(i)
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return "", err
	}

	sort.Slice(pieces, func(i, j int) bool { return pieces[i].idx < pieces[j].idx })

	var buf bytes.Buffer
	for _, p := range pieces {
		buf.Write(p.data)
	}

	key := b.finalKey(fileName)
	if _, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(buf.Bytes()),
	}); err != nil {
		return "", fmt.Errorf("chunkstore: put assembled object: %w", err)
	}

	for i := 0; i < totalChunks; i++ {
		b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    aws.String(b.chunkKey(fileID, i)),
		})
	}

	return key, nil
}

// Remove deletes every object under <prefix>/<fileID>, i.e. the staged
// chunks. The assembled object at <prefix>/<fileName> is not removed.
func (b *S3Backend) Remove(ctx context.Context, fileID string) error {
	list, err := b.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.key(fileID)),
	})
	if err != nil {
		return fmt.Errorf("chunkstore: list objects for removal: %w", err)
	}
	for _, obj := range list.Contents {
		b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.bucket),
			Key:    obj.Key,
		})
	}
	return nil
}

// Open streams the assembled object at location (its S3 key).
func (b *S3Backend) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(location),
	})
	if err != nil {
		return nil, fmt.Errorf("chunkstore: get assembled object: %w", err)
	}
	return out.Body, nil
}
