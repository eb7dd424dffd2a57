// utils/r2.go
package utils

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"result-verification-system/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const proofScheme = "r2://"

// ProofStore signs short-lived download links for match proof uploads kept
// in an R2 bucket.
type ProofStore struct {
	presign *s3.PresignClient
	bucket  string
}

func NewProofStore(ctx context.Context, cfg config.ProofConfig) (*ProofStore, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &ProofStore{
		presign: s3.NewPresignClient(client, s3.WithPresignExpires(ttl)),
		bucket:  cfg.Bucket,
	}, nil
}

// ObjectKey extracts the bucket key from a stored proof reference. Full
// http(s) URLs are not objects we own and yield ok == false.
func ObjectKey(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return "", false
	}
	key := strings.TrimLeft(strings.TrimPrefix(ref, proofScheme), "/")
	return key, key != ""
}

// ViewURL returns a presigned GET URL for ref.
func (p *ProofStore) ViewURL(ctx context.Context, ref string) (string, bool) {
	key, ok := ObjectKey(ref)
	if !ok {
		return "", false
	}
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("⚠️ [Proof] failed to presign %s: %v", key, err)
		return "", false
	}
	return req.URL, true
}
