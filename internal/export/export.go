// Package export ships risk-score snapshots to S3 as newline-delimited JSON
// for regulator-facing reporting, adapted from the teacher's
// pkg/archive/parquet S3Target.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
)

// Target writes a risk-score report to an S3-compatible bucket.
type Target struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewTarget builds a Target using ambient AWS credentials/region resolution
// (environment, shared config file, or IAM role), matching the teacher's
// LoadDefaultConfig usage.
func NewTarget(ctx context.Context, bucket, prefix string) (*Target, error) {
	if bucket == "" {
		return nil, fmt.Errorf("export: empty bucket name")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("export: load AWS config: %w", err)
	}
	return &Target{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// WriteRiskScores serializes scores as newline-delimited JSON and uploads
// them under <prefix>/runs/<runID>/risk_scores.ndjson.
func (t *Target) WriteRiskScores(ctx context.Context, runID string, scores []model.CarrierRiskScore) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, s := range scores {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("export: encode risk score for dot %d: %w", s.DOT, err)
		}
	}

	key := t.objectKey(runID)
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(t.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("export: put object %q: %w", key, err)
	}
	return nil
}

func (t *Target) objectKey(runID string) string {
	if t.prefix == "" {
		return fmt.Sprintf("runs/%s/risk_scores.ndjson", runID)
	}
	return fmt.Sprintf("%s/runs/%s/risk_scores.ndjson", t.prefix, runID)
}
