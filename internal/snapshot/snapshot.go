// Package snapshot writes best-effort CSV copies of merged statistics tables
// for debugging. Failures never affect a sync run.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/stacklok/fitness-sync-server/internal/config"
	"github.com/stacklok/fitness-sync-server/internal/table"
)

//go:generate mockgen -destination=mocks/mock_sink.go -package=mocks -source=snapshot.go Sink

const (
	// DefaultDirName is the directory created under os.TempDir by the file sink
	DefaultDirName = "fitness-sync"

	timestampLayout = "20060102T150405Z"

	// RegionDetect asks the EC2 instance metadata service for the region
	RegionDetect = "detect"
)

// Sink stores a snapshot of a merged table
type Sink interface {
	Write(ctx context.Context, userID string, at time.Time, rows []table.Row) error
}

// Name returns the snapshot object name for a user and time
func Name(userID string, at time.Time) string {
	return fmt.Sprintf("%s_%s.csv", userID, at.UTC().Format(timestampLayout))
}

// WriteBestEffort writes the snapshot and logs any failure
func WriteBestEffort(ctx context.Context, sink Sink, userID string, at time.Time, rows []table.Row) {
	if sink == nil {
		return
	}
	if err := sink.Write(ctx, userID, at, rows); err != nil {
		slog.Warn("Failed to write statistics snapshot",
			"user", userID,
			"rows", len(rows),
			"error", err)
	}
}

// FileSink writes snapshots to a local directory
type FileSink struct {
	dir string
}

// NewFileSink creates a sink writing into dir. An empty dir means
// os.TempDir()/fitness-sync.
func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), DefaultDirName)
	}
	return &FileSink{dir: dir}
}

// Dir returns the directory snapshots are written to
func (f *FileSink) Dir() string {
	return f.dir
}

// Write implements Sink
func (f *FileSink) Write(_ context.Context, userID string, at time.Time, rows []table.Row) error {
	if err := os.MkdirAll(f.dir, 0750); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	name := filepath.Base(Name(userID, at))
	// #nosec G304 -- the name is reduced to its base element
	file, err := os.OpenFile(filepath.Join(f.dir, name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create snapshot file: %w", err)
	}
	if err := table.WriteCSV(file, rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return file.Close()
}

// PutObjectAPI is the subset of the S3 client used by S3Sink
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads snapshots to an S3 bucket
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Sink creates a sink uploading to bucket under prefix
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// Key returns the object key used for a snapshot
func (s *S3Sink) Key(userID string, at time.Time) string {
	name := Name(userID, at)
	if s.prefix == "" {
		return name
	}
	return strings.TrimSuffix(s.prefix, "/") + "/" + name
}

// Write implements Sink
func (s *S3Sink) Write(ctx context.Context, userID string, at time.Time, rows []table.Row) error {
	var buf bytes.Buffer
	if err := table.WriteCSV(&buf, rows); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	key := s.Key(userID, at)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot to s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// NopSink discards snapshots
type NopSink struct{}

// Write implements Sink
func (NopSink) Write(context.Context, string, time.Time, []table.Row) error {
	return nil
}

// New creates the sink selected by cfg
func New(ctx context.Context, cfg config.SnapshotConfig) (Sink, error) {
	switch cfg.GetType() {
	case config.SnapshotTypeNone:
		return NopSink{}, nil
	case config.SnapshotTypeFile:
		return NewFileSink(cfg.Dir), nil
	case config.SnapshotTypeS3:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		region, err := resolveRegion(ctx, cfg.Region, imds.NewFromConfig(awsCfg))
		if err != nil {
			return nil, err
		}
		if region != "" {
			awsCfg.Region = region
		}
		return NewS3Sink(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported snapshot type: %s", cfg.Type)
	}
}

// RegionAPI is the subset of the instance metadata client used to detect
// the region
type RegionAPI interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// resolveRegion returns the configured region, or the instance region when
// configured as "detect". An empty result keeps the SDK's own resolution.
func resolveRegion(ctx context.Context, configured string, metadata RegionAPI) (string, error) {
	if configured != RegionDetect {
		return configured, nil
	}
	out, err := metadata.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("failed to detect AWS region from instance metadata: %w", err)
	}
	slog.Debug("Detected AWS region", "region", out.Region)
	return out.Region, nil
}
