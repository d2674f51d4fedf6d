// Package backup periodically exports a user's documents as one JSON
// object and uploads it to S3-compatible storage. Backups are best-effort:
// a failed upload is logged and retried on the next tick.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/akarpov/deskpad/internal/config"
	"github.com/akarpov/deskpad/internal/cryptox"
	"github.com/akarpov/deskpad/internal/docstore"
	"github.com/akarpov/deskpad/internal/logging"
	"github.com/akarpov/deskpad/internal/models"
)

var (
	timeNow = time.Now

	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
)

// exportCollections lists what one backup snapshot covers.
var exportCollections = []string{
	models.CollectionNotes,
	models.CollectionFiles,
	models.CollectionTodos,
	models.CollectionTimeBox,
	models.CollectionSettings,
}

type exportDoc struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

type export struct {
	Owner       string                 `json:"owner"`
	ExportedAt  time.Time              `json:"exported_at"`
	Collections map[string][]exportDoc `json:"collections"`
}

type Service struct {
	docs docstore.Store
	cfg  *config.Config
	log  logging.Logger
}

func NewService(docs docstore.Store, cfg *config.Config, log logging.Logger) *Service {
	return &Service{docs: docs, cfg: cfg, log: log}
}

// StorageKey returns the object key for one backup snapshot, partitioned by
// owner and date so lifecycle rules can expire old exports.
func StorageKey(owner string) string {
	d := timeNow()
	return fmt.Sprintf("backups/%s/%d/%d/%d/%v.json", owner, d.Year(), d.Month(), d.Day(), uuid.New())
}

// Enabled reports whether a backup destination is configured.
func (s *Service) Enabled() bool {
	return s.cfg.S3Bucket != ""
}

func (s *Service) client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.cfg.S3Region),
	}
	if s.cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.S3AccessKey, s.cfg.S3SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.cfg.S3Endpoint != "" {
			// MinIO and friends need a fixed endpoint and path-style URLs.
			o.BaseEndpoint = aws.String(s.cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	return client, nil
}

// Export serializes every document the owner has into one JSON object.
// Listings are unordered so no server index is required.
func (s *Service) Export(ctx context.Context, owner string) ([]byte, error) {
	out := export{
		Owner:       owner,
		ExportedAt:  timeNow().UTC(),
		Collections: make(map[string][]exportDoc, len(exportCollections)),
	}

	for _, col := range exportCollections {
		docs, err := s.docs.List(ctx, docstore.Query{Collection: col, Owner: owner})
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", col, err)
		}
		exported := make([]exportDoc, 0, len(docs))
		for _, d := range docs {
			exported = append(exported, exportDoc{ID: d.ID, Data: json.RawMessage(d.Data)})
		}
		out.Collections[col] = exported
	}

	return json.Marshal(out)
}

// Upload exports and puts one snapshot, returning the object key. With a
// configured passphrase the export is sealed client-side and stored as an
// opaque blob.
func (s *Service) Upload(ctx context.Context, owner string) (string, error) {
	data, err := s.Export(ctx, owner)
	if err != nil {
		return "", err
	}

	key := StorageKey(owner)
	contentType := "application/json"
	if s.cfg.BackupPassphrase != "" {
		data, err = cryptox.Seal([]byte(s.cfg.BackupPassphrase), data)
		if err != nil {
			return "", fmt.Errorf("sealing backup: %w", err)
		}
		key += ".enc"
		contentType = "application/octet-stream"
	}

	client, err := s.client(ctx)
	if err != nil {
		return "", err
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("uploading backup: %w", err)
	}
	return key, nil
}

// Run uploads a snapshot every BackupInterval until ctx is canceled. A nil
// return means backups are disabled or the context ended.
func (s *Service) Run(ctx context.Context, owner string) {
	if !s.Enabled() || s.cfg.BackupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(s.cfg.BackupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			key, err := s.Upload(ctx, owner)
			if err != nil {
				s.log.Error(ctx, "backup upload failed", "owner", owner, "error", err)
				continue
			}
			s.log.Info(ctx, "backup uploaded", "owner", owner, "key", key)
		case <-ctx.Done():
			return
		}
	}
}
