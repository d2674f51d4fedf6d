package backup

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarpov/deskpad/internal/config"
	"github.com/akarpov/deskpad/internal/cryptox"
	"github.com/akarpov/deskpad/internal/docstore"
	"github.com/akarpov/deskpad/internal/logging"
	"github.com/akarpov/deskpad/internal/models"
)

func seededStore(t *testing.T) *docstore.InMemory {
	t.Helper()
	mem := docstore.NewInMemory()
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, models.CollectionNotes, "n1",
		map[string]any{"owner": "u1", "content": "hello"}, false))
	require.NoError(t, mem.Set(ctx, models.CollectionTodos, "t1",
		map[string]any{"owner": "u1", "text": "taxes"}, false))
	require.NoError(t, mem.Set(ctx, models.CollectionNotes, "other",
		map[string]any{"owner": "u2", "content": "not mine"}, false))
	return mem
}

func TestExport_OnlyOwnerDocuments(t *testing.T) {
	mem := seededStore(t)
	cfg := &config.Config{}
	svc := NewService(mem, cfg, logging.NewNopLogger())

	data, err := svc.Export(context.Background(), "u1")
	require.NoError(t, err)

	var out struct {
		Owner       string `json:"owner"`
		Collections map[string][]struct {
			ID string `json:"id"`
		} `json:"collections"`
	}
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, "u1", out.Owner)
	require.Len(t, out.Collections[models.CollectionNotes], 1)
	assert.Equal(t, "n1", out.Collections[models.CollectionNotes][0].ID)
	require.Len(t, out.Collections[models.CollectionTodos], 1)
	assert.Empty(t, out.Collections[models.CollectionFiles])
}

func TestUpload_PutsSnapshotToBucket(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origPut := putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		putObject = origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}

	var gotInput *s3.PutObjectInput
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		gotInput = in
		return &s3.PutObjectOutput{}, nil
	}

	mem := seededStore(t)
	cfg := &config.Config{S3Bucket: "deskpad-backups", S3Region: "us-east-1"}
	svc := NewService(mem, cfg, logging.NewNopLogger())

	key, err := svc.Upload(context.Background(), "u1")
	require.NoError(t, err)

	require.NotNil(t, gotInput)
	assert.Equal(t, "deskpad-backups", aws.ToString(gotInput.Bucket))
	assert.Equal(t, key, aws.ToString(gotInput.Key))
	assert.Equal(t, "application/json", aws.ToString(gotInput.ContentType))

	body, err := io.ReadAll(gotInput.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"owner":"u1"`)
}

func TestUpload_SealedWithPassphrase(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origPut := putObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		putObject = origPut
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}

	var gotInput *s3.PutObjectInput
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		gotInput = in
		return &s3.PutObjectOutput{}, nil
	}

	mem := seededStore(t)
	cfg := &config.Config{S3Bucket: "b", S3Region: "us-east-1", BackupPassphrase: "hunter2"}
	svc := NewService(mem, cfg, logging.NewNopLogger())

	key, err := svc.Upload(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".enc"), key)

	require.NotNil(t, gotInput)
	assert.Equal(t, "application/octet-stream", aws.ToString(gotInput.ContentType))

	body, err := io.ReadAll(gotInput.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(body), `"owner"`)

	plain, err := cryptox.Open([]byte("hunter2"), body)
	require.NoError(t, err)
	assert.Contains(t, string(plain), `"owner":"u1"`)
}

func TestStorageKey_PartitionedByOwnerAndDate(t *testing.T) {
	orig := timeNow
	t.Cleanup(func() { timeNow = orig })
	timeNow = func() time.Time {
		return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	}

	key := StorageKey("u1")
	assert.True(t, strings.HasPrefix(key, "backups/u1/2024/3/5/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"), key)
}

func TestRun_DisabledWithoutBucket(t *testing.T) {
	mem := docstore.NewInMemory()
	cfg := &config.Config{BackupInterval: time.Millisecond}
	svc := NewService(mem, cfg, logging.NewNopLogger())

	done := make(chan struct{})
	go func() {
		svc.Run(context.Background(), "u1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when no bucket is configured")
	}
}
