// Package gcp is the Snapshot Object Store (OS) component (spec §2, §4.7):
// an append-only blob store for org-scoped export snapshots.
package gcp

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ganesh47/cf-metadata-sys/internal/platform/logger"
)

type SnapshotStore interface {
	// Put writes blob under key, tagging the object with metadata
	// (e.g. exportedAt/orgId/nodeCount/edgeCount per spec §6.4).
	Put(ctx context.Context, key string, blob io.Reader, metadata map[string]string) error
}

type snapshotStore struct {
	log           *logger.Logger
	storageClient *storage.Client
	bucketName    string
}

func NewSnapshotStore(log *logger.Logger) (SnapshotStore, error) {
	storageCfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewSnapshotStoreWithConfig(log, storageCfg)
}

func NewSnapshotStoreWithConfig(log *logger.Logger, storageCfg ObjectStorageConfig) (SnapshotStore, error) {
	if err := ValidateObjectStorageConfig(storageCfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "SnapshotStore")

	bucketName := strings.TrimSpace(os.Getenv("SNAPSHOT_GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var SNAPSHOT_GCS_BUCKET_NAME")
	}

	ctx := context.Background()
	stClient, err := newStorageClientForMode(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"snapshot object store initialized",
		"mode", storageCfg.Mode,
		"bucket", bucketName,
	)

	return &snapshotStore{
		log:           serviceLog,
		storageClient: stClient,
		bucketName:    bucketName,
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig) (*storage.Client, error) {
	switch storageCfg.Mode {
	case ObjectStorageModeGCS:
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, &ObjectStorageConfigError{
			Code: ObjectStorageConfigErrorInvalidMode,
			Mode: string(storageCfg.Mode),
		}
	}
}

func (s *snapshotStore) Put(ctx context.Context, key string, blob io.Reader, metadata map[string]string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.storageClient.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	w.ContentType = "application/json"
	w.Metadata = metadata
	if _, err := io.Copy(w, blob); err != nil {
		_ = w.Close()
		return fmt.Errorf("write snapshot blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close snapshot writer: %w", err)
	}
	return nil
}
