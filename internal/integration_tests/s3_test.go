package integrationtests

import (
	"bytes"
	"context"
	"dashboard-bootstrap/internal/artifact"
	"dashboard-bootstrap/internal/manifest"
	"dashboard-bootstrap/internal/retry"
	"dashboard-bootstrap/internal/storage"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bucketName = "student-performance-app-files"

func setupTestObjectStore(t *testing.T, ctx context.Context) *storage.S3ObjectStore {
	t.Helper()

	endpoint := setupMinioContainer(t, ctx)

	store, err := storage.NewS3ObjectStore(ctx, storage.S3ClientConfig{
		Endpoint:        endpoint,
		Region:          "us-east-1",
		AccessKeyID:     minioUsername,
		SecretAccessKey: minioPassword,
	})
	require.NoError(t, err)
	require.NoError(t, store.CreateBucket(ctx, bucketName))
	return store
}

func TestS3ObjectStoreDownload(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	var progress bytes.Buffer
	store := setupTestObjectStore(t, ctx).WithProgress(&progress)

	content := strings.Repeat("Hours_Studied,Attendance,Exam_Score\n", 1000)
	require.NoError(t, store.PutObject(ctx, bucketName, "StudentPerformanceFactors.csv", strings.NewReader(content)))

	dest := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, store.DownloadObject(ctx, bucketName, "StudentPerformanceFactors.csv", dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))
	assert.NotEmpty(t, progress.String())

	err = store.DownloadObject(ctx, bucketName, "missing.csv", filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}

func TestFetchArtifactsFromS3(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	store := setupTestObjectStore(t, ctx)
	require.NoError(t, store.PutObject(ctx, bucketName, "app.py", strings.NewReader("import streamlit as st\n")))

	m, err := manifest.Default()
	require.NoError(t, err)

	appDir := t.TempDir()
	artifacts := artifact.FromManifest(m, bucketName, appDir)

	retrier := retry.New(retry.Policy{MaxAttempts: 3, Delay: 10 * time.Millisecond})
	fetcher := artifact.NewFetcher(store, retrier, true)
	require.Len(t, artifacts, 2)

	app := fetcher.Fetch(ctx, artifacts[0])
	assert.NoError(t, app.Err)
	assert.Equal(t, 1, app.Attempts)
	assert.True(t, app.Changed)

	// The dataset was never uploaded.
	dataset := fetcher.Fetch(ctx, artifacts[1])
	assert.ErrorIs(t, dataset.Err, artifact.ErrFetchExhausted)
	assert.Equal(t, 3, dataset.Attempts)

	assert.FileExists(t, filepath.Join(appDir, "app.py"))
	assert.NoFileExists(t, filepath.Join(appDir, "StudentPerformanceFactors.csv"))
}
