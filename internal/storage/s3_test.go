package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	miniogo "github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/minio"
)

// TestS3Store_Integration runs the S3 store against a MinIO container
func TestS3Store_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	minioContainer, err := minio.Run(ctx,
		"minio/minio:RELEASE.2024-10-29T16-01-48Z",
		minio.WithUsername("minioadmin"),
		minio.WithPassword("minioadmin"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, minioContainer.Terminate(context.Background())) })

	endpoint, err := minioContainer.ConnectionString(ctx)
	require.NoError(t, err)

	bucket := "apscanner-test-" + uuid.New().String()[:8]
	admin, err := miniogo.New(endpoint, &miniogo.Options{
		Creds: miniocreds.NewStaticV4("minioadmin", "minioadmin", ""),
	})
	require.NoError(t, err)
	require.NoError(t, admin.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{}))

	store, err := NewS3Store(ctx, S3Config{
		Bucket:    bucket,
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
	})
	require.NoError(t, err)

	id := uuid.New().String()
	ref, err := store.Put(ctx, id, []byte(`{"local":"lab"}`))
	require.NoError(t, err)
	assert.Equal(t, "s3://"+bucket+"/readings/"+id+".json", ref)

	data, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, `{"local":"lab"}`, string(data))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
