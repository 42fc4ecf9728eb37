package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"

	"sitegen/internal/config"
)

func TestThumbnailKey(t *testing.T) {
	assert.Equal(t, "thumbnails/u-1/p-1.jpg", ThumbnailKey("u-1", "p-1"))
	assert.Equal(t, "thumbnails/u-1/", userPrefix("u-1"))
}

func TestIsNoSuchKey(t *testing.T) {
	assert.False(t, IsNoSuchKey(nil))
	assert.True(t, IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}))
	assert.True(t, IsNoSuchKey(fmt.Errorf("wrapped: %w", minio.ErrorResponse{Code: "NotFound"})))
	assert.True(t, IsNoSuchKey(errors.New("The specified key does not exist.")))
	assert.False(t, IsNoSuchKey(minio.ErrorResponse{Code: "AccessDenied"}))
}

func TestNewClient_RejectsBadConfig(t *testing.T) {
	_, err := NewClient(config.MinIOConfig{Endpoint: "localhost:9000", PublicEndpoint: "http://localhost:9000", BucketLookup: "sideways"})
	assert.ErrorContains(t, err, "invalid minio bucket lookup")

	_, err = NewClient(config.MinIOConfig{Endpoint: "localhost:9000", PublicEndpoint: "no-scheme"})
	assert.ErrorContains(t, err, "host missing")
}
