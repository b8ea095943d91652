package archive

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/PayFox/internal/pkg/env"
)

type fakePutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	f.body, _ = io.ReadAll(in.Body)
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 2, 3, 23, 30, 0, 0, time.FixedZone("SAST", 2*3600))
	assert.Equal(t, "webhooks/2026/02/wh-1.json", ObjectKey("wh-1", at))
}

func TestArchive(t *testing.T) {
	putter := &fakePutter{}
	client := &Client{s3Client: putter, config: &Config{BucketName: "payfox-archive", Enabled: true}}

	received := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	res, err := client.Archive(context.Background(), Delivery{WebhookID: "wh-9", Provider: "netcash", ReceivedAt: received, RawBody: `{"TransactionId":"T1"}`})
	require.NoError(t, err)

	assert.Equal(t, "webhooks/2026/05/wh-9.json", res.ObjectKey)
	assert.Equal(t, "payfox-archive", *putter.input.Bucket)
	assert.Equal(t, int64(len(putter.body)), res.Size)

	var stored Delivery
	require.NoError(t, json.Unmarshal(putter.body, &stored))
	assert.Equal(t, `{"TransactionId":"T1"}`, stored.RawBody)
}

func TestArchiveUploadError(t *testing.T) {
	client := &Client{s3Client: &fakePutter{err: errors.New("denied")}, config: &Config{BucketName: "b"}}
	_, err := client.Archive(context.Background(), Delivery{WebhookID: "wh"})
	assert.ErrorContains(t, err, "denied")
}

func TestLoadConfig(t *testing.T) {
	old := env.Env
	t.Cleanup(func() { env.Env = old })

	env.Env = map[string]string{"S3_ARCHIVE_ENABLED": "true", "S3_ACCESS_KEY_ID": "id"}
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "S3_SECRET_ACCESS_KEY")

	env.Env = map[string]string{}
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.IsEnabled())

	_, err = NewClient(context.Background(), cfg)
	assert.Error(t, err)
}
