package transcript

import (
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/voice-agent-platform/pkg/logging"
)

type fakeS3 struct {
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestArchiverWritesByDateKey(t *testing.T) {
	fake := &fakeS3{}
	archiver := NewArchiver(fake, "voiceagent-transcripts", logging.Default())

	rec := sampleRecord()
	require.NoError(t, archiver.Archive(context.Background(), rec))

	key := "calls/v1/by-date/2026/08/14/call_1.json"
	data, ok := fake.objects[key]
	require.True(t, ok, "expected object at %s, got %v", key, fake.objects)
	assert.Contains(t, string(data), "Dana Ruiz")
}

func TestArchiverDisabledWithoutBucket(t *testing.T) {
	fake := &fakeS3{}
	archiver := NewArchiver(fake, "", logging.Default())

	assert.False(t, archiver.Enabled())
	require.NoError(t, archiver.Archive(context.Background(), sampleRecord()))
	assert.Empty(t, fake.objects)
}
