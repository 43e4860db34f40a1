package s3compat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	objects  []minio.ObjectInfo
	putErr   error
	listOpts minio.ListObjectsOptions
	putKey   string
	putBody  []byte
	putOpts  minio.PutObjectOptions
}

func (f *fakeAPI) ListObjects(ctx context.Context, _ string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	f.listOpts = opts
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, obj := range f.objects {
			select {
			case ch <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func (f *fakeAPI) GetObject(context.Context, string, string, minio.GetObjectOptions) (*minio.Object, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeAPI) PutObject(_ context.Context, _, key string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.putKey, f.putBody, f.putOpts = key, body, opts
	return minio.UploadInfo{Key: key, Size: int64(len(body))}, nil
}

func TestListObjects(t *testing.T) {
	fake := &fakeAPI{}
	for i := 0; i < 10; i++ {
		fake.objects = append(fake.objects, minio.ObjectInfo{Key: fmt.Sprintf("folder/%d.png", i), Size: 3})
	}

	got, err := NewStore(fake).ListObjects(context.Background(), "photos", "folder/", 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "folder/0.png", got[0].Key)
	assert.Equal(t, "photos", got[0].Bucket)
	assert.Equal(t, "folder/", fake.listOpts.Prefix)
	assert.True(t, fake.listOpts.Recursive)
}

func TestListObjectsError(t *testing.T) {
	fake := &fakeAPI{objects: []minio.ObjectInfo{{Key: "a.png"}, {Err: errors.New("bucket does not exist")}}}

	_, err := NewStore(fake).ListObjects(context.Background(), "photos", "", 100)
	require.ErrorContains(t, err, "bucket does not exist")
}

func TestReadObject(t *testing.T) {
	buf, err := readObject(strings.NewReader("pixels"), func() (minio.ObjectInfo, error) {
		return minio.ObjectInfo{ContentType: "image/jpeg"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("pixels"), buf.Data)
	assert.Equal(t, "image/jpeg", buf.ContentType)

	_, err = readObject(strings.NewReader(""), func() (minio.ObjectInfo, error) {
		return minio.ObjectInfo{}, errors.New("NoSuchKey")
	})
	require.ErrorContains(t, err, "NoSuchKey")
}

func TestPutObject(t *testing.T) {
	fake := &fakeAPI{}
	err := NewStore(fake).PutObject(context.Background(), "photos", "folder/a.png",
		&types.ImageBuffer{Data: []byte("jpeg"), ContentType: "image/png"}, "public-read")
	require.NoError(t, err)
	assert.Equal(t, "folder/a.png", fake.putKey)
	assert.Equal(t, []byte("jpeg"), fake.putBody)
	assert.Equal(t, "image/png", fake.putOpts.ContentType)
	assert.Equal(t, map[string]string{"x-amz-acl": "public-read"}, fake.putOpts.UserMetadata)

	fake.putErr = errors.New("AccessDenied")
	err = NewStore(fake).PutObject(context.Background(), "photos", "k", &types.ImageBuffer{}, "")
	require.ErrorContains(t, err, "AccessDenied")
}

func TestNewClientValidates(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)

	_, err = NewClient(Config{Endpoint: "localhost:9000"})
	require.Error(t, err)

	client, err := NewClient(Config{Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", client.EndpointURL().Host)
}
