package optimizer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"sync"
	"testing"

	"github.com/mahirjain10/image-optimizer/internal/types"
	"github.com/stretchr/testify/require"
)

type putCall struct {
	Bucket      string
	Key         string
	ContentType string
	ACL         string
	Data        []byte
}

// memoryStore is an in-memory ObjectStore keyed by bucket and key.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string]*types.ImageBuffer
	listing []types.ObjectInfo
	listErr error
	getErr  map[string]error
	putErr  error
	block   bool

	lists int
	gets  []string
	puts  []putCall
}

func newMemoryStore() *memoryStore {
	return &memoryStore{objects: map[string]*types.ImageBuffer{}, getErr: map[string]error{}}
}

func (m *memoryStore) add(bucket, key, contentType string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = &types.ImageBuffer{Data: data, ContentType: contentType}
	m.listing = append(m.listing, types.ObjectInfo{Bucket: bucket, Key: key, Size: int64(len(data))})
}

func (m *memoryStore) ListObjects(_ context.Context, _, _ string, maxKeys int) ([]types.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := append([]types.ObjectInfo{}, m.listing...)
	if len(out) > maxKeys {
		out = out[:maxKeys]
	}
	return out, nil
}

func (m *memoryStore) GetObject(ctx context.Context, bucket, key string) (*types.ImageBuffer, error) {
	m.mu.Lock()
	m.gets = append(m.gets, key)
	block := m.block
	err := m.getErr[key]
	obj, ok := m.objects[bucket+"/"+key]
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("no such key")
	}
	return &types.ImageBuffer{Data: append([]byte{}, obj.Data...), ContentType: obj.ContentType}, nil
}

func (m *memoryStore) PutObject(_ context.Context, bucket, key string, buffer *types.ImageBuffer, acl string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.puts = append(m.puts, putCall{Bucket: bucket, Key: key, ContentType: buffer.ContentType, ACL: acl, Data: buffer.Data})
	m.objects[bucket+"/"+key] = &types.ImageBuffer{Data: buffer.Data, ContentType: buffer.ContentType}
	return nil
}

// failingCodec decodes real headers but cannot encode.
type failingCodec struct{}

func (failingCodec) DecodeDimensions(buffer []byte) (types.Dimensions, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(buffer))
	if err != nil {
		return types.Dimensions{}, err
	}
	return types.Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func (failingCodec) ResizeAndEncode(context.Context, []byte, types.Dimensions, types.EncodeOptions) ([]byte, error) {
	return nil, errors.New("codec exploded")
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	img.SetGray(w/2, h/2, color.Gray{Y: 255})
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	buf := new(bytes.Buffer)
	require.NoError(t, jpeg.Encode(buf, img, nil))
	return buf.Bytes()
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Bucket = "photos"
	// The imaging codec writes baseline jpeg only.
	cfg.Interlace = false
	return cfg
}
