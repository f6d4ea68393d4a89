package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vormiaphp/vormiaquery/internal/common"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

type storeFactory func(t *testing.T, c *clock) Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory": func(t *testing.T, c *clock) Store {
			s := NewMemoryStore()
			s.now = c.now
			return s
		},
		"sqlite": func(t *testing.T, c *clock) Store {
			s, err := OpenSQLite(context.Background(), ":memory:")
			require.NoError(t, err)
			s.now = c.now
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
		"s3": func(t *testing.T, c *clock) Store {
			s := NewS3Store(newFakeS3(), "bucket", "app/")
			s.now = c.now
			return s
		},
	}
}

func TestStores_Contract(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("get missing", func(t *testing.T) {
				s := factory(t, newClock())
				_, err := s.Get(ctx, "absent")
				assert.ErrorIs(t, err, common.ErrNotFound)
				assert.True(t, IsNotFound(err))
			})

			t.Run("set get overwrite", func(t *testing.T) {
				s := factory(t, newClock())
				require.NoError(t, s.Set(ctx, "k", []byte("old")))
				require.NoError(t, s.Set(ctx, "k", []byte("new")))
				v, err := s.Get(ctx, "k")
				require.NoError(t, err)
				assert.Equal(t, []byte("new"), v)
			})

			t.Run("remove is idempotent", func(t *testing.T) {
				s := factory(t, newClock())
				require.NoError(t, s.Set(ctx, "k", []byte("v")))
				require.NoError(t, s.Remove(ctx, "k"))
				require.NoError(t, s.Remove(ctx, "k"))
				_, err := s.Get(ctx, "k")
				assert.ErrorIs(t, err, common.ErrNotFound)
			})

			t.Run("ttl expires lazily", func(t *testing.T) {
				c := newClock()
				s := factory(t, c)
				require.NoError(t, s.Set(ctx, "k", []byte("v"), WithTTL(time.Minute)))
				require.NoError(t, s.Set(ctx, "forever", []byte("v"), WithTTL(0)))

				c.advance(59 * time.Second)
				_, err := s.Get(ctx, "k")
				require.NoError(t, err)

				c.advance(time.Second)
				_, err = s.Get(ctx, "k")
				assert.ErrorIs(t, err, common.ErrNotFound)

				_, err = s.Get(ctx, "forever")
				assert.NoError(t, err)
			})

			t.Run("clear namespace", func(t *testing.T) {
				s := factory(t, newClock())
				require.NoError(t, s.Set(ctx, Key("a", "1"), []byte("x")))
				require.NoError(t, s.Set(ctx, Key("a", "2"), []byte("x")))
				require.NoError(t, s.Set(ctx, Key("ab", "1"), []byte("x")))
				require.NoError(t, s.Set(ctx, "plain", []byte("x")))

				require.NoError(t, s.Clear(ctx, "a"))

				_, err := s.Get(ctx, Key("a", "1"))
				assert.ErrorIs(t, err, common.ErrNotFound)
				_, err = s.Get(ctx, Key("a", "2"))
				assert.ErrorIs(t, err, common.ErrNotFound)
				_, err = s.Get(ctx, Key("ab", "1"))
				assert.NoError(t, err)
				_, err = s.Get(ctx, "plain")
				assert.NoError(t, err)

				require.NoError(t, s.Clear(ctx, ""))
				_, err = s.Get(ctx, "plain")
				assert.ErrorIs(t, err, common.ErrNotFound)
			})
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	type user struct {
		ID    int      `json:"id"`
		Roles []string `json:"roles"`
	}
	require.NoError(t, SetJSON(ctx, s, "u", user{ID: 7, Roles: []string{"admin"}}))

	var got user
	require.NoError(t, GetJSON(ctx, s, "u", &got))
	assert.Equal(t, user{ID: 7, Roles: []string{"admin"}}, got)

	require.NoError(t, s.Set(ctx, "bad", []byte("{")))
	assert.Error(t, GetJSON(ctx, s, "bad", &got))
	assert.ErrorIs(t, GetJSON(ctx, s, "none", &got), common.ErrNotFound)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "ns:k", Key("ns", "k"))
	assert.Equal(t, "k", Key("", "k"))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	in := []byte("abc")
	require.NoError(t, s.Set(ctx, "k", in))
	in[0] = 'X'

	out, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)
	out[1] = 'Y'

	again, _ := s.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
	assert.Equal(t, 1, s.Len())
}

func TestSQLiteStore_KeysAndPersistence(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/store.db"

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, Key("h", "b"), []byte("1")))
	require.NoError(t, s.Set(ctx, Key("h", "a"), []byte("2")))
	require.NoError(t, s.Set(ctx, "other", []byte("3")))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()

	keys, err := s.Keys(ctx, "h:")
	require.NoError(t, err)
	assert.Equal(t, []string{"h:a", "h:b"}, keys)
}

// fakeS3 is an in-memory S3API.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]fakeObject
}

type fakeObject struct {
	body []byte
	meta map[string]string
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: map[string]fakeObject{}}
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(obj.body)), Metadata: obj.meta}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = fakeObject{body: b, meta: in.Metadata}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for _, k := range keys {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func TestParseS3URL(t *testing.T) {
	cfg, err := ParseS3URL("s3://state/vq/dev?region=eu-west-1&endpoint=http://localhost:9000")
	require.NoError(t, err)
	assert.Equal(t, S3Config{
		Bucket:       "state",
		Prefix:       "vq/dev/",
		Region:       "eu-west-1",
		BaseEndpoint: "http://localhost:9000",
	}, cfg)

	cfg, err = ParseS3URL("s3://state")
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Prefix)
	assert.Equal(t, "us-east-1", cfg.Region)

	_, err = ParseS3URL("file:///tmp/x")
	assert.Error(t, err)
}
