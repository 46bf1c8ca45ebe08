package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/block"
	"pagecraft/internal/document"
)

func edited(t *testing.T) *document.Document {
	t.Helper()
	d := document.DefaultTemplate()

	id := d.AddBlock(block.TypeVideo)
	require.NoError(t, d.UpdateContent(id, block.Content{"url": "page-assets/p/clip.mp4", "views": 12}))
	dup, err := d.DuplicateBlock("features-1")
	require.NoError(t, err)
	require.NoError(t, d.UpdateContent(dup, block.Content{"features": []any{map[string]any{"title": "Only", "rank": 1.5}}}))
	right := block.AlignRight
	require.NoError(t, d.UpdateSettings("cta-1", block.SettingsPatch{Alignment: &right}))
	_, err = d.MoveBlock("footer-1", document.Up)
	require.NoError(t, err)
	require.NoError(t, d.DeleteBlock("text-1"))
	d.AddBlock("carousel")
	title := "Edited"
	d.UpdatePageSettings(document.PageSettingsPatch{Title: &title})
	return d
}

func TestRoundTrip(t *testing.T) {
	d := edited(t)

	blob, err := Encode(d)
	require.NoError(t, err)

	back, report, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, report.Version)
	assert.False(t, report.Recovered)

	assert.Equal(t, d.Blocks(), back.Blocks())
	assert.Equal(t, d.PageSettings(), back.PageSettings())

	again, err := Encode(back)
	require.NoError(t, err)
	assert.Equal(t, blob, again)
}

func TestRoundTripInvalidUTF8(t *testing.T) {
	d := document.DefaultTemplate()
	bg, pad := "bg-\xff", "p\xff\xfe-4"
	require.NoError(t, d.UpdateSettings("hero-1", block.SettingsPatch{BackgroundColor: &bg, Padding: &pad}))
	title, desc := "Sale \xc3", "\xed\xa0\x80"
	d.UpdatePageSettings(document.PageSettingsPatch{Title: &title, Description: &desc})
	d.AddBlock("odd\xff")

	blob, err := Encode(d)
	require.NoError(t, err)
	back, _, err := Decode(blob)
	require.NoError(t, err)

	assert.Equal(t, d.Blocks(), back.Blocks())
	assert.Equal(t, d.PageSettings(), back.PageSettings())
	assert.Equal(t, "bg-\uFFFD", back.Blocks()[0].Settings.BackgroundColor)
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(document.DefaultTemplate())
	require.NoError(t, err)
	b, err := Encode(document.DefaultTemplate())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeLegacySnapshot(t *testing.T) {
	blob := []byte(`{"blocks":[{"id":"hero-1","type":"hero","content":{"title":"Old"},"settings":{"backgroundColor":"bg-white","textColor":"text-gray-800","padding":"py-16","alignment":"center"}}],"pageSettings":{"title":"Legacy","description":"d"}}`)

	d, report, err := Decode(blob)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Version)
	assert.Empty(t, report.Issues)
	require.Equal(t, 1, d.Len())
	assert.Equal(t, "Old", d.Blocks()[0].Content["title"])
	assert.Equal(t, "Legacy", d.PageSettings().Title)
}

func TestDecodeIsLenient(t *testing.T) {
	blob := []byte(`{"version":1,"blocks":[
		{"id":"x-1","type":"carousel","content":{"slides":[1,2]},"settings":{},"locked":true},
		{"id":"cta-1","type":"cta","content":{"hasImage":"yes","extra":"kept"},"settings":{"alignment":"justify"}}
	],"pageSettings":{"title":"t","description":""}}`)

	d, report, err := Decode(blob)
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())

	kinds := map[IssueKind]string{}
	for _, issue := range report.Issues {
		kinds[issue.Kind] = issue.BlockID
	}
	assert.Equal(t, "x-1", kinds[IssueUnknownType])
	assert.Equal(t, "cta-1", kinds[IssueInvalidField])
	assert.Equal(t, "cta-1", kinds[IssueInvalidSettings])

	blocks := d.Blocks()
	assert.Equal(t, []any{1.0, 2.0}, blocks[0].Content["slides"])
	assert.Contains(t, blocks[0].Extra, "locked")
	assert.Equal(t, "yes", blocks[1].Content["hasImage"])
	assert.Equal(t, "kept", blocks[1].Content["extra"])

	out, err := Encode(d)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"locked":true`)
}

func TestDecodeFillsMissingParts(t *testing.T) {
	d, report, err := Decode([]byte(`{"pageSettings":{"title":"Mine","description":""}}`))
	require.NoError(t, err)
	assert.Equal(t, 9, d.Len())
	assert.Equal(t, "Mine", d.PageSettings().Title)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueMissingBlocks, report.Issues[0].Kind)

	d, _, err = Decode([]byte(`{"blocks":[]}`))
	require.NoError(t, err)
	assert.Equal(t, 0, d.Len())
	assert.Equal(t, document.DefaultTemplate().PageSettings(), d.PageSettings())
}

func TestDecodeMalformed(t *testing.T) {
	blobs := map[string]string{
		"not json":        `{"blocks":`,
		"not an object":   `[1,2]`,
		"null":            `null`,
		"blocks object":   `{"blocks":{"id":"a"}}`,
		"block scalar":    `{"blocks":["hero"]}`,
		"id not a string": `{"blocks":[{"id":7,"type":"hero"}]}`,
		"content string":  `{"blocks":[{"id":"a","type":"hero","content":"x"}]}`,
		"missing id":      `{"blocks":[{"type":"hero"}]}`,
		"duplicate ids":   `{"blocks":[{"id":"a","type":"hero"},{"id":"a","type":"text"}]}`,
		"bad page":        `{"blocks":[],"pageSettings":"x"}`,
		"negative":        `{"version":-1,"blocks":[]}`,
	}
	for name, blob := range blobs {
		t.Run(name, func(t *testing.T) {
			d, _, err := Decode([]byte(blob))
			assert.ErrorIs(t, err, ErrMalformedSnapshot)
			assert.Nil(t, d)
		})
	}
}

func TestLoadAbsentSeedsDefault(t *testing.T) {
	store := NewMemoryStore()
	d, report, err := Load(context.Background(), store, "home")
	require.NoError(t, err)
	assert.True(t, report.Seeded)
	assert.False(t, report.Recovered)
	assert.Equal(t, 9, d.Len())
}

func TestLoadMalformedBacksUpAndRecovers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "home", []byte("{oops")))

	d, report, err := Load(ctx, store, "home")
	require.NoError(t, err)
	assert.True(t, report.Recovered)
	assert.ErrorIs(t, report.Cause, ErrMalformedSnapshot)
	assert.Equal(t, "home"+MalformedSuffix, report.BackupKey)
	assert.Equal(t, 9, d.Len())

	backup, err := store.Get(ctx, report.BackupKey)
	require.NoError(t, err)
	assert.Equal(t, []byte("{oops"), backup)
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	d := edited(t)

	require.NoError(t, Save(ctx, store, "home", d))
	back, report, err := Load(ctx, store, "home")
	require.NoError(t, err)
	assert.False(t, report.Seeded)
	assert.Equal(t, d.Blocks(), back.Blocks())
}

type failingStore struct{ err error }

func (s failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }
func (s failingStore) Put(context.Context, string, []byte) error   { return s.err }

func TestLoadStoreFailure(t *testing.T) {
	boom := errors.New("connection refused")
	_, _, err := Load(context.Background(), failingStore{err: boom}, "home")
	assert.ErrorIs(t, err, boom)
}

type fakeRedis struct {
	values map[string][]byte
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.values[key] = value.([]byte)
	return redis.NewStatusResult("OK", nil)
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	fake := &fakeRedis{values: map[string][]byte{}}
	store := NewRedisStore(fake, "pagecraft:page:")

	_, err := store.Get(ctx, "home")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "home", []byte(`{"blocks":[]}`)))
	assert.Contains(t, fake.values, "pagecraft:page:home")

	blob, err := store.Get(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, `{"blocks":[]}`, string(blob))
}
