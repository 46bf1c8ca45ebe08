package storage

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/minio/minio-go/v7"

	"pagecraft/internal/snapshot"
)

type memObjects struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memObjects) UploadFile(_ context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) != size {
		return nil, errors.New("size mismatch")
	}
	m.objects[objectName] = data
	m.contentTypes[objectName] = contentType
	return &minio.UploadInfo{Key: objectName, Size: size}, nil
}

func (m *memObjects) ReadObject(_ context.Context, objectKey string) ([]byte, error) {
	data, ok := m.objects[objectKey]
	if !ok {
		return nil, minio.ErrorResponse{Code: "NoSuchKey", Key: objectKey}
	}
	return data, nil
}

func (m *memObjects) ListObjects(_ context.Context, prefix string, limit int) ([]ObjectMeta, error) {
	var out []ObjectMeta
	for key, data := range m.objects {
		if strings.HasPrefix(key, prefix) && len(out) < limit {
			out = append(out, ObjectMeta{Key: key, Size: int64(len(data))})
		}
	}
	return out, nil
}

func TestSnapshotObjectsKeys(t *testing.T) {
	ctx := context.Background()
	objects := newMemObjects()
	store := NewSnapshotObjects(objects)

	for _, key := range []string{"home", "shop", "home:malformed"} {
		if err := store.Put(ctx, key, []byte(`{}`)); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	objects.objects["snapshots/home/x.json"] = []byte(`{}`)

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	if strings.Join(keys, ",") != "home,home:malformed,shop" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestSnapshotObjectsRoundTrip(t *testing.T) {
	ctx := context.Background()
	objects := newMemObjects()
	store := NewSnapshotObjects(objects)

	if _, err := store.Get(ctx, "home"); !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Put(ctx, "home", []byte(`{"blocks":[]}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if objects.contentTypes["pages/home.json"] != "application/json" {
		t.Fatalf("unexpected objects: %#v", objects.contentTypes)
	}

	got, err := store.Get(ctx, "home")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"blocks":[]}` {
		t.Fatalf("got %q", got)
	}
}

func TestSnapshotObjectsWorkWithLoad(t *testing.T) {
	ctx := context.Background()
	store := NewSnapshotObjects(newMemObjects())

	doc, report, err := snapshot.Load(ctx, store, "home")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !report.Seeded {
		t.Fatalf("expected seeded report")
	}
	if err := snapshot.Save(ctx, store, "home", doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	back, _, err := snapshot.Load(ctx, store, "home")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.Len() != doc.Len() {
		t.Fatalf("len = %d, want %d", back.Len(), doc.Len())
	}
}

func TestUploadArchive(t *testing.T) {
	objects := newMemObjects()
	key, err := UploadArchive(context.Background(), objects, "home", []byte(`{}`))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(key, "snapshots/home/") || !strings.HasSuffix(key, ".json") {
		t.Fatalf("unexpected key %q", key)
	}
	if _, ok := objects.objects[key]; !ok {
		t.Fatalf("archive not stored")
	}
}

func TestAssetKey(t *testing.T) {
	key := AssetKey("home", "PNG")
	if !strings.HasPrefix(key, "page-assets/home/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if strings.Contains(AssetKey("home", ""), ".") {
		t.Fatalf("expected no extension")
	}
}

func TestIsNoSuchKey(t *testing.T) {
	if !IsNoSuchKey(minio.ErrorResponse{Code: "NoSuchKey"}) {
		t.Fatalf("expected NoSuchKey to match")
	}
	if IsNoSuchKey(nil) {
		t.Fatalf("nil is not NoSuchKey")
	}
	if IsNoSuchKey(errors.New("connection reset")) {
		t.Fatalf("unrelated error matched")
	}
}
