package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"pagecraft/internal/snapshot"
)

const (
	snapshotContentType = "application/json"
	currentPrefix       = "pages/"
	archivePrefix       = "snapshots/"
	assetPrefix         = "page-assets/"
)

type objectUploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

type objectReadWriter interface {
	objectUploader
	ReadObject(ctx context.Context, objectKey string) ([]byte, error)
	ListObjects(ctx context.Context, prefix string, limit int) ([]ObjectMeta, error)
}

const maxListedPages = 1000

// SnapshotObjects stores the current snapshot of each page as one object,
// pages/<key>.json.
type SnapshotObjects struct {
	client objectReadWriter
}

func NewSnapshotObjects(client objectReadWriter) *SnapshotObjects {
	return &SnapshotObjects{client: client}
}

func currentKey(key string) string {
	return currentPrefix + key + ".json"
}

func (s *SnapshotObjects) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.ReadObject(ctx, currentKey(key))
	if IsNoSuchKey(err) {
		return nil, snapshot.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *SnapshotObjects) Put(ctx context.Context, key string, blob []byte) error {
	_, err := s.client.UploadFile(ctx, currentKey(key), bytes.NewReader(blob), int64(len(blob)), snapshotContentType)
	return err
}

// Keys lists the pages that have a current snapshot object.
func (s *SnapshotObjects) Keys(ctx context.Context) ([]string, error) {
	objects, err := s.client.ListObjects(ctx, currentPrefix, maxListedPages)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		key := strings.TrimSuffix(strings.TrimPrefix(obj.Key, currentPrefix), ".json")
		if key == "" || strings.Contains(key, "/") {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// ArchiveKey 生成归档对象名：snapshots/<page>/<uuid>.json。
func ArchiveKey(page string) string {
	return fmt.Sprintf("%s%s/%s.json", archivePrefix, page, uuid.NewString())
}

// ArchivePrefix returns the prefix holding the archives of page.
func ArchivePrefix(page string) string {
	return archivePrefix + page + "/"
}

// AssetPrefix returns the prefix holding the uploaded media of page.
func AssetPrefix(page string) string {
	return assetPrefix + page + "/"
}

// AssetKey 生成素材对象名：page-assets/<page>/<uuid><ext>。
func AssetKey(page, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return AssetPrefix(page) + uuid.NewString() + ext
}

// UploadArchive writes blob as a new archive object of page and returns its key.
func UploadArchive(ctx context.Context, client objectUploader, page string, blob []byte) (string, error) {
	key := ArchiveKey(page)
	if _, err := client.UploadFile(ctx, key, bytes.NewReader(blob), int64(len(blob)), snapshotContentType); err != nil {
		return "", err
	}
	return key, nil
}
