package editor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/block"
	"pagecraft/internal/document"
	"pagecraft/internal/errcode"
	"pagecraft/internal/notify"
	"pagecraft/internal/snapshot"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (n *recordingNotifier) Notify(_ context.Context, page string, msg notify.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	msg.Page = page
	n.messages = append(n.messages, msg)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type brokenStore struct {
	snapshot.Store
	fail bool
}

func (s *brokenStore) Put(ctx context.Context, key string, blob []byte) error {
	if s.fail {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, key, blob)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T) (*Manager, *snapshot.MemoryStore, *recordingNotifier) {
	t.Helper()
	store := snapshot.NewMemoryStore()
	notifier := &recordingNotifier{}
	return NewManager(store, notifier, discardLogger()), store, notifier
}

func openSession(t *testing.T, m *Manager, page string) *Session {
	t.Helper()
	s, err := m.Session(context.Background(), page)
	require.NoError(t, err)
	return s
}

func storedDocument(t *testing.T, store snapshot.Store, page string) *document.Document {
	t.Helper()
	blob, err := store.Get(context.Background(), page)
	require.NoError(t, err)
	d, _, err := snapshot.Decode(blob)
	require.NoError(t, err)
	return d
}

func TestDeleteClearsSelection(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	s := openSession(t, m, "home")
	require.NoError(t, s.Reset(ctx, document.TemplateLanding))

	x := s.View().Blocks[0].ID
	require.NoError(t, s.Select(x))
	require.NoError(t, s.DeleteBlock(ctx, x))

	_, ok := s.Selected()
	assert.False(t, ok)
	assert.Empty(t, s.View().SelectedBlockID)
}

func TestDeleteOtherBlockKeepsSelection(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newTestManager(t)
	s := openSession(t, m, "home")
	view := s.View()

	require.NoError(t, s.Select(view.Blocks[0].ID))
	require.NoError(t, s.DeleteBlock(ctx, view.Blocks[1].ID))

	id, ok := s.Selected()
	assert.True(t, ok)
	assert.Equal(t, view.Blocks[0].ID, id)
}

func TestSelectUnknownBlock(t *testing.T) {
	m, _, _ := newTestManager(t)
	s := openSession(t, m, "home")

	assert.ErrorIs(t, s.Select("ghost-1"), document.ErrNotFound)
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestEditSelectedForwardsToDocument(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)
	s := openSession(t, m, "home")

	_, err := s.EditSelectedContent(ctx, block.Content{"title": "x"})
	assert.ErrorIs(t, err, ErrNoSelection)
	_, err = s.EditSelectedSettings(ctx, block.SettingsPatch{})
	assert.ErrorIs(t, err, ErrNoSelection)

	require.NoError(t, s.Select("hero-1"))
	id, err := s.EditSelectedContent(ctx, block.Content{"title": "Selected edit"})
	require.NoError(t, err)
	assert.Equal(t, "hero-1", id)

	padding := "py-4"
	_, err = s.EditSelectedSettings(ctx, block.SettingsPatch{Padding: &padding})
	require.NoError(t, err)

	b, err := storedDocument(t, store, "home").Block("hero-1")
	require.NoError(t, err)
	assert.Equal(t, "Selected edit", b.Content["title"])
	assert.Equal(t, "py-4", b.Settings.Padding)

	s.Deselect()
	_, ok := s.Selected()
	assert.False(t, ok)
}

func TestEveryMutationIsPersisted(t *testing.T) {
	ctx := context.Background()
	m, store, notifier := newTestManager(t)
	s := openSession(t, m, "home")

	_, err := store.Get(ctx, "home")
	assert.ErrorIs(t, err, snapshot.ErrNotFound, "opening a page does not write")

	id := s.AddBlock(ctx, block.TypeImage)
	assert.Equal(t, s.View().Blocks, storedDocument(t, store, "home").Blocks())

	dup, err := s.DuplicateBlock(ctx, id)
	require.NoError(t, err)
	require.NoError(t, s.UpdateContent(ctx, dup, block.Content{"caption": "copy"}))
	moved, err := s.MoveBlock(ctx, dup, document.Up)
	require.NoError(t, err)
	assert.True(t, moved)
	title := "Persisted"
	s.UpdatePageSettings(ctx, document.PageSettingsPatch{Title: &title})

	stored := storedDocument(t, store, "home")
	assert.Equal(t, s.View().Blocks, stored.Blocks())
	assert.Equal(t, "Persisted", stored.PageSettings().Title)
	assert.Equal(t, 5, notifier.count())
}

func TestBoundaryMoveIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	m, store, notifier := newTestManager(t)
	s := openSession(t, m, "home")

	moved, err := s.MoveBlock(ctx, "hero-1", document.Up)
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Zero(t, notifier.count())

	_, err = store.Get(ctx, "home")
	assert.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestFailedOperationIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	m, _, notifier := newTestManager(t)
	s := openSession(t, m, "home")

	assert.ErrorIs(t, s.DeleteBlock(ctx, "ghost"), document.ErrNotFound)
	assert.ErrorIs(t, s.UpdateContent(ctx, "hero-1", block.Content{"title": 1}), document.ErrInvalidContent)
	assert.Zero(t, notifier.count())
}

func TestPersistFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	store := &brokenStore{Store: snapshot.NewMemoryStore()}
	m := NewManager(store, nil, discardLogger())
	s := openSession(t, m, "home")

	store.fail = true
	id := s.AddBlock(ctx, block.TypeText)
	require.NoError(t, s.UpdateContent(ctx, id, block.Content{"heading": "kept in memory"}))

	b, err := func() (block.Block, error) {
		for _, b := range s.View().Blocks {
			if b.ID == id {
				return b, nil
			}
		}
		return block.Block{}, document.ErrNotFound
	}()
	require.NoError(t, err)
	assert.Equal(t, "kept in memory", b.Content["heading"])

	store.fail = false
	s.AddBlock(ctx, block.TypeText)
	assert.Equal(t, s.View().Blocks, storedDocument(t, store, "home").Blocks())
}

func TestResetUsesTemplate(t *testing.T) {
	ctx := context.Background()
	m, store, notifier := newTestManager(t)
	s := openSession(t, m, "shop")
	require.NoError(t, s.Select("hero-1"))

	require.NoError(t, s.Reset(ctx, document.TemplateStorefront))
	view := s.View()
	assert.Equal(t, "Dr. Sarah Johnson - Creator Storefront", view.PageSettings.Title)
	assert.Empty(t, view.SelectedBlockID)
	assert.Equal(t, view.Blocks, storedDocument(t, store, "shop").Blocks())
	assert.Equal(t, notify.EventReset, notifier.messages[0].Event)

	assert.ErrorIs(t, s.Reset(ctx, "nope"), document.ErrUnknownTemplate)
}

func TestNotificationCarriesCorrelationID(t *testing.T) {
	m, _, notifier := newTestManager(t)
	s := openSession(t, m, "home")

	ctx := WithCorrelationID(context.Background(), "req-1")
	require.NoError(t, s.DeleteBlock(ctx, "text-1"))

	require.Equal(t, 1, notifier.count())
	msg := notifier.messages[0]
	assert.Equal(t, "home", msg.Page)
	assert.Equal(t, "text-1", msg.BlockID)
	assert.Equal(t, "req-1", msg.CorrelationID)
	assert.Equal(t, notify.EventChanged, msg.Event)
}

func TestRecoveredSessionCarriesNotice(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)
	require.NoError(t, store.Put(ctx, "home", []byte(`{"blocks":"broken"}`)))

	s := openSession(t, m, "home")
	view := s.View()
	require.NotNil(t, view.Notice)
	assert.Equal(t, errcode.MalformedSnapshot, view.Notice.Code)
	assert.Equal(t, "home"+snapshot.MalformedSuffix, view.Notice.BackupKey)
	assert.Len(t, view.Blocks, 9)

	require.NoError(t, s.Reset(ctx, ""))
	assert.Nil(t, s.View().Notice)
}

func TestUnknownTypeNotice(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)
	require.NoError(t, store.Put(ctx, "home", []byte(`{"version":1,"blocks":[{"id":"x-1","type":"carousel","content":{},"settings":{}}],"pageSettings":{"title":"","description":""}}`)))

	view := openSession(t, m, "home").View()
	require.NotNil(t, view.Notice)
	assert.Equal(t, errcode.UnknownBlockType, view.Notice.Code)
	require.Len(t, view.Notice.Issues, 1)
	assert.Equal(t, "x-1", view.Notice.Issues[0].BlockID)
}

func TestSessionIsSafeForConcurrentUse(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newTestManager(t)
	s := openSession(t, m, "home")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := s.AddBlock(ctx, block.TypeText)
			_ = s.UpdateContent(ctx, id, block.Content{"heading": "h"})
			_, _ = s.DuplicateBlock(ctx, id)
		}()
	}
	wg.Wait()

	view := s.View()
	assert.Len(t, view.Blocks, 9+40)
	assert.Equal(t, view.Blocks, storedDocument(t, store, "home").Blocks())
}
