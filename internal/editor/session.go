package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"pagecraft/internal/block"
	"pagecraft/internal/document"
	"pagecraft/internal/errcode"
	"pagecraft/internal/metrics"
	"pagecraft/internal/notify"
	"pagecraft/internal/snapshot"
)

// ErrNoSelection is returned by the selection edits when nothing is selected.
var ErrNoSelection = errors.New("no block selected")

const persistTimeout = 5 * time.Second

// Notifier publishes change notifications for a page.
type Notifier interface {
	Notify(ctx context.Context, page string, msg notify.Message) error
}

type correlationKey struct{}

// WithCorrelationID attaches a request correlation id to ctx; it is copied
// into logs and change notifications.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func correlationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// Notice tells the client that the stored page was not restored as is.
type Notice struct {
	Code      int              `json:"code"`
	Message   string           `json:"message"`
	BackupKey string           `json:"backupKey,omitempty"`
	Issues    []snapshot.Issue `json:"issues,omitempty"`
}

// View is a read-only copy of the session state.
type View struct {
	Page            string                `json:"page"`
	Version         int                   `json:"version"`
	Blocks          []block.Block         `json:"blocks"`
	PageSettings    document.PageSettings `json:"pageSettings"`
	SelectedBlockID string                `json:"selectedBlockId,omitempty"`
	Notice          *Notice               `json:"notice,omitempty"`
}

// Session owns the document and selection of one page. Every successful
// mutation is followed by a snapshot write and a change notification; write
// failures are logged and counted but never undo the mutation.
type Session struct {
	mu       sync.Mutex
	page     string
	doc      *document.Document
	sel      Selection
	notice   *Notice
	store    snapshot.Store
	notifier Notifier
	logger   *slog.Logger
	opts     []document.Option
}

func newSession(page string, doc *document.Document, report snapshot.Report, store snapshot.Store, notifier Notifier, logger *slog.Logger, opts []document.Option) *Session {
	s := &Session{
		page:     page,
		store:    store,
		notifier: notifier,
		logger:   logger.With(slog.String("page", page)),
		notice:   noticeFor(report),
		opts:     opts,
	}
	s.attach(doc)
	return s
}

func noticeFor(report snapshot.Report) *Notice {
	if report.Recovered {
		msg := "stored page could not be restored, started from the default template"
		if report.Cause != nil {
			msg = fmt.Sprintf("%s: %v", msg, report.Cause)
		}
		return &Notice{Code: errcode.MalformedSnapshot, Message: msg, BackupKey: report.BackupKey}
	}
	if len(report.Issues) == 0 {
		return nil
	}
	code := errcode.InvalidRequest
	for _, issue := range report.Issues {
		if issue.Kind == snapshot.IssueUnknownType {
			code = errcode.UnknownBlockType
			break
		}
	}
	return &Notice{Code: code, Message: "stored page loaded with warnings", Issues: report.Issues}
}

func (s *Session) attach(doc *document.Document) {
	s.doc = doc
	s.sel.Deselect()
	doc.OnBlockDeleted(s.sel.OnBlockDeleted)
}

// Page returns the page key.
func (s *Session) Page() string {
	return s.page
}

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	selected, _ := s.sel.Selected()
	return View{
		Page:            s.page,
		Version:         snapshot.CurrentVersion,
		Blocks:          s.doc.Blocks(),
		PageSettings:    s.doc.PageSettings(),
		SelectedBlockID: selected,
		Notice:          s.notice,
	}
}

// Encode returns the snapshot blob of the current document.
func (s *Session) Encode() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot.Encode(s.doc)
}

// AddBlock appends a block of type t and returns its id.
func (s *Session) AddBlock(ctx context.Context, t block.Type) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.doc.AddBlock(t)
	s.commitLocked(ctx, "add", id, notify.EventChanged)
	return id
}

// UpdateContent shallow-merges partial into the block content.
func (s *Session) UpdateContent(ctx context.Context, id string, partial block.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateContentLocked(ctx, id, partial)
}

func (s *Session) updateContentLocked(ctx context.Context, id string, partial block.Content) error {
	if err := s.doc.UpdateContent(id, partial); err != nil {
		return err
	}
	s.commitLocked(ctx, "update_content", id, notify.EventChanged)
	return nil
}

// UpdateSettings shallow-merges p into the block settings.
func (s *Session) UpdateSettings(ctx context.Context, id string, p block.SettingsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateSettingsLocked(ctx, id, p)
}

func (s *Session) updateSettingsLocked(ctx context.Context, id string, p block.SettingsPatch) error {
	if err := s.doc.UpdateSettings(id, p); err != nil {
		return err
	}
	s.commitLocked(ctx, "update_settings", id, notify.EventChanged)
	return nil
}

// DeleteBlock removes the block; a selection pointing at it is cleared.
func (s *Session) DeleteBlock(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.doc.DeleteBlock(id); err != nil {
		return err
	}
	s.commitLocked(ctx, "delete", id, notify.EventChanged)
	return nil
}

// MoveBlock swaps the block with its neighbour. A boundary move changes
// nothing and is not persisted.
func (s *Session) MoveBlock(ctx context.Context, id string, dir document.Direction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved, err := s.doc.MoveBlock(id, dir)
	if err != nil || !moved {
		return moved, err
	}
	s.commitLocked(ctx, "move", id, notify.EventChanged)
	return true, nil
}

// DuplicateBlock copies the block right after itself and returns the new id.
func (s *Session) DuplicateBlock(ctx context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dup, err := s.doc.DuplicateBlock(id)
	if err != nil {
		return "", err
	}
	s.commitLocked(ctx, "duplicate", dup, notify.EventChanged)
	return dup, nil
}

// UpdatePageSettings merges p into the page settings.
func (s *Session) UpdatePageSettings(ctx context.Context, p document.PageSettingsPatch) document.PageSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	page := s.doc.UpdatePageSettings(p)
	s.commitLocked(ctx, "update_page_settings", "", notify.EventChanged)
	return page
}

// Select marks id as the block under edit.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.doc.Contains(id) {
		return fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	s.sel.set(id)
	return nil
}

// Deselect clears the selection.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel.Deselect()
}

// Selected returns the selected block id, if any.
func (s *Session) Selected() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Selected()
}

// EditSelectedContent forwards partial to UpdateContent of the selected block.
func (s *Session) EditSelectedContent(ctx context.Context, partial block.Content) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sel.Selected()
	if !ok {
		return "", ErrNoSelection
	}
	return id, s.updateContentLocked(ctx, id, partial)
}

// EditSelectedSettings forwards p to UpdateSettings of the selected block.
func (s *Session) EditSelectedSettings(ctx context.Context, p block.SettingsPatch) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.sel.Selected()
	if !ok {
		return "", ErrNoSelection
	}
	return id, s.updateSettingsLocked(ctx, id, p)
}

// Reset replaces the document with a fresh copy of the named template.
func (s *Session) Reset(ctx context.Context, template string) error {
	doc, err := document.FromTemplate(template, s.opts...)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attach(doc)
	s.notice = nil
	s.commitLocked(ctx, "reset", "", notify.EventReset)
	return nil
}

// Replace swaps in doc, for example one decoded from an imported snapshot.
func (s *Session) Replace(ctx context.Context, doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attach(doc)
	s.notice = nil
	s.commitLocked(ctx, "replace", "", notify.EventReset)
}

// reload swaps in doc as stored by another process. The selection survives
// when its block still exists.
func (s *Session) reload(doc *document.Document, report snapshot.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	selected, ok := s.sel.Selected()
	s.attach(doc)
	if ok && doc.Contains(selected) {
		s.sel.set(selected)
	}
	s.notice = noticeFor(report)
}

func (s *Session) commitLocked(ctx context.Context, op, blockID, event string) {
	metrics.ObserveMutation(op)

	cid := correlationID(ctx)
	log := s.logger.With(slog.String("op", op), slog.String("correlation_id", cid))
	if blockID != "" {
		log = log.With(slog.String("block_id", blockID))
	}

	// 写入不跟随请求取消，避免客户端断开导致快照落后于内存。
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := snapshot.Save(writeCtx, s.store, s.page, s.doc); err != nil {
		metrics.ObservePersistFailure()
		log.Error("persist snapshot failed", slog.Any("error", err))
	}

	if s.notifier == nil {
		return
	}
	msg := notify.Message{Event: event, BlockID: blockID, CorrelationID: cid, ErrorCode: errcode.OK}
	if err := s.notifier.Notify(writeCtx, s.page, msg); err != nil {
		log.Warn("publish change notification failed", slog.Any("error", err))
	}
}
