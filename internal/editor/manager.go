package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	"golang.org/x/sync/singleflight"

	"pagecraft/internal/document"
	"pagecraft/internal/metrics"
	"pagecraft/internal/notify"
	"pagecraft/internal/snapshot"
)

// ErrInvalidPage is returned for page keys outside [a-z0-9_-], 1-64 chars.
var ErrInvalidPage = errors.New("invalid page key")

var pageKeyPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidPage reports whether page can be used as a page key.
func ValidPage(page string) bool {
	return pageKeyPattern.MatchString(page)
}

// Manager keeps one Session per page, loading it from the store on first use.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	loads    singleflight.Group
	store    snapshot.Store
	notifier Notifier
	logger   *slog.Logger
	opts     []document.Option
}

// NewManager builds a Manager. notifier may be nil.
func NewManager(store snapshot.Store, notifier Notifier, logger *slog.Logger, opts ...document.Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions: map[string]*Session{},
		store:    store,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
	}
}

// Session returns the session of page, restoring it from the store the
// first time the page is opened. Concurrent first opens share one load.
func (m *Manager) Session(ctx context.Context, page string) (*Session, error) {
	if !ValidPage(page) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPage, page)
	}
	if s, ok := m.cached(page); ok {
		return s, nil
	}

	v, err, _ := m.loads.Do(page, func() (interface{}, error) {
		if s, ok := m.cached(page); ok {
			return s, nil
		}
		doc, report, err := snapshot.Load(ctx, m.store, page, m.opts...)
		if err != nil {
			return nil, err
		}
		m.logLoad(page, report)

		s := newSession(page, doc, report, m.store, m.notifier, m.logger, m.opts)
		m.mu.Lock()
		m.sessions[page] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) cached(page string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[page]
	return s, ok
}

func (m *Manager) logLoad(page string, report snapshot.Report) {
	log := m.logger.With(slog.String("page", page))
	switch {
	case report.Recovered:
		metrics.ObserveRecovery()
		log.Warn("stored snapshot is malformed, using default template",
			slog.Any("error", report.Cause),
			slog.String("backup_key", report.BackupKey),
		)
	case report.Seeded:
		log.Info("no stored snapshot, seeded default template")
	default:
		log.Info("snapshot loaded",
			slog.Int("version", report.Version),
			slog.Int("issues", len(report.Issues)),
		)
	}
}

// Import decodes blob strictly and replaces the document of page with it.
func (m *Manager) Import(ctx context.Context, page string, blob []byte) (snapshot.Report, error) {
	doc, report, err := snapshot.Decode(blob, m.opts...)
	if err != nil {
		return report, err
	}
	s, err := m.Session(ctx, page)
	if err != nil {
		return report, err
	}
	s.Replace(ctx, doc)
	return report, nil
}

// Evict drops the cached session of page so the next access reloads it.
func (m *Manager) Evict(page string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, page)
}

// Refresh reloads the open session of page from the store, replacing its
// document without writing or notifying. Pages that are not open are left
// alone. When the reload fails the session is evicted so the next access
// retries.
func (m *Manager) Refresh(ctx context.Context, page string) error {
	s, ok := m.cached(page)
	if !ok {
		return nil
	}
	doc, report, err := snapshot.Load(ctx, m.store, page, m.opts...)
	if err != nil {
		m.Evict(page)
		return err
	}
	m.logLoad(page, report)
	s.reload(doc, report)
	return nil
}

// HandleRemote applies a notification published by another process, such as
// the admin tool importing or resetting a page. Messages from this process
// are filtered out by the listener.
func (m *Manager) HandleRemote(ctx context.Context, msg notify.Message) {
	switch msg.Event {
	case notify.EventChanged, notify.EventReset:
	default:
		return
	}
	if !ValidPage(msg.Page) {
		return
	}
	if err := m.Refresh(ctx, msg.Page); err != nil {
		m.logger.Warn("reload page after remote change failed",
			slog.String("page", msg.Page),
			slog.String("origin", msg.Origin),
			slog.Any("error", err),
		)
	}
}
