package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"

	"pagecraft/internal/block"
)

var (
	// ErrNotFound 表示 block id 不在当前文档中。
	ErrNotFound = errors.New("block not found")
	// ErrInvalidContent is returned when a known content key holds the wrong shape.
	ErrInvalidContent = errors.New("invalid block content")
	// ErrInvalidSettings is returned for settings outside their allowed values.
	ErrInvalidSettings = errors.New("invalid block settings")
	// ErrInvalidDirection is returned for a move direction other than up or down.
	ErrInvalidDirection = errors.New("invalid move direction")
	// ErrDuplicateID is returned when a document is built from blocks sharing an id.
	ErrDuplicateID = errors.New("duplicate block id")
)

// Direction is the way MoveBlock shifts a block.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection validates a direction coming from a request.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case Up, Down:
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// PageSettings holds the page-level metadata stored next to the blocks.
type PageSettings struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// PageSettingsPatch is a partial PageSettings update.
type PageSettingsPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Document is the ordered block list of one page. It is not safe for
// concurrent use; callers serialize access.
type Document struct {
	blocks   []block.Block
	page     PageSettings
	token    func() string
	onDelete []func(id string)
}

// Option configures a Document.
type Option func(*Document)

// WithTokenSource replaces the ULID token used to build new block ids.
func WithTokenSource(fn func() string) Option {
	return func(d *Document) {
		if fn != nil {
			d.token = fn
		}
	}
}

func ulidToken() string {
	return strings.ToLower(ulid.Make().String())
}

// New builds a document from existing blocks. Blocks are deep-copied and
// must carry distinct, non-empty ids.
func New(page PageSettings, blocks []block.Block, opts ...Option) (*Document, error) {
	d := &Document{
		blocks: make([]block.Block, 0, len(blocks)),
		page:   page,
		token:  ulidToken,
	}
	for _, opt := range opts {
		opt(d)
	}

	seen := make(map[string]struct{}, len(blocks))
	for i, b := range blocks {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: block %d has no id", ErrDuplicateID, i)
		}
		if _, ok := seen[b.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, b.ID)
		}
		seen[b.ID] = struct{}{}
		d.blocks = append(d.blocks, b.Clone())
	}
	return d, nil
}

// OnBlockDeleted registers fn to run after every successful DeleteBlock.
func (d *Document) OnBlockDeleted(fn func(id string)) {
	if fn != nil {
		d.onDelete = append(d.onDelete, fn)
	}
}

// Len returns the number of blocks.
func (d *Document) Len() int {
	return len(d.blocks)
}

// Blocks returns a deep copy of the blocks in document order.
func (d *Document) Blocks() []block.Block {
	out := make([]block.Block, len(d.blocks))
	for i, b := range d.blocks {
		out[i] = b.Clone()
	}
	return out
}

// Block returns a deep copy of the block with the given id.
func (d *Document) Block(id string) (block.Block, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return block.Block{}, notFound(id)
	}
	return d.blocks[i].Clone(), nil
}

// IndexOf returns the position of id, or -1.
func (d *Document) IndexOf(id string) int {
	for i := range d.blocks {
		if d.blocks[i].ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether id is in the document.
func (d *Document) Contains(id string) bool {
	return d.IndexOf(id) >= 0
}

func (d *Document) PageSettings() PageSettings {
	return d.page
}

// UpdatePageSettings merges the non-nil fields of p.
func (d *Document) UpdatePageSettings(p PageSettingsPatch) PageSettings {
	if p.Title != nil {
		d.page.Title = block.NormalizeText(*p.Title)
	}
	if p.Description != nil {
		d.page.Description = block.NormalizeText(*p.Description)
	}
	return d.page
}

// AddBlock appends a block of type t with default content and settings and
// returns its id. Unknown types get empty content.
func (d *Document) AddBlock(t block.Type) string {
	t = block.Type(block.NormalizeText(string(t)))
	b := block.Block{
		ID:       d.nextID(t),
		Type:     t,
		Content:  block.DefaultContentFor(t),
		Settings: block.DefaultSettings(),
	}
	d.blocks = append(d.blocks, b)
	return b.ID
}

// UpdateContent shallow-merges partial into the block's content. Known keys
// are checked against the registry before anything changes.
func (d *Document) UpdateContent(id string, partial block.Content) error {
	i := d.IndexOf(id)
	if i < 0 {
		return notFound(id)
	}
	b := &d.blocks[i]

	normalized, err := block.NormalizeContent(partial)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if issues := block.ValidateContent(b.Type, normalized); len(issues) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidContent, block.JoinIssues(issues))
	}

	if b.Content == nil {
		b.Content = make(block.Content, len(normalized))
	}
	for k, v := range normalized {
		b.Content[k] = v
	}
	return nil
}

// UpdateSettings shallow-merges p into the block's settings.
func (d *Document) UpdateSettings(id string, p block.SettingsPatch) error {
	i := d.IndexOf(id)
	if i < 0 {
		return notFound(id)
	}
	if p.Alignment != nil && !p.Alignment.Valid() {
		return fmt.Errorf("%w: alignment %q", ErrInvalidSettings, *p.Alignment)
	}
	d.blocks[i].Settings = d.blocks[i].Settings.Apply(p)
	return nil
}

// DeleteBlock removes the block and notifies deletion listeners.
func (d *Document) DeleteBlock(id string) error {
	i := d.IndexOf(id)
	if i < 0 {
		return notFound(id)
	}
	d.blocks = append(d.blocks[:i], d.blocks[i+1:]...)
	for _, fn := range d.onDelete {
		fn(id)
	}
	return nil
}

// MoveBlock swaps the block with its neighbour in dir. Moving past either end
// leaves the order unchanged and reports false.
func (d *Document) MoveBlock(id string, dir Direction) (bool, error) {
	if dir != Up && dir != Down {
		return false, fmt.Errorf("%w: %q", ErrInvalidDirection, dir)
	}
	i := d.IndexOf(id)
	if i < 0 {
		return false, notFound(id)
	}

	j := i - 1
	if dir == Down {
		j = i + 1
	}
	if j < 0 || j >= len(d.blocks) {
		return false, nil
	}
	d.blocks[i], d.blocks[j] = d.blocks[j], d.blocks[i]
	return true, nil
}

// DuplicateBlock inserts a deep copy of the block right after it and returns
// the copy's id.
func (d *Document) DuplicateBlock(id string) (string, error) {
	i := d.IndexOf(id)
	if i < 0 {
		return "", notFound(id)
	}
	dup := d.blocks[i].Clone()
	dup.ID = d.nextID(dup.Type)

	d.blocks = append(d.blocks, block.Block{})
	copy(d.blocks[i+2:], d.blocks[i+1:])
	d.blocks[i+1] = dup
	return dup.ID, nil
}

func (d *Document) nextID(t block.Type) string {
	prefix := string(t)
	if prefix == "" {
		prefix = "block"
	}
	for {
		id := prefix + "-" + d.token()
		if !d.Contains(id) {
			return id
		}
	}
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
