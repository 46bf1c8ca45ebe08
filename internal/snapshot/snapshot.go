package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"pagecraft/internal/block"
	"pagecraft/internal/document"
)

// CurrentVersion is written into every encoded snapshot. Blobs without a
// version field are legacy (version 0) and read the same way.
const CurrentVersion = 1

// ErrMalformedSnapshot 表示存储的快照无法解析或结构不合法。
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// Snapshot is the persisted form of a document.
type Snapshot struct {
	Version      int                   `json:"version"`
	Blocks       []block.Block         `json:"blocks"`
	PageSettings document.PageSettings `json:"pageSettings"`
}

// IssueKind classifies advisory load issues.
type IssueKind string

const (
	IssueUnknownType     IssueKind = "unknown_type"
	IssueInvalidField    IssueKind = "invalid_field"
	IssueInvalidSettings IssueKind = "invalid_settings"
	IssueMissingBlocks   IssueKind = "missing_blocks"
	IssueMissingPage     IssueKind = "missing_page_settings"
	IssueNewerVersion    IssueKind = "newer_version"
)

// Issue is an advisory finding about a block that was still accepted.
type Issue struct {
	Kind    IssueKind `json:"kind"`
	BlockID string    `json:"blockId,omitempty"`
	Message string    `json:"message"`
}

// Report describes how a document was obtained from storage.
type Report struct {
	Version int `json:"version"`
	// Seeded is set when nothing was stored and the default template was used.
	Seeded bool `json:"seeded"`
	// Recovered is set when a stored blob was unreadable and the default
	// template replaced it.
	Recovered bool    `json:"recovered"`
	Cause     error   `json:"-"`
	BackupKey string  `json:"backupKey,omitempty"`
	Issues    []Issue `json:"issues,omitempty"`
}

// Encode serializes d. Output is deterministic for equal documents.
func Encode(d *document.Document) ([]byte, error) {
	s := Snapshot{
		Version:      CurrentVersion,
		Blocks:       d.Blocks(),
		PageSettings: d.PageSettings(),
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

type rawSnapshot struct {
	Version      *int            `json:"version"`
	Blocks       json.RawMessage `json:"blocks"`
	PageSettings json.RawMessage `json:"pageSettings"`
}

// Decode parses a stored blob. A structural problem returns an error
// wrapping ErrMalformedSnapshot; shape mismatches inside block content are
// reported as issues and the blocks are kept as they are.
func Decode(blob []byte, opts ...document.Option) (*document.Document, Report, error) {
	var report Report

	if !bytes.HasPrefix(bytes.TrimSpace(blob), []byte("{")) {
		return nil, report, malformed(errors.New("snapshot is not a JSON object"))
	}
	var raw rawSnapshot
	if err := json.Unmarshal(blob, &raw); err != nil {
		return nil, report, malformed(err)
	}
	if raw.Version != nil {
		report.Version = *raw.Version
		if report.Version < 0 {
			return nil, report, malformed(fmt.Errorf("negative version %d", report.Version))
		}
		if report.Version > CurrentVersion {
			report.Issues = append(report.Issues, Issue{
				Kind:    IssueNewerVersion,
				Message: fmt.Sprintf("snapshot version %d is newer than %d", report.Version, CurrentVersion),
			})
		}
	}

	fallback := document.DefaultTemplate()

	blocks := fallback.Blocks()
	if isAbsent(raw.Blocks) {
		report.Issues = append(report.Issues, Issue{Kind: IssueMissingBlocks, Message: "no blocks stored, using default template blocks"})
	} else {
		blocks = nil
		if err := decodeBlocks(raw.Blocks, &blocks); err != nil {
			return nil, report, malformed(err)
		}
	}

	page := fallback.PageSettings()
	if isAbsent(raw.PageSettings) {
		report.Issues = append(report.Issues, Issue{Kind: IssueMissingPage, Message: "no page settings stored, using defaults"})
	} else if err := json.Unmarshal(raw.PageSettings, &page); err != nil {
		return nil, report, malformed(fmt.Errorf("page settings: %w", err))
	}

	for _, b := range blocks {
		report.Issues = append(report.Issues, inspect(b)...)
	}

	d, err := document.New(page, blocks, opts...)
	if err != nil {
		return nil, report, malformed(err)
	}
	return d, report, nil
}

func decodeBlocks(data json.RawMessage, out *[]block.Block) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("blocks: %w", err)
	}
	blocks := make([]block.Block, 0, len(items))
	for i, item := range items {
		if !bytes.HasPrefix(bytes.TrimSpace(item), []byte("{")) {
			return fmt.Errorf("block %d is not an object", i)
		}
		var b block.Block
		if err := json.Unmarshal(item, &b); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	*out = blocks
	return nil
}

func inspect(b block.Block) []Issue {
	var issues []Issue
	if !block.Known(b.Type) {
		issues = append(issues, Issue{
			Kind:    IssueUnknownType,
			BlockID: b.ID,
			Message: fmt.Sprintf("block type %q is not registered", b.Type),
		})
	}
	for _, fi := range block.ValidateContent(b.Type, b.Content) {
		issues = append(issues, Issue{Kind: IssueInvalidField, BlockID: b.ID, Message: fi.String()})
	}
	if a := b.Settings.Alignment; a != "" && !a.Valid() {
		issues = append(issues, Issue{
			Kind:    IssueInvalidSettings,
			BlockID: b.ID,
			Message: fmt.Sprintf("alignment %q is not left, center or right", a),
		})
	}
	return issues
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func malformed(err error) error {
	return fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
}
