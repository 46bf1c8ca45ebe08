package block

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Type 标识区块种类。未知的 Type 依旧可以保存和回读，只是没有默认内容。
type Type string

const (
	TypeHero         Type = "hero"
	TypeText         Type = "text"
	TypeFeatures     Type = "features"
	TypeTestimonials Type = "testimonials"
	TypeCTA          Type = "cta"
	TypeForm         Type = "form"
	TypeImage        Type = "image"
	TypeVideo        Type = "video"
	TypePricing      Type = "pricing"
	TypeBonuses      Type = "bonuses"
	TypeTimeline     Type = "timeline"
	TypeFooter       Type = "footer"
)

// Alignment is the horizontal alignment hint of a block.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Valid reports whether a is one of left, center or right.
func (a Alignment) Valid() bool {
	switch a {
	case AlignLeft, AlignCenter, AlignRight:
		return true
	}
	return false
}

// Settings holds the presentation hints every block carries regardless of type.
type Settings struct {
	BackgroundColor string    `json:"backgroundColor"`
	TextColor       string    `json:"textColor"`
	Padding         string    `json:"padding"`
	Alignment       Alignment `json:"alignment"`
}

// SettingsPatch is a partial Settings update; nil fields are left untouched.
type SettingsPatch struct {
	BackgroundColor *string    `json:"backgroundColor,omitempty"`
	TextColor       *string    `json:"textColor,omitempty"`
	Padding         *string    `json:"padding,omitempty"`
	Alignment       *Alignment `json:"alignment,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p SettingsPatch) Empty() bool {
	return p.BackgroundColor == nil && p.TextColor == nil && p.Padding == nil && p.Alignment == nil
}

// Apply returns s with the non-nil fields of p merged in.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.BackgroundColor != nil {
		s.BackgroundColor = NormalizeText(*p.BackgroundColor)
	}
	if p.TextColor != nil {
		s.TextColor = NormalizeText(*p.TextColor)
	}
	if p.Padding != nil {
		s.Padding = NormalizeText(*p.Padding)
	}
	if p.Alignment != nil {
		s.Alignment = *p.Alignment
	}
	return s
}

// DefaultSettings 是新建区块时使用的展示设置。
func DefaultSettings() Settings {
	return Settings{
		BackgroundColor: "bg-white",
		TextColor:       "text-gray-800",
		Padding:         "py-16",
		Alignment:       AlignCenter,
	}
}

// Content is the type-dependent payload of a block, keyed by field name.
// Values are kept in their JSON-decoded form: string, bool, float64, nil,
// []any and map[string]any.
type Content map[string]any

// Clone returns a deep copy of c.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case Content:
		return t.Clone()
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// NormalizeText 按 encoding/json 的方式把每个非法 UTF-8 字节替换为 U+FFFD，
// 使字符串在保存后回读不变。
func NormalizeText(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.Map(func(r rune) rune { return r }, s)
}

// NormalizeContent 把任意 Go 值转换成 JSON 解码后的标准形式，
// 保证内存中的内容与持久化后回读的内容完全一致。
func NormalizeContent(c Content) (Content, error) {
	if c == nil {
		return Content{}, nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}
	var out Content
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return out, nil
}

// Block is one typed unit of page content.
type Block struct {
	ID       string
	Type     Type
	Content  Content
	Settings Settings
	// Extra keeps unrecognised top-level fields of a stored block so they
	// survive a load/save cycle.
	Extra map[string]json.RawMessage
}

// Clone returns a deep copy of b.
func (b Block) Clone() Block {
	out := b
	out.Content = b.Content.Clone()
	if b.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(b.Extra))
		for k, v := range b.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

type blockFields struct {
	ID       string   `json:"id"`
	Type     Type     `json:"type"`
	Content  Content  `json:"content"`
	Settings Settings `json:"settings"`
}

var knownBlockKeys = []string{"id", "type", "content", "settings"}

// MarshalJSON writes the four block fields plus any preserved extra fields.
func (b Block) MarshalJSON() ([]byte, error) {
	fields := blockFields{ID: b.ID, Type: b.Type, Content: b.Content, Settings: b.Settings}
	if len(b.Extra) == 0 {
		return json.Marshal(fields)
	}

	out := make(map[string]json.RawMessage, len(b.Extra)+len(knownBlockKeys))
	for k, v := range b.Extra {
		out[k] = v
	}
	known := map[string]any{
		"id":       fields.ID,
		"type":     fields.Type,
		"content":  fields.Content,
		"settings": fields.Settings,
	}
	for k, v := range known {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode block %s: %w", k, err)
		}
		out[k] = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a block record, keeping unknown keys in Extra.
func (b *Block) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var fields blockFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, k := range knownBlockKeys {
		delete(raw, k)
	}

	*b = Block{
		ID:       fields.ID,
		Type:     fields.Type,
		Content:  fields.Content,
		Settings: fields.Settings,
	}
	if len(raw) > 0 {
		b.Extra = make(map[string]json.RawMessage, len(raw))
		for k, v := range raw {
			b.Extra[k] = bytes.Clone(v)
		}
	}
	return nil
}
