package block

import (
	"fmt"
	"sort"
	"strings"
)

// FieldKind describes the value shape a content field must hold.
type FieldKind string

const (
	KindString     FieldKind = "string"
	KindText       FieldKind = "text"
	KindBool       FieldKind = "bool"
	KindNumber     FieldKind = "number"
	KindStringList FieldKind = "string_list"
	KindRecordList FieldKind = "record_list"
)

// Field declares one content field. Record lists also declare the fields of
// each record.
type Field struct {
	Name   string    `json:"name"`
	Label  string    `json:"label"`
	Kind   FieldKind `json:"kind"`
	Fields []Field   `json:"fields,omitempty"`
}

// Shape is the declared field set of a block type.
type Shape struct {
	Type   Type    `json:"type"`
	Fields []Field `json:"fields"`
}

// Field looks up a declared field by name.
func (s Shape) Field(name string) (Field, bool) {
	return findField(s.Fields, name)
}

func findField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Entry is one item of the "add block" palette.
type Entry struct {
	Type        Type   `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

type definition struct {
	entry    Entry
	fields   []Field
	defaults func() Content
}

var (
	formFieldRecord = []Field{
		{Name: "label", Label: "Label", Kind: KindString},
		{Name: "placeholder", Label: "Placeholder", Kind: KindString},
		{Name: "required", Label: "Required", Kind: KindBool},
	}

	definitions = []definition{
		{
			entry: Entry{Type: TypeHero, Label: "Hero Section", Description: "Main header with form"},
			fields: []Field{
				{Name: "title", Label: "Title", Kind: KindString},
				{Name: "subtitle", Label: "Subtitle", Kind: KindText},
				{Name: "ctaText", Label: "CTA Text", Kind: KindString},
				{Name: "formTitle", Label: "Form Title", Kind: KindString},
				{Name: "formFields", Label: "Form Fields", Kind: KindRecordList, Fields: formFieldRecord},
			},
			defaults: func() Content {
				return Content{
					"title":     "Your Compelling Headline",
					"subtitle":  "A powerful subtitle that converts",
					"ctaText":   "Get Started Now",
					"formTitle": "Sign Up Today",
					"formFields": []any{
						map[string]any{"label": "Name", "placeholder": "Your name", "required": true},
						map[string]any{"label": "Email", "placeholder": "Your email", "required": true},
					},
				}
			},
		},
		{
			entry: Entry{Type: TypeText, Label: "Text Block", Description: "Heading and paragraphs"},
			fields: []Field{
				{Name: "heading", Label: "Heading", Kind: KindString},
				{Name: "subheading", Label: "Subheading", Kind: KindString},
				{Name: "text", Label: "Text Content", Kind: KindText},
			},
			defaults: func() Content {
				return Content{
					"heading":    "Section Heading",
					"subheading": "Optional subheading",
					"text":       "Your content goes here. You can write multiple paragraphs to convey your message effectively.",
				}
			},
		},
		{
			entry: Entry{Type: TypeFeatures, Label: "Features", Description: "Feature grid with icons"},
			fields: []Field{
				{Name: "heading", Label: "Heading", Kind: KindString},
				{Name: "features", Label: "Features", Kind: KindRecordList, Fields: []Field{
					{Name: "icon", Label: "Icon", Kind: KindString},
					{Name: "title", Label: "Title", Kind: KindString},
					{Name: "description", Label: "Description", Kind: KindText},
				}},
			},
			defaults: func() Content {
				return Content{
					"heading": "Our Amazing Features",
					"features": []any{
						map[string]any{"icon": "check", "title": "Feature One", "description": "Description of this feature"},
						map[string]any{"icon": "star", "title": "Feature Two", "description": "Description of this feature"},
						map[string]any{"icon": "target", "title": "Feature Three", "description": "Description of this feature"},
					},
				}
			},
		},
		{
			entry: Entry{Type: TypeTestimonials, Label: "Testimonials", Description: "Social proof section"},
			fields: []Field{
				{Name: "heading", Label: "Heading", Kind: KindString},
				{Name: "bulletPoints", Label: "Bullet Points", Kind: KindStringList},
			},
			defaults: func() Content {
				return Content{
					"heading": "What People Say",
					"bulletPoints": []any{
						"First testimonial or benefit point",
						"Second testimonial or benefit point",
						"Third testimonial or benefit point",
					},
				}
			},
		},
		{
			entry: Entry{Type: TypeCTA, Label: "Call to Action", Description: "Action-focused section"},
			fields: []Field{
				{Name: "heading", Label: "Heading", Kind: KindString},
				{Name: "text", Label: "Text", Kind: KindText},
				{Name: "ctaText", Label: "CTA Text", Kind: KindString},
				{Name: "hasImage", Label: "Include Image", Kind: KindBool},
				{Name: "imageDescription", Label: "Image Description", Kind: KindString},
			},
			defaults: func() Content {
				return Content{
					"heading":  "Ready to Get Started?",
					"text":     "Join thousands of satisfied customers today.",
					"ctaText":  "Get Started Now",
					"hasImage": false,
				}
			},
		},
		{
			entry: Entry{Type: TypeForm, Label: "Form", Description: "Standalone form"},
			fields: []Field{
				{Name: "formTitle", Label: "Form Title", Kind: KindString},
				{Name: "formFields", Label: "Form Fields", Kind: KindRecordList, Fields: formFieldRecord},
				{Name: "submitText", Label: "Submit Text", Kind: KindString},
			},
			defaults: func() Content {
				return Content{
					"formTitle": "Sign Up Today",
					"formFields": []any{
						map[string]any{"label": "Name", "placeholder": "Your name", "required": true},
						map[string]any{"label": "Email", "placeholder": "Your email", "required": true},
					},
					"submitText": "Submit",
				}
			},
		},
		{
			entry: Entry{Type: TypeImage, Label: "Image", Description: "Image with caption"},
			fields: []Field{
				{Name: "url", Label: "Image", Kind: KindString},
				{Name: "alt", Label: "Alt Text", Kind: KindString},
				{Name: "caption", Label: "Caption", Kind: KindString},
			},
			defaults: func() Content {
				return Content{"url": "", "alt": "Image description", "caption": ""}
			},
		},
		{
			entry: Entry{Type: TypeVideo, Label: "Video", Description: "Video embed"},
			fields: []Field{
				{Name: "url", Label: "Video URL", Kind: KindString},
				{Name: "title", Label: "Title", Kind: KindString},
				{Name: "description", Label: "Description", Kind: KindText},
			},
			defaults: func() Content {
				return Content{"url": "", "title": "Video Title", "description": "Video description"}
			},
		},
		{
			entry: Entry{Type: TypePricing, Label: "Pricing", Description: "Pricing tables"},
			fields: []Field{
				{Name: "title", Label: "Title", Kind: KindString},
				{Name: "price", Label: "Price", Kind: KindString},
				{Name: "features", Label: "Included Features", Kind: KindStringList},
				{Name: "ctaText", Label: "Button Text", Kind: KindString},
			},
			defaults: func() Content {
				return Content{
					"title":    "Course Pricing",
					"price":    "$197",
					"features": []any{"Feature 1", "Feature 2", "Feature 3"},
					"ctaText":  "Purchase Now",
				}
			},
		},
		{
			entry: Entry{Type: TypeBonuses, Label: "Bonuses", Description: "Bonus offers section"},
			fields: []Field{
				{Name: "heading", Label: "Heading", Kind: KindString},
				{Name: "subtitle", Label: "Subtitle", Kind: KindString},
				{Name: "bonuses", Label: "Bonuses", Kind: KindRecordList, Fields: []Field{
					{Name: "title", Label: "Title", Kind: KindString},
					{Name: "value", Label: "Value", Kind: KindString},
					{Name: "description", Label: "Description", Kind: KindText},
				}},
			},
			defaults: func() Content {
				return Content{
					"heading":  "🎁 Exclusive Bonuses",
					"subtitle": "Limited time offer",
					"bonuses": []any{
						map[string]any{"title": "Bonus One", "value": "$100", "description": "Description of bonus"},
						map[string]any{"title": "Bonus Two", "value": "$200", "description": "Description of bonus"},
					},
				}
			},
		},
		{
			entry: Entry{Type: TypeTimeline, Label: "Timeline", Description: "Process timeline"},
			fields: []Field{
				{Name: "heading", Label: "Heading", Kind: KindString},
				{Name: "timelineItems", Label: "Timeline Items", Kind: KindRecordList, Fields: []Field{
					{Name: "phase", Label: "Phase", Kind: KindString},
					{Name: "title", Label: "Title", Kind: KindString},
					{Name: "description", Label: "Description", Kind: KindText},
				}},
			},
			defaults: func() Content {
				return Content{
					"heading": "Your Journey",
					"timelineItems": []any{
						map[string]any{"phase": "Step 1", "title": "Getting Started", "description": "Begin your journey"},
						map[string]any{"phase": "Step 2", "title": "Making Progress", "description": "See results"},
						map[string]any{"phase": "Step 3", "title": "Success", "description": "Achieve your goals"},
					},
				}
			},
		},
		{
			entry: Entry{Type: TypeFooter, Label: "Footer", Description: "Page footer"},
			fields: []Field{
				{Name: "heading", Label: "Heading", Kind: KindString},
				{Name: "text", Label: "Text", Kind: KindText},
				{Name: "ctaText", Label: "CTA Text", Kind: KindString},
			},
			defaults: func() Content {
				return Content{
					"heading": "Ready to Transform?",
					"text":    "Join us today and start your journey.",
					"ctaText": "Get Started",
				}
			},
		},
	}

	index = buildIndex(definitions)
)

func buildIndex(defs []definition) map[Type]*definition {
	m := make(map[Type]*definition, len(defs))
	for i := range defs {
		m[defs[i].entry.Type] = &defs[i]
	}
	return m
}

// Known reports whether the registry has a definition for t.
func Known(t Type) bool {
	_, ok := index[t]
	return ok
}

// Catalog returns the palette in display order.
func Catalog() []Entry {
	out := make([]Entry, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d.entry)
	}
	return out
}

// DefaultContentFor returns fresh default content for t. Unknown types get an
// empty Content instead of an error so new types can be stored before they
// are registered.
func DefaultContentFor(t Type) Content {
	d, ok := index[t]
	if !ok {
		return Content{}
	}
	return d.defaults()
}

// FieldShapeFor returns the declared shape of t, empty for unknown types.
func FieldShapeFor(t Type) Shape {
	d, ok := index[t]
	if !ok {
		return Shape{Type: t, Fields: []Field{}}
	}
	fields := make([]Field, len(d.fields))
	copy(fields, d.fields)
	return Shape{Type: t, Fields: fields}
}

// Shapes returns the shapes of every registered type in palette order.
func Shapes() []Shape {
	out := make([]Shape, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, FieldShapeFor(d.entry.Type))
	}
	return out
}

// FieldIssue describes a known field whose value has the wrong shape.
type FieldIssue struct {
	Field    string    `json:"field"`
	Expected FieldKind `json:"expected"`
	Got      string    `json:"got"`
}

func (i FieldIssue) String() string {
	return fmt.Sprintf("%s: expected %s, got %s", i.Field, i.Expected, i.Got)
}

// JoinIssues renders issues as one line, in the given order.
func JoinIssues(issues []FieldIssue) string {
	parts := make([]string, 0, len(issues))
	for _, issue := range issues {
		parts = append(parts, issue.String())
	}
	return strings.Join(parts, "; ")
}

// ValidateContent checks the known keys of c against the shape of t.
// Unknown keys and missing keys are tolerated, and nil values count as unset.
// The result is sorted by field path.
func ValidateContent(t Type, c Content) []FieldIssue {
	d, ok := index[t]
	if !ok {
		return nil
	}
	var issues []FieldIssue
	for name, value := range c {
		f, ok := findField(d.fields, name)
		if !ok {
			continue
		}
		issues = append(issues, checkValue(name, f, value)...)
	}
	sort.Slice(issues, func(i, j int) bool { return issues[i].Field < issues[j].Field })
	return issues
}

func checkValue(path string, f Field, value any) []FieldIssue {
	if value == nil {
		return nil
	}
	mismatch := []FieldIssue{{Field: path, Expected: f.Kind, Got: describe(value)}}

	switch f.Kind {
	case KindString, KindText:
		if _, ok := value.(string); !ok {
			return mismatch
		}
	case KindBool:
		if _, ok := value.(bool); !ok {
			return mismatch
		}
	case KindNumber:
		switch value.(type) {
		case float64, float32, int, int64, int32:
		default:
			return mismatch
		}
	case KindStringList:
		items, ok := value.([]any)
		if !ok {
			return mismatch
		}
		var issues []FieldIssue
		for i, item := range items {
			if _, ok := item.(string); !ok {
				issues = append(issues, FieldIssue{
					Field:    fmt.Sprintf("%s[%d]", path, i),
					Expected: KindString,
					Got:      describe(item),
				})
			}
		}
		return issues
	case KindRecordList:
		items, ok := value.([]any)
		if !ok {
			return mismatch
		}
		var issues []FieldIssue
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			record, ok := item.(map[string]any)
			if !ok {
				issues = append(issues, FieldIssue{Field: itemPath, Expected: "record", Got: describe(item)})
				continue
			}
			for key, inner := range record {
				sub, ok := findField(f.Fields, key)
				if !ok {
					continue
				}
				issues = append(issues, checkValue(itemPath+"."+key, sub, inner)...)
			}
		}
		return issues
	}
	return nil
}

func describe(v any) string {
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case float64, float32, int, int64, int32:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "record"
	default:
		return fmt.Sprintf("%T", v)
	}
}
