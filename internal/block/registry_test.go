package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogCoversEveryKnownType(t *testing.T) {
	entries := Catalog()
	require.Len(t, entries, 12)
	assert.Equal(t, TypeHero, entries[0].Type)

	for _, e := range entries {
		assert.True(t, Known(e.Type), e.Type)
		assert.NotEmpty(t, e.Label)
		assert.NotEmpty(t, FieldShapeFor(e.Type).Fields, e.Type)
	}
	assert.False(t, Known("carousel"))
}

func TestDefaultContentForReturnsFreshCopies(t *testing.T) {
	first := DefaultContentFor(TypeFeatures)
	items := first["features"].([]any)
	items[0].(map[string]any)["title"] = "changed"
	first["heading"] = "changed"

	second := DefaultContentFor(TypeFeatures)
	assert.Equal(t, "Our Amazing Features", second["heading"])
	assert.Equal(t, "Feature One", second["features"].([]any)[0].(map[string]any)["title"])
}

func TestDefaultContentForUnknownTypeIsEmpty(t *testing.T) {
	c := DefaultContentFor("carousel")
	require.NotNil(t, c)
	assert.Empty(t, c)
	assert.Empty(t, FieldShapeFor("carousel").Fields)
}

func TestDefaultContentMatchesDeclaredShape(t *testing.T) {
	for _, e := range Catalog() {
		issues := ValidateContent(e.Type, DefaultContentFor(e.Type))
		assert.Empty(t, issues, "%s: %s", e.Type, JoinIssues(issues))
	}
}

func TestDefaultContentIsCanonical(t *testing.T) {
	for _, e := range Catalog() {
		c := DefaultContentFor(e.Type)
		normalized, err := NormalizeContent(c)
		require.NoError(t, err)
		assert.Equal(t, c, normalized, e.Type)
	}
}

func TestFieldShapeRecordFields(t *testing.T) {
	shape := FieldShapeFor(TypeTimeline)
	f, ok := shape.Field("timelineItems")
	require.True(t, ok)
	assert.Equal(t, KindRecordList, f.Kind)

	names := make([]string, 0, len(f.Fields))
	for _, sub := range f.Fields {
		names = append(names, sub.Name)
	}
	assert.Equal(t, []string{"phase", "title", "description"}, names)

	_, ok = shape.Field("missing")
	assert.False(t, ok)
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		typ     Type
		content Content
		want    []string
	}{
		{
			name:    "unknown keys are ignored",
			typ:     TypeText,
			content: Content{"heading": "Hi", "custom": 42.0},
		},
		{
			name:    "nil counts as unset",
			typ:     TypeText,
			content: Content{"heading": nil},
		},
		{
			name:    "wrong scalar",
			typ:     TypeCTA,
			content: Content{"hasImage": "yes", "heading": 3.0},
			want:    []string{"hasImage", "heading"},
		},
		{
			name:    "string list item",
			typ:     TypeTestimonials,
			content: Content{"bulletPoints": []any{"ok", 1.0}},
			want:    []string{"bulletPoints[1]"},
		},
		{
			name: "record list sub field",
			typ:  TypeHero,
			content: Content{"formFields": []any{
				map[string]any{"label": "Name", "required": "true"},
				"oops",
			}},
			want: []string{"formFields[0].required", "formFields[1]"},
		},
		{
			name:    "unknown type is never checked",
			typ:     "carousel",
			content: Content{"anything": []any{1.0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := ValidateContent(tt.typ, tt.content)
			got := make([]string, 0, len(issues))
			for _, issue := range issues {
				got = append(got, issue.Field)
			}
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
