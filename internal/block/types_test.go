package block

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockJSONKeepsExtraFields(t *testing.T) {
	raw := `{"id":"text-1","type":"text","content":{"heading":"Hi"},"settings":{"backgroundColor":"bg-white","textColor":"text-gray-800","padding":"py-16","alignment":"left"},"locked":true,"meta":{"a":1}}`

	var b Block
	require.NoError(t, json.Unmarshal([]byte(raw), &b))
	assert.Equal(t, "text-1", b.ID)
	assert.Equal(t, TypeText, b.Type)
	assert.Equal(t, AlignLeft, b.Settings.Alignment)
	require.Len(t, b.Extra, 2)

	out, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestBlockJSONWithoutExtra(t *testing.T) {
	b := Block{ID: "cta-1", Type: TypeCTA, Content: Content{"heading": "Go"}, Settings: DefaultSettings()}
	out, err := json.Marshal(b)
	require.NoError(t, err)

	var back Block
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, b, back)
	assert.Nil(t, back.Extra)
}

func TestBlockCloneIsDeep(t *testing.T) {
	b := Block{
		ID:      "features-1",
		Type:    TypeFeatures,
		Content: DefaultContentFor(TypeFeatures),
		Extra:   map[string]json.RawMessage{"x": json.RawMessage(`1`)},
	}
	c := b.Clone()
	c.Content["features"].([]any)[0].(map[string]any)["title"] = "other"
	c.Extra["x"][0] = '2'

	assert.Equal(t, "Feature One", b.Content["features"].([]any)[0].(map[string]any)["title"])
	assert.Equal(t, json.RawMessage(`1`), b.Extra["x"])
}

func TestSettingsApply(t *testing.T) {
	color := "bg-gray-50"
	align := AlignRight
	s := DefaultSettings().Apply(SettingsPatch{BackgroundColor: &color, Alignment: &align})

	assert.Equal(t, "bg-gray-50", s.BackgroundColor)
	assert.Equal(t, AlignRight, s.Alignment)
	assert.Equal(t, "text-gray-800", s.TextColor)
	assert.Equal(t, "py-16", s.Padding)
	assert.True(t, SettingsPatch{}.Empty())
}

func TestNormalizeTextMatchesJSON(t *testing.T) {
	for _, in := range []string{"plain", "bg-\xff", "\xff\xfe", "a\xc3b", "\xed\xa0\x80", "ok é"} {
		data, err := json.Marshal(in)
		require.NoError(t, err)
		var want string
		require.NoError(t, json.Unmarshal(data, &want))
		assert.Equal(t, want, NormalizeText(in), "%q", in)
	}

	bg := "x\xff"
	assert.Equal(t, "x\uFFFD", Settings{}.Apply(SettingsPatch{BackgroundColor: &bg}).BackgroundColor)
}

func TestNormalizeContent(t *testing.T) {
	c, err := NormalizeContent(Content{"count": 3, "tags": []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, 3.0, c["count"])
	assert.Equal(t, []any{"a"}, c["tags"])

	empty, err := NormalizeContent(nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
