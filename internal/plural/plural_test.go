package plural

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keysync/internal/keys"
)

func TestTableCategories(t *testing.T) {
	table := NewTable()

	tests := []struct {
		locale   string
		cardinal []string
	}{
		{"en", []string{One, Other}},
		{"de", []string{One, Other}},
		{"ru", []string{One, Few, Many, Other}},
		{"ja", []string{Other}},
		{"ar", []string{Zero, One, Two, Few, Many, Other}},
	}

	for _, tt := range tests {
		t.Run(tt.locale, func(t *testing.T) {
			assert.Equal(t, tt.cardinal, table.For(tt.locale).Cardinal)
		})
	}
}

func TestTableEnglishOrdinals(t *testing.T) {
	assert.Equal(t, []string{One, Two, Few, Other}, NewTable().For("en").Ordinal)
}

func TestTableUnknownLocaleFallsBack(t *testing.T) {
	assert.Equal(t, []string{One, Other}, NewTable().For("not a tag!").Cardinal)
}

func keysOf(vs []Variant) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Key)
	}
	return out
}

func TestExpandCountEnglish(t *testing.T) {
	k := &keys.ExtractedKey{Key: "item", Plural: &keys.PluralOptions{HasCount: true}}
	vs := Expand(k, NewTable().For("en"), Separators{})
	assert.Equal(t, []string{"item_one", "item_other"}, keysOf(vs))
	for _, v := range vs {
		assert.True(t, v.Suffixed)
		assert.False(t, v.Explicit)
		assert.Equal(t, "item", v.Default)
	}
}

func TestExpandCountFourCategories(t *testing.T) {
	k := &keys.ExtractedKey{Key: "item", Plural: &keys.PluralOptions{HasCount: true}}
	vs := Expand(k, NewTable().For("ru"), Separators{})
	assert.Equal(t, []string{"item_one", "item_few", "item_many", "item_other"}, keysOf(vs))
}

func TestExpandContextOnly(t *testing.T) {
	k := &keys.ExtractedKey{Key: "friend", DefaultValue: "A friend", HasDefault: true,
		Contexts: []string{"male", "", "female"}}
	vs := Expand(k, NewTable().For("en"), Separators{})
	assert.Equal(t, []string{"friend", "friend_male", "friend_female"}, keysOf(vs))
	assert.True(t, vs[0].Explicit)
	assert.False(t, vs[1].Explicit)
	assert.Equal(t, "A friend", vs[2].Default)
}

func TestExpandContextAndCount(t *testing.T) {
	k := &keys.ExtractedKey{Key: "friend", Contexts: []string{"male"},
		Plural: &keys.PluralOptions{HasCount: true}}
	vs := Expand(k, NewTable().For("en"), Separators{})
	assert.Equal(t, []string{"friend_one", "friend_other", "friend_male_one", "friend_male_other"}, keysOf(vs))
}

func TestExpandExplicitForms(t *testing.T) {
	k := &keys.ExtractedKey{Key: "apple", DefaultValue: "apples", HasDefault: true,
		Plural: &keys.PluralOptions{HasCount: true, ExplicitForms: map[string]string{
			One:  "one apple",
			Zero: "no apples",
		}}}
	vs := Expand(k, NewTable().For("en"), Separators{})
	require.Equal(t, []string{"apple_zero", "apple_one", "apple_other"}, keysOf(vs))
	assert.Equal(t, "no apples", vs[0].Default)
	assert.True(t, vs[0].Explicit)
	assert.Equal(t, "one apple", vs[1].Default)
	assert.Equal(t, "apples", vs[2].Default)
	assert.False(t, vs[2].Explicit)
}

func TestExpandOrdinal(t *testing.T) {
	k := &keys.ExtractedKey{Key: "place", Plural: &keys.PluralOptions{HasCount: true, Ordinal: true,
		ExplicitForms: map[string]string{ExplicitFormKey(Two, true): "{{count}}nd"}}}
	vs := Expand(k, NewTable().For("en"), Separators{})
	assert.Equal(t, []string{"place_ordinal_one", "place_ordinal_two", "place_ordinal_few", "place_ordinal_other"}, keysOf(vs))
	assert.Equal(t, "{{count}}nd", vs[1].Default)
}

func TestExpandCustomSeparators(t *testing.T) {
	k := &keys.ExtractedKey{Key: "k", Contexts: []string{"c"}, Plural: &keys.PluralOptions{HasCount: true}}
	vs := Expand(k, NewTable().For("en"), Separators{Plural: "#", Context: "@"})
	assert.Equal(t, []string{"k#one", "k#other", "k@c#one", "k@c#other"}, keysOf(vs))
}

func TestSplitOrdinal(t *testing.T) {
	base, ok := SplitOrdinal("place_ordinal", "_")
	assert.True(t, ok)
	assert.Equal(t, "place", base)

	base, ok = SplitOrdinal("place", "_")
	assert.False(t, ok)
	assert.Equal(t, "place", base)

	_, ok = SplitOrdinal("_ordinal", "_")
	assert.False(t, ok)
}
