package adb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntentArgsBasicFields(t *testing.T) {
	it := Intent{
		Action:     "android.intent.action.VIEW",
		DataURI:    "content://contacts/people/1",
		MimeType:   "vnd.android.cursor.item/phone",
		Categories: []string{"android.intent.category.DEFAULT"},
		Component:  "com.example/.MainActivity",
		Flags:      0x10000000,
	}
	assert.Equal(t, []string{
		"-a", "android.intent.action.VIEW",
		"-d", "content://contacts/people/1",
		"-t", "vnd.android.cursor.item/phone",
		"-c", "android.intent.category.DEFAULT",
		"-n", "com.example/.MainActivity",
		"-f", "268435456",
	}, it.Args())
}

func TestIntentArgsExtraTypes(t *testing.T) {
	it := Intent{
		Extras: []NamedExtra{
			{Key: "str", Value: StringExtra("hi")},
			{Key: "nullstr", Value: NullExtra{}},
			{Key: "flag", Value: BoolExtra(true)},
			{Key: "n", Value: IntExtra(42)},
			{Key: "big", Value: LongExtra(1 << 40)},
			{Key: "pi", Value: FloatExtra(3.5)},
			{Key: "u", Value: URIExtra("content://foo")},
			{Key: "comp", Value: ComponentExtra("com.example/.Foo")},
			{Key: "arr", Value: ArrayExtra{Kind: KindInt, Values: []string{"1", "2", "3"}}},
		},
	}
	assert.Equal(t, []string{
		"--es", "str", "hi",
		"--esn", "nullstr",
		"--ez", "flag", "true",
		"--ei", "n", "42",
		"--el", "big", "1099511627776",
		"--ef", "pi", "3.5",
		"--eu", "u", "content://foo",
		"--ecn", "comp", "com.example/.Foo",
		"--eia", "arr", "1,2,3",
	}, it.Args())
}

func TestExtrasFromMap(t *testing.T) {
	values := map[string]interface{}{
		"s":   "hello",
		"b":   true,
		"n":   nil,
		"i":   42,
		"f":   3.5,
		"whole": float64(7),
	}
	extras, err := ExtrasFromMap([]string{"s", "b", "n", "i", "f", "whole"}, values)
	assert.NoError(t, err)

	byKey := make(map[string]ExtraValue)
	for _, e := range extras {
		byKey[e.Key] = e.Value
	}
	assert.Equal(t, StringExtra("hello"), byKey["s"])
	assert.Equal(t, BoolExtra(true), byKey["b"])
	assert.Equal(t, NullExtra{}, byKey["n"])
	assert.Equal(t, IntExtra(42), byKey["i"])
	assert.Equal(t, FloatExtra(3.5), byKey["f"])
	assert.Equal(t, IntExtra(7), byKey["whole"])
}

func TestExtrasFromMapUnsupportedType(t *testing.T) {
	_, err := ExtrasFromMap([]string{"x"}, map[string]interface{}{"x": struct{}{}})
	assert.Error(t, err)
}
