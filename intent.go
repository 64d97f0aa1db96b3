package adb

import (
	"strconv"
	"strings"

	"github.com/openadb/goadb/internal/errors"
)

// Intent describes an Android intent as accepted by "am start" and
// "am broadcast". Zero values are omitted from the encoded command
// line.
type Intent struct {
	Action     string
	DataURI    string
	MimeType   string
	Categories []string
	Component  string
	Flags      uint32

	// Extras are encoded in the order given, each as a pair (or, for
	// NullExtra, a singleton) of "am start" arguments.
	Extras []NamedExtra
}

// NamedExtra pairs an intent extra's key with its typed value.
type NamedExtra struct {
	Key   string
	Value ExtraValue
}

// ExtraValue is the sum type of intent extra values accepted by
// "am start"/"am broadcast": one of StringExtra, NullExtra, BoolExtra,
// IntExtra, LongExtra, FloatExtra, URIExtra, ComponentExtra, or
// ArrayExtra.
type ExtraValue interface {
	// args renders the "--eX key [value]" (or array) tokens for key.
	args(key string) []string
}

type StringExtra string

func (v StringExtra) args(key string) []string { return []string{"--es", key, string(v)} }

// NullExtra represents a string extra explicitly set to null.
type NullExtra struct{}

func (NullExtra) args(key string) []string { return []string{"--esn", key} }

type BoolExtra bool

func (v BoolExtra) args(key string) []string {
	return []string{"--ez", key, strconv.FormatBool(bool(v))}
}

type IntExtra int32

func (v IntExtra) args(key string) []string {
	return []string{"--ei", key, strconv.FormatInt(int64(v), 10)}
}

type LongExtra int64

func (v LongExtra) args(key string) []string {
	return []string{"--el", key, strconv.FormatInt(int64(v), 10)}
}

type FloatExtra float64

func (v FloatExtra) args(key string) []string {
	return []string{"--ef", key, strconv.FormatFloat(float64(v), 'g', -1, 64)}
}

// URIExtra is a Uri-typed extra (--eu).
type URIExtra string

func (v URIExtra) args(key string) []string { return []string{"--eu", key, string(v)} }

// ComponentExtra is a ComponentName-typed extra (--ecn).
type ComponentExtra string

func (v ComponentExtra) args(key string) []string { return []string{"--ecn", key, string(v)} }

// ExtraKind identifies the element type of an ArrayExtra.
type ExtraKind int

const (
	KindString ExtraKind = iota
	KindInt
	KindLong
	KindFloat
)

// ArrayExtra is a comma-joined array-typed extra (--esa/--eia/--ela/--efa).
type ArrayExtra struct {
	Kind   ExtraKind
	Values []string
}

func (v ArrayExtra) args(key string) []string {
	var flag string
	switch v.Kind {
	case KindString:
		flag = "--esa"
	case KindInt:
		flag = "--eia"
	case KindLong:
		flag = "--ela"
	case KindFloat:
		flag = "--efa"
	default:
		flag = "--esa"
	}
	return []string{flag, key, strings.Join(v.Values, ",")}
}

// Args renders the intent as the argument list "am start"/"am broadcast"
// expects after the subcommand itself.
func (it Intent) Args() []string {
	var args []string

	if it.Action != "" {
		args = append(args, "-a", it.Action)
	}
	if it.DataURI != "" {
		args = append(args, "-d", it.DataURI)
	}
	if it.MimeType != "" {
		args = append(args, "-t", it.MimeType)
	}
	for _, cat := range it.Categories {
		args = append(args, "-c", cat)
	}
	if it.Component != "" {
		args = append(args, "-n", it.Component)
	}
	if it.Flags != 0 {
		args = append(args, "-f", strconv.FormatUint(uint64(it.Flags), 10))
	}
	for _, extra := range it.Extras {
		args = append(args, extra.Value.args(extra.Key)...)
	}

	return args
}

// ExtrasFromMap converts a map of plain Go values into NamedExtras,
// following the default JSON-ish type mapping: nil -> NullExtra, bool ->
// BoolExtra, a number with no fractional part -> IntExtra (or LongExtra
// if it overflows int32), any other number -> FloatExtra, string ->
// StringExtra. Keys are visited in the order given.
func ExtrasFromMap(keys []string, values map[string]interface{}) ([]NamedExtra, error) {
	extras := make([]NamedExtra, 0, len(keys))
	for _, key := range keys {
		v, ok := values[key]
		if !ok {
			continue
		}
		extra, err := extraFromValue(v)
		if err != nil {
			return nil, errors.WrapErrf(err, "extra %q", key)
		}
		extras = append(extras, NamedExtra{Key: key, Value: extra})
	}
	return extras, nil
}

func extraFromValue(v interface{}) (ExtraValue, error) {
	switch t := v.(type) {
	case nil:
		return NullExtra{}, nil
	case bool:
		return BoolExtra(t), nil
	case string:
		return StringExtra(t), nil
	case int:
		return intExtraFromInt64(int64(t)), nil
	case int32:
		return IntExtra(t), nil
	case int64:
		return intExtraFromInt64(t), nil
	case float32:
		return floatExtraFrom(float64(t)), nil
	case float64:
		return floatExtraFrom(t), nil
	default:
		return nil, errors.AssertionErrorf("unsupported extra value type %T", v)
	}
}

func intExtraFromInt64(n int64) ExtraValue {
	if n >= -1<<31 && n <= 1<<31-1 {
		return IntExtra(int32(n))
	}
	return LongExtra(n)
}

func floatExtraFrom(f float64) ExtraValue {
	if f == float64(int64(f)) {
		return intExtraFromInt64(int64(f))
	}
	return FloatExtra(f)
}
