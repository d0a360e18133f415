package raw

import (
	"fmt"
	"reflect"
	"strings"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
)

// Merge deep-merges patch on top of a copy of base: maps merge by key, slices
// append, non-empty scalars and non-nil pointers override. A set Devtool,
// including a disabled one, overrides. base is not modified. Rule names are
// restored from base afterwards, index-aligned.
func Merge(base, patch *Config) (*Config, error) {
	out := base.Clone()
	if out == nil {
		out = &Config{}
	}
	if patch == nil {
		return out, nil
	}
	if err := mergo.Merge(out, patch.Clone(),
		mergo.WithOverride, mergo.WithAppendSlice, mergo.WithTransformers(mergeTransformers{})); err != nil {
		return nil, fmt.Errorf("merge raw config: %w", err)
	}
	if base != nil {
		RestoreRuleNames(out.Module.Rules, base.Module.Rules)
	}
	return out, nil
}

// mergeTransformers makes present values win where mergo would treat them as
// empty: a pointer to false, a disabled devtool.
type mergeTransformers struct{}

var (
	boolPtrType = reflect.TypeOf((*bool)(nil))
	devtoolType = reflect.TypeOf(Devtool{})
)

func (mergeTransformers) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	switch t {
	case boolPtrType:
		return func(dst, src reflect.Value) error {
			if !src.IsNil() && dst.CanSet() {
				v := src.Elem().Bool()
				dst.Set(reflect.ValueOf(&v))
			}
			return nil
		}
	case devtoolType:
		return func(dst, src reflect.Value) error {
			if !src.Interface().(Devtool).IsZero() && dst.CanSet() {
				dst.Set(src)
			}
			return nil
		}
	}
	return nil
}

// Patch is a literal raw-config patch, as found in a project config file.
// Besides the decoded Config it remembers the modelled keys that were given
// with a zero value (false, "", 0), so they override on merge too.
type Patch struct {
	Config *Config

	explicit map[string]any
}

// DecodePatch converts a literal mapping into a Patch. Unknown top-level keys
// are kept in Extra.
func DecodePatch(m map[string]any) (*Patch, error) {
	var cfg Config
	if err := decodeOnto(m, &cfg); err != nil {
		return nil, fmt.Errorf("decode raw config patch: %w", err)
	}
	return &Patch{Config: &cfg, explicit: explicitZeros(m, reflect.TypeOf(cfg))}, nil
}

// MergeInto merges the patch on top of a copy of base, then applies the
// explicit zero values.
func (p *Patch) MergeInto(base *Config) (*Config, error) {
	if p == nil {
		return Merge(base, nil)
	}
	out, err := Merge(base, p.Config)
	if err != nil {
		return nil, err
	}
	if len(p.explicit) > 0 {
		if err := decodeOnto(p.explicit, out); err != nil {
			return nil, fmt.Errorf("apply raw config patch: %w", err)
		}
	}
	return out, nil
}

func decodeOnto(m map[string]any, out *Config) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(entryHook, devtoolHook, stringSliceHook),
		Result:     out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

// explicitZeros keeps the zero-valued scalars of m that land on struct fields
// of typ, descending into nested structs. Map-typed fields are left to the
// structural merge, which already honors explicit values; lists append.
func explicitZeros(m map[string]any, typ reflect.Type) map[string]any {
	out := make(map[string]any)
	for k, v := range m {
		f, ok := modelledField(typ, k)
		if !ok {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch {
		case ft == entryType:
		case ft == devtoolType:
			if isZeroScalar(v) {
				out[k] = v
			}
		case ft.Kind() == reflect.Struct:
			if nested, ok := v.(map[string]any); ok {
				if z := explicitZeros(nested, ft); len(z) > 0 {
					out[k] = z
				}
			}
		case ft.Kind() == reflect.Bool, ft.Kind() == reflect.String,
			ft.Kind() >= reflect.Int && ft.Kind() <= reflect.Float64:
			if isZeroScalar(v) {
				out[k] = v
			}
		}
	}
	return out
}

func modelledField(typ reflect.Type, key string) (reflect.StructField, bool) {
	for i := range typ.NumField() {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag := f.Tag.Get("mapstructure"); tag == "-" || strings.HasPrefix(tag, ",") {
			continue
		}
		if strings.EqualFold(f.Name, key) {
			return f, true
		}
	}
	return reflect.StructField{}, false
}

func isZeroScalar(v any) bool {
	switch t := v.(type) {
	case bool:
		return !t
	case string:
		return t == ""
	case int:
		return t == 0
	case int64:
		return t == 0
	case uint64:
		return t == 0
	case float64:
		return t == 0
	}
	return false
}

// RestoreRuleNames copies rule names from the pre-merge rule list into the
// post-merge one, index by index and recursively into oneOf groups. Rules
// that already carry names keep them.
func RestoreRuleNames(after, before []Rule) {
	for i := range before {
		if i >= len(after) {
			return
		}
		if len(after[i].Names) == 0 {
			after[i].Names = append([]string(nil), before[i].Names...)
		}
		RestoreRuleNames(after[i].OneOf, before[i].OneOf)
	}
}

var (
	entryType       = reflect.TypeOf(Entry{})
	stringSliceType = reflect.TypeOf([]string(nil))
)

func entryHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != entryType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return Entry{List: []string{v}}, nil
	case []any:
		list, err := toStrings(v)
		if err != nil {
			return nil, fmt.Errorf("entry: %w", err)
		}
		return Entry{List: list}, nil
	case map[string]any:
		named := make(map[string][]string, len(v))
		for k, item := range v {
			switch iv := item.(type) {
			case string:
				named[k] = []string{iv}
			case []any:
				list, err := toStrings(iv)
				if err != nil {
					return nil, fmt.Errorf("entry %q: %w", k, err)
				}
				named[k] = list
			default:
				return nil, fmt.Errorf("entry %q: unsupported value %T", k, item)
			}
		}
		return Entry{Named: named}, nil
	}
	return data, nil
}

func devtoolHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != devtoolType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return DevtoolName(v), nil
	case bool:
		if v {
			return nil, fmt.Errorf("devtool: expected a name or false, got true")
		}
		return Devtool{Disabled: true}, nil
	}
	return data, nil
}

// stringSliceHook lets a single string stand in for a one-element list.
func stringSliceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if to == stringSliceType && from != nil && from.Kind() == reflect.String {
		return []string{data.(string)}, nil
	}
	return data, nil
}

func toStrings(in []any) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, item := range in {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", item)
		}
		out = append(out, s)
	}
	return out, nil
}
