package etl

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	ProcessedField     = "processed"
	UppercaseNameField = "uppercase_name"
	NameField          = "name"
)

// Record is one compact JSON object with unique keys. Key order is kept as it
// was read.
type Record []byte

// ParseRecord validates a single line and returns it as a compact Record.
func ParseRecord(line []byte) (Record, error) {
	if !gjson.ValidBytes(line) {
		return nil, errors.New("invalid JSON")
	}
	compact := pretty.Ugly(line)
	if len(compact) == 0 || compact[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidRecord)
	}
	return Record(normalize(nil, gjson.ParseBytes(compact))), nil
}

// normalize rewrites v with every duplicated object key collapsed to a single
// entry. The key stays where it first appeared and takes its last value, the
// way a decoder into a map sees it.
func normalize(dst []byte, v gjson.Result) []byte {
	switch {
	case v.IsObject():
		var keys []gjson.Result
		var vals []gjson.Result
		index := map[string]int{}
		v.ForEach(func(k, val gjson.Result) bool {
			if i, ok := index[k.Str]; ok {
				vals[i] = val
				return true
			}
			index[k.Str] = len(keys)
			keys = append(keys, k)
			vals = append(vals, val)
			return true
		})
		dst = append(dst, '{')
		for i, k := range keys {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = append(dst, k.Raw...)
			dst = append(dst, ':')
			dst = normalize(dst, vals[i])
		}
		return append(dst, '}')
	case v.IsArray():
		dst = append(dst, '[')
		first := true
		v.ForEach(func(_, el gjson.Result) bool {
			if !first {
				dst = append(dst, ',')
			}
			first = false
			dst = normalize(dst, el)
			return true
		})
		return append(dst, ']')
	default:
		return append(dst, v.Raw...)
	}
}

// Name returns the record's name field, or "" when it is absent.
func (r Record) Name() (string, error) {
	v := gjson.GetBytes(r, NameField)
	if !v.Exists() {
		return "", nil
	}
	if v.Type != gjson.String {
		return "", fmt.Errorf("%w: field %q is %s, not a string", ErrInvalidRecord, NameField, v.Type)
	}
	return v.Str, nil
}

// Transform marks the record processed and adds the uppercased name. Existing
// processed/uppercase_name keys are overwritten in place; otherwise they are
// appended after the original keys.
func Transform(r Record) (Record, error) {
	name, err := r.Name()
	if err != nil {
		return nil, err
	}
	out, err := sjson.SetBytes(append([]byte(nil), r...), ProcessedField, true)
	if err != nil {
		return nil, err
	}
	out, err = sjson.SetBytes(out, UppercaseNameField, cases.Upper(language.Und).String(name))
	if err != nil {
		return nil, err
	}
	return Record(out), nil
}
