package message

import (
	"encoding/json"

	ms "github.com/mitchellh/mapstructure"
	validatorpkg "github.com/go-playground/validator/v10"
)

var validate = validatorpkg.New()

// BindOptions customizes how the Bind* family decodes into structs,
// mirroring the teacher's ctx.BindJSONOptions.
type BindOptions struct {
	// WeaklyTypedInput allows common coercions (e.g. "10" -> 10).
	WeaklyTypedInput bool
	// ErrorUnused reports an error for unexpected fields.
	ErrorUnused bool
	// SkipValidate disables struct-tag validation after decode.
	SkipValidate bool
}

// BindJSON decodes the request's raw JSON body into v (a pointer to a
// struct) and, unless SkipValidate is set, runs validator.Struct on it.
// Decoding goes through a generic map first so WeaklyTypedInput and
// ErrorUnused can be honored the way the teacher's mapstructure-backed
// decoder does.
func (r *Request) BindJSON(v any, opts ...BindOptions) error {
	var o BindOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	var m map[string]any
	if err := json.Unmarshal(r.RawBody, &m); err != nil {
		return err
	}
	if err := decodeMap(m, v, o); err != nil {
		return err
	}
	return validateIfNeeded(v, o)
}

// BindMap binds from an already-collected map (e.g. merged from query and
// path) into v, applying the same decode/validate rules as BindJSON.
func (r *Request) BindMap(v any, m map[string]any, opts ...BindOptions) error {
	var o BindOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if err := decodeMap(m, v, o); err != nil {
		return err
	}
	return validateIfNeeded(v, o)
}

// BindQuery binds the request's query-string parameters into v.
func (r *Request) BindQuery(v any, opts ...BindOptions) error {
	m := make(map[string]any, len(r.Query))
	for k, val := range r.Query {
		m[k] = val
	}
	return r.BindMap(v, m, opts...)
}

// BindPath binds the request's captured path parameters into v.
func (r *Request) BindPath(v any, opts ...BindOptions) error {
	m := make(map[string]any, len(r.Params))
	for k, val := range r.Params {
		m[k] = val
	}
	return r.BindMap(v, m, opts...)
}

func decodeMap(m map[string]any, v any, o BindOptions) error {
	cfg := &ms.DecoderConfig{
		TagName:          "json",
		Result:           v,
		WeaklyTypedInput: o.WeaklyTypedInput,
		ErrorUnused:      o.ErrorUnused,
	}
	dec, err := ms.NewDecoder(cfg)
	if err != nil {
		return err
	}
	return dec.Decode(m)
}

func validateIfNeeded(v any, o BindOptions) error {
	if o.SkipValidate {
		return nil
	}
	return validate.Struct(v)
}
