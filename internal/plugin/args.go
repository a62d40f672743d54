package plugin

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"

	"github.com/nodescout/nodescout/internal/core"
)

// validate checks struct tags on decoded argument records.
var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeArgs decodes a raw argument mapping into a typed args struct.
// The schema is closed: unknown keys are rejected, so a typo in an
// expectation name fails loudly instead of silently matching nothing.
// Field constraints declared with validate tags are checked after decoding.
func DecodeArgs(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      out,
		ErrorUnused: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			stringToSliceHook,
		),
	})
	if err != nil {
		return core.ErrInvalidArgs(core.CodeUnknownArgs, err.Error())
	}
	if err := decoder.Decode(args); err != nil {
		return core.ErrInvalidArgs(core.CodeUnknownArgs, err.Error()).WithCause(err)
	}
	if err := validate.Struct(out); err != nil {
		return core.ErrInvalidArgs(core.CodeUnknownArgs, err.Error()).WithCause(err)
	}
	return nil
}

// stringToSliceHook lets a scalar string satisfy a []string field, so a
// config may write `exp_kernel: "5.15.0"` or a list interchangeably.
func stringToSliceHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}
	if to.Kind() != reflect.Slice || to.Elem().Kind() != reflect.String {
		return data, nil
	}
	return []string{fmt.Sprint(data)}, nil
}

// ArgKeys lists the mapstructure keys a typed args record accepts. Fields
// without a tag map to their lowercased name, matching the decoder.
func ArgKeys(prototype any) []string {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		key := field.Tag.Get("mapstructure")
		if comma := strings.Index(key, ","); comma >= 0 {
			key = key[:comma]
		}
		if key == "-" {
			continue
		}
		if key == "" {
			key = strings.ToLower(field.Name)
		}
		keys = append(keys, key)
	}
	return keys
}

// EncodeArgs converts a typed args struct back to a raw mapping, used when
// a plugin enqueues a follow-up config.
func EncodeArgs(in any) (map[string]any, error) {
	out := map[string]any{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &out})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(in); err != nil {
		return nil, err
	}
	return out, nil
}
