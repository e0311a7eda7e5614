package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileOptionsSchema compiles a worker's options schema. An empty schema yields nil.
func compileOptionsSchema(name, schemaJSON string) (*jsonschema.Schema, error) {
	if strings.TrimSpace(schemaJSON) == "" {
		return nil, nil
	}

	url := name + ".schema.json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, strings.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile options schema: %w", err)
	}
	return sch, nil
}

// validateAgainst checks m against sch. Metadata is normalized through a JSON
// round trip so Go integer types validate like their JSON counterparts.
func validateAgainst(sch *jsonschema.Schema, m Metadata) error {
	if sch == nil {
		return nil
	}
	if m == nil {
		m = Metadata{}
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("%w: metadata is not JSON encodable: %v", ErrInvalidOptions, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	if err := sch.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%w: %s", ErrInvalidOptions, describeValidation(verr))
		}
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// describeValidation flattens the leaf causes of a validation error into one line.
func describeValidation(verr *jsonschema.ValidationError) string {
	var parts []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			parts = append(parts, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(verr)
	return strings.Join(parts, "; ")
}

// DecodeOptions decodes task metadata into a typed options struct. Fields are
// matched by their json tag, and numeric strings or floats are converted as needed.
func DecodeOptions[T any](m Metadata) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &out,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc("2006-01-02T15:04:05Z07:00"),
		),
	})
	if err != nil {
		return out, fmt.Errorf("failed to create options decoder: %w", err)
	}
	if err := dec.Decode(map[string]any(m)); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return out, nil
}
