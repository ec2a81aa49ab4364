package records

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-rbac/internal/shared"
)

var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// coerce splits a payload into declared columns and extras. With partial unset every
// declared field must be present; with partial set, supplied declared fields may not be blank.
func coerce(schema shared.ResourceSchema, payload map[string]any, partial bool) (Values, error) {
	values := Values{Columns: map[string]string{}, Extra: map[string]any{}}
	for key, raw := range payload {
		if key == KeyID || key == KeyCreatedAt {
			continue
		}
		field, declared := schema.Field(key)
		if !declared {
			values.Extra[key] = raw
			continue
		}
		text, present, err := coerceField(field, raw)
		if err != nil {
			return Values{}, err
		}
		if !present {
			if partial {
				return Values{}, shared.Validationf("%s must not be empty", field.Name)
			}
			continue
		}
		values.Columns[field.Name] = text
	}
	if partial {
		return values, nil
	}
	var missing []string
	for _, field := range schema.Fields {
		if _, ok := values.Columns[field.Name]; !ok {
			missing = append(missing, field.Name)
		}
	}
	if len(missing) > 0 {
		return Values{}, shared.Validationf("missing required field(s): %s", strings.Join(missing, ", "))
	}
	return values, nil
}

// coerceField returns the text form of a declared field value. present is false for null or "".
func coerceField(field shared.Field, raw any) (string, bool, error) {
	if raw == nil {
		return "", false, nil
	}
	if field.Kind == shared.FieldNumber {
		return coerceNumber(field.Name, raw)
	}
	switch v := raw.(type) {
	case string:
		return v, v != "", nil
	case json.Number:
		return v.String(), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true, nil
	case int:
		return strconv.Itoa(v), true, nil
	case int64:
		return strconv.FormatInt(v, 10), true, nil
	default:
		return "", false, shared.Validationf("%s must be a scalar value", field.Name)
	}
}

func coerceNumber(name string, raw any) (string, bool, error) {
	var text string
	switch v := raw.(type) {
	case json.Number:
		text = v.String()
	case string:
		text = strings.TrimSpace(v)
		if text == "" {
			return "", false, nil
		}
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "", false, shared.Validationf("%s must be a finite number", name)
		}
		text = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		text = strconv.Itoa(v)
	case int64:
		text = strconv.FormatInt(v, 10)
	default:
		return "", false, shared.Validationf("%s must be numeric", name)
	}
	if !decimalPattern.MatchString(text) {
		return "", false, shared.Validationf("%s must be numeric, got %q", name, text)
	}
	return text, true, nil
}
