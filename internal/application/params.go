package application

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
)

// requiredPaths lists the required arguments of a schema as dotted paths.
// A required object with required members of its own contributes its
// members instead of itself, e.g. "project.key".
func requiredPaths(schema *jsonschema.Schema) []string {
	var paths []string
	for _, name := range schema.Required {
		prop := schema.Properties[name]
		if prop != nil && schemaType(prop) == "object" && len(prop.Required) > 0 {
			for _, nested := range requiredPaths(prop) {
				paths = append(paths, name+"."+nested)
			}
			continue
		}
		paths = append(paths, name)
	}
	return paths
}

// missingArguments returns the paths that are absent or null in args.
func missingArguments(args map[string]interface{}, paths []string) []string {
	var missing []string
	for _, path := range paths {
		if !present(args, strings.Split(path, ".")) {
			missing = append(missing, path)
		}
	}
	return missing
}

func present(args map[string]interface{}, path []string) bool {
	value, ok := args[path[0]]
	if !ok || value == nil {
		return false
	}
	if len(path) == 1 {
		return true
	}
	nested, ok := value.(map[string]interface{})
	if !ok {
		return false
	}
	return present(nested, path[1:])
}

// coerceArguments returns a copy of args shaped after schema: defaults are
// filled in, nulls are dropped unless the property accepts null, integers
// are truncated and parsed from numeric strings, and scalars are turned
// into strings where a string is expected. Values that cannot be coerced
// are left alone for the validator to reject.
func coerceArguments(schema *jsonschema.Schema, args map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(args))
	for name, value := range args {
		out[name] = value
	}

	for name, prop := range schema.Properties {
		value, ok := out[name]
		if ok && value == nil && !acceptsNull(prop) {
			delete(out, name)
			ok = false
		}

		if !ok {
			if len(prop.Default) > 0 {
				var def interface{}
				if err := json.Unmarshal(prop.Default, &def); err == nil {
					out[name] = def
				}
			}
			continue
		}

		out[name] = coerceValue(prop, value)
	}

	return out
}

func coerceValue(prop *jsonschema.Schema, value interface{}) interface{} {
	if value == nil {
		return nil
	}

	switch schemaType(prop) {
	case "integer":
		switch v := value.(type) {
		case float64:
			return math.Trunc(v)
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return math.Trunc(f)
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return math.Trunc(f)
			}
		}
	case "string":
		switch v := value.(type) {
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case int:
			return strconv.Itoa(v)
		case bool:
			return strconv.FormatBool(v)
		case json.Number:
			return v.String()
		}
	case "object":
		if v, ok := value.(map[string]interface{}); ok {
			return coerceArguments(prop, v)
		}
	case "array":
		switch v := value.(type) {
		case []string:
			items := make([]interface{}, len(v))
			for i, s := range v {
				items[i] = s
			}
			return items
		case []interface{}:
			if prop.Items == nil {
				return v
			}
			items := make([]interface{}, len(v))
			for i, item := range v {
				items[i] = coerceValue(prop.Items, item)
			}
			return items
		}
	}

	return value
}

// schemaType returns the single non-null type of a property.
func schemaType(prop *jsonschema.Schema) string {
	if prop.Type != "" {
		return prop.Type
	}
	for _, t := range prop.Types {
		if t != "null" {
			return t
		}
	}
	return ""
}

func acceptsNull(prop *jsonschema.Schema) bool {
	for _, t := range prop.Types {
		if t == "null" {
			return true
		}
	}
	return false
}

// decodeArguments decodes args into the typed argument struct of a tool,
// rejecting arguments the tool does not declare.
func decodeArguments(args map[string]interface{}, target interface{}) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to marshal arguments: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return err
	}
	return nil
}

// sortedKeys returns the keys of m in lexical order.
func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
