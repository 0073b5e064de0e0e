package factory

import (
	"fmt"
	"sort"
)

// Symbol is a symbol-like identifier. A Symbol and a string with the same
// text name the same factory or trait.
type Symbol string

func (s Symbol) String() string {
	return string(s)
}

// Overrides maps attribute names to inline values. A Compute value is
// evaluated lazily like any declared attribute; every other value, nil
// included, is used as is.
type Overrides map[string]any

func canonicalName(ref any) (string, bool) {
	var name string
	switch v := ref.(type) {
	case string:
		name = v
	case Symbol:
		name = string(v)
	default:
		return "", false
	}
	if name == "" {
		return "", false
	}
	return name, true
}

func describeRef(ref any) string {
	switch v := ref.(type) {
	case nil:
		return "<nil>"
	case string:
		return v
	case Symbol:
		return string(v)
	default:
		return fmt.Sprintf("%v (%T)", v, v)
	}
}

// canonicalTraits canonicalises every trait reference, failing on the first
// value that is not a name.
func canonicalTraits(refs []any) ([]string, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		name, ok := canonicalName(ref)
		if !ok {
			return nil, &NotFoundError{Kind: "trait", Name: describeRef(ref)}
		}
		names = append(names, name)
	}
	return names, nil
}

// callArgs is the parsed variadic tail of an entry point call.
type callArgs struct {
	traits      []string
	overrides   Overrides
	constructor Constructor
	persistor   Persistor
}

func parseArgs(args []any) (callArgs, error) {
	var parsed callArgs
	for _, arg := range args {
		switch v := arg.(type) {
		case string, Symbol:
			name, ok := canonicalName(v)
			if !ok {
				return callArgs{}, &NotFoundError{Kind: "trait", Name: describeRef(v)}
			}
			parsed.traits = append(parsed.traits, name)
		case []string:
			for _, ref := range v {
				name, ok := canonicalName(ref)
				if !ok {
					return callArgs{}, &NotFoundError{Kind: "trait", Name: describeRef(ref)}
				}
				parsed.traits = append(parsed.traits, name)
			}
		case []Symbol:
			for _, ref := range v {
				name, ok := canonicalName(ref)
				if !ok {
					return callArgs{}, &NotFoundError{Kind: "trait", Name: describeRef(ref)}
				}
				parsed.traits = append(parsed.traits, name)
			}
		case Overrides:
			parsed.overrides = mergeOverrides(parsed.overrides, v)
		case map[string]any:
			parsed.overrides = mergeOverrides(parsed.overrides, v)
		case Constructor:
			parsed.constructor = v
		case Persistor:
			parsed.persistor = v
		default:
			return callArgs{}, &NotFoundError{Kind: "trait", Name: describeRef(arg)}
		}
	}
	return parsed, nil
}

func mergeOverrides(dst Overrides, src map[string]any) Overrides {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(Overrides, len(src))
	}
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
