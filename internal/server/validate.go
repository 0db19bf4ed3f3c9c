package server

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"rhdh-mcp/internal/toolerr"
)

// argCheck validates a single declared property.
type argCheck struct {
	name     string
	prop     Property
	required bool
	schema   *gojsonschema.Schema
}

// compileChecks turns a tool schema into an ordered list of property checks.
// Required fields keep their declared order, optional fields follow sorted by
// name, and the whole list is then stably ordered by ArgKind.
func compileChecks(t Tool) ([]argCheck, error) {
	props := t.InputSchema.Properties
	required := make(map[string]bool, len(t.InputSchema.Required))
	names := make([]string, 0, len(props))
	for _, name := range t.InputSchema.Required {
		if _, ok := props[name]; !ok {
			return nil, fmt.Errorf("tool %s: required field %q is not a declared property", t.Name, name)
		}
		if !required[name] {
			required[name] = true
			names = append(names, name)
		}
	}
	var optional []string
	for name := range props {
		if !required[name] {
			optional = append(optional, name)
		}
	}
	sort.Strings(optional)
	names = append(names, optional...)

	checks := make([]argCheck, 0, len(names))
	for _, name := range names {
		prop := props[name]
		raw, err := json.Marshal(map[string]any{"type": prop.Type})
		if err != nil {
			return nil, fmt.Errorf("tool %s: marshal schema for %q: %w", t.Name, name, err)
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("tool %s: compile schema for %q: %w", t.Name, name, err)
		}
		checks = append(checks, argCheck{name: name, prop: prop, required: required[name], schema: schema})
	}
	slices.SortStableFunc(checks, func(a, b argCheck) int { return int(a.prop.Kind) - int(b.prop.Kind) })
	return checks, nil
}

// validateArgs runs checks in order and reports the first failure. Arguments
// that are not declared are ignored.
func validateArgs(tool string, checks []argCheck, args map[string]any) error {
	for _, c := range checks {
		v, ok := args[c.name]
		if !ok {
			if c.required {
				return toolerr.Missing(tool, c.name)
			}
			continue
		}
		if isBlank(v) {
			if c.required {
				return toolerr.Invalid(tool, c.name, "must not be blank")
			}
			continue
		}

		res, err := c.schema.Validate(gojsonschema.NewGoLoader(v))
		if err != nil {
			return toolerr.Invalid(tool, c.name, err.Error())
		}
		if !res.Valid() {
			msgs := make([]string, 0, len(res.Errors()))
			for _, e := range res.Errors() {
				msgs = append(msgs, e.Description())
			}
			return toolerr.Invalid(tool, c.name, "has wrong type: "+strings.Join(msgs, "; "))
		}

		if s, ok := v.(string); ok && c.prop.Kind == KindURL {
			if err := checkURL(s); err != nil {
				return toolerr.Invalid(tool, c.name, err.Error())
			}
		}
	}
	return nil
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func checkURL(raw string) error {
	if strings.TrimSpace(raw) != raw {
		return fmt.Errorf("must not have surrounding whitespace")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL: %v", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	return nil
}
