package validation

import (
	_ "embed"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/reglet-dev/reglet-addon-host/parser"
	"github.com/reglet-dev/reglet-addon-host/plugin/entities"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "https://reglet.dev/schemas/addon-manifest.schema.json"

//go:embed schemas/manifest.schema.json
var manifestSchema []byte

// ManifestSchema returns the JSON Schema manifests are checked against.
func ManifestSchema() []byte {
	return slices.Clone(manifestSchema)
}

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(string(manifestSchema))); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// ValidateDocument checks a raw manifest document against the JSON Schema and
// then, when it still decodes into a manifest, through Validate. Problems from
// both passes are reported together; a field the schema already complained
// about is not reported twice. The manifest is returned only when the schema
// pass found nothing.
//
// The error result is reserved for documents that cannot be decoded at all.
func ValidateDocument(raw []byte, format parser.Format) (*entities.Manifest, []ValidationError, error) {
	p, err := parser.ForFormat(format)
	if err != nil {
		return nil, nil, err
	}
	doc, err := p.Document(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}

	sch, err := compiled()
	if err != nil {
		return nil, nil, fmt.Errorf("compile manifest schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		ve, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return nil, nil, err
		}
		problems := schemaErrors(ve)
		if m, perr := p.Parse(raw); perr == nil {
			for _, e := range Validate(m) {
				if !covered(problems, e.Field) {
					problems = append(problems, e)
				}
			}
		}
		return nil, problems, nil
	}

	m, err := p.Parse(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("decode manifest: %w", err)
	}
	return m, Validate(m), nil
}

// covered reports whether a schema problem already names field, itself, an
// enclosing value, or as a missing property of its parent.
func covered(problems []ValidationError, field string) bool {
	parent, leaf := splitField(field)
	for _, p := range problems {
		switch {
		case p.Field == field:
			return true
		case p.Field != "" && (strings.HasPrefix(field, p.Field+".") || strings.HasPrefix(field, p.Field+"[")):
			return true
		case p.Field == parent && strings.Contains(p.Message, "'"+leaf+"'"):
			return true
		}
	}
	return false
}

// splitField turns "dependencies[0].name" into "dependencies[0]" and "name".
func splitField(field string) (parent, leaf string) {
	if i := strings.LastIndexByte(field, '.'); i >= 0 {
		return field[:i], field[i+1:]
	}
	return "", field
}

// schemaErrors flattens the leaves of a schema validation error tree.
func schemaErrors(root *jsonschema.ValidationError) []ValidationError {
	var out []ValidationError
	seen := make(map[string]struct{})
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := pointerToField(e.InstanceLocation)
			key := field + "\x00" + e.Message
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}
				out = append(out, ValidationError{Field: field, Message: e.Message})
			}
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(root)
	return out
}

// pointerToField turns "/dependencies/0/name" into "dependencies[0].name".
func pointerToField(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range strings.Split(ptr, "/") {
		seg = strings.NewReplacer("~1", "/", "~0", "~").Replace(seg)
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(seg)
	}
	return b.String()
}
