package patterns

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/haycash/docextract/internal/common"
	"github.com/haycash/docextract/internal/entity"
)

// familyFile is the on-disk JSON shape of a user-supplied pattern set.
type familyFile struct {
	Family       string      `json:"family"`
	EntityField  string      `json:"entity_field,omitempty"`
	DateField    string      `json:"date_field,omitempty"`
	SplitPerPage bool        `json:"split_per_page,omitempty"`
	DedupeField  string      `json:"dedupe_field,omitempty"`
	Sniff        string      `json:"sniff,omitempty"`
	Fields       []fieldFile `json:"fields"`
}

type fieldFile struct {
	Name     string      `json:"name"`
	Pattern  string      `json:"pattern"`
	Group    int         `json:"group,omitempty"`
	Kind     string      `json:"kind"`
	Scheme   string      `json:"scheme,omitempty"`
	Required bool        `json:"required,omitempty"`
	Anchor   *anchorFile `json:"anchor,omitempty"`
}

type anchorFile struct {
	Pattern string `json:"pattern"`
	Window  int    `json:"window,omitempty"`
	Prefer  string `json:"prefer,omitempty"`
}

var familySchema = map[string]any{
	"$schema":              "https://json-schema.org/draft/2020-12/schema",
	"type":                 "object",
	"required":             []any{"family", "fields"},
	"additionalProperties": false,
	"properties": map[string]any{
		"family":         map[string]any{"type": "string", "minLength": 1},
		"entity_field":   map[string]any{"type": "string"},
		"date_field":     map[string]any{"type": "string"},
		"split_per_page": map[string]any{"type": "boolean"},
		"dedupe_field":   map[string]any{"type": "string"},
		"sniff":          map[string]any{"type": "string"},
		"fields": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":                 "object",
				"required":             []any{"name", "pattern", "kind"},
				"additionalProperties": false,
				"properties": map[string]any{
					"name":    map[string]any{"type": "string", "minLength": 1},
					"pattern": map[string]any{"type": "string", "minLength": 1},
					"group":   map[string]any{"type": "integer", "minimum": 0},
					"kind": map[string]any{
						"type": "string",
						"enum": []any{"currency", "percent", "date", "identifier", "free-text"},
					},
					"scheme":   map[string]any{"type": "string"},
					"required": map[string]any{"type": "boolean"},
					"anchor": map[string]any{
						"type":                 "object",
						"required":             []any{"pattern"},
						"additionalProperties": false,
						"properties": map[string]any{
							"pattern": map[string]any{"type": "string", "minLength": 1},
							"window":  map[string]any{"type": "integer", "minimum": 1},
							"prefer": map[string]any{
								"type": "string",
								"enum": []any{"nearest", "first", "last", "before"},
							},
						},
					},
				},
			},
		},
	},
}

var compiledFamilySchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	raw, err := json.Marshal(familySchema)
	if err != nil {
		panic(fmt.Sprintf("marshal family schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("family-schema.json", bytes.NewReader(raw)); err != nil {
		panic(fmt.Sprintf("add family schema: %v", err))
	}
	s, err := c.Compile("family-schema.json")
	if err != nil {
		panic(fmt.Sprintf("compile family schema: %v", err))
	}
	return s
}

// LoadFamilyFile reads a user-defined pattern set from a JSON file, validates
// it against the schema, and compiles it into a Family. All regexes are
// compiled here so a malformed set is rejected at registration, not mid-batch.
func LoadFamilyFile(path string) (Family, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Family{}, fmt.Errorf("read pattern set %s: %w", path, err)
	}
	return ParseFamily(raw)
}

// ParseFamily validates and compiles a JSON pattern set.
func ParseFamily(raw []byte) (Family, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Family{}, fmt.Errorf("%w: pattern set is not valid JSON: %v", common.ErrInvalidInput, err)
	}
	if err := compiledFamilySchema.Validate(doc); err != nil {
		return Family{}, fmt.Errorf("%w: pattern set rejected by schema: %v", common.ErrInvalidInput, err)
	}

	var ff familyFile
	if err := json.Unmarshal(raw, &ff); err != nil {
		return Family{}, fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	fam := Family{
		Name:         ff.Family,
		EntityField:  ff.EntityField,
		DateField:    ff.DateField,
		SplitPerPage: ff.SplitPerPage,
		DedupeField:  ff.DedupeField,
	}
	if ff.Sniff != "" {
		re, err := regexp.Compile(ff.Sniff)
		if err != nil {
			return Family{}, fmt.Errorf("%w: sniff pattern: %v", common.ErrInvalidInput, err)
		}
		fam.Sniff = re
	}

	for _, fd := range ff.Fields {
		re, err := regexp.Compile(fd.Pattern)
		if err != nil {
			return Family{}, fmt.Errorf("%w: field %q pattern: %v", common.ErrInvalidInput, fd.Name, err)
		}
		fp := entity.FieldPattern{
			Name:     fd.Name,
			Family:   ff.Family,
			Pattern:  re,
			Group:    fd.Group,
			Kind:     entity.ValueKind(fd.Kind),
			Scheme:   fd.Scheme,
			Required: fd.Required,
		}
		if fd.Anchor != nil {
			are, err := regexp.Compile(fd.Anchor.Pattern)
			if err != nil {
				return Family{}, fmt.Errorf("%w: field %q anchor: %v", common.ErrInvalidInput, fd.Name, err)
			}
			prefer := entity.AnchorPreference(fd.Anchor.Prefer)
			if prefer == "" {
				prefer = entity.PreferNearest
			}
			window := fd.Anchor.Window
			if window <= 0 {
				window = 120
			}
			fp.Anchor = &entity.Anchor{Pattern: are, Window: window, Prefer: prefer}
		}
		fam.Patterns = append(fam.Patterns, fp)
	}
	return fam, nil
}
