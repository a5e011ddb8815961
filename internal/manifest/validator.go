package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/catalog.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

// ValidationResult contains the outcome of a schema validation.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue is one schema violation.
type ValidationIssue struct {
	Path    string // instance location, e.g. "/files/3/path"
	Entry   string // catalog entry at Path, e.g. `step 2 "git-init"`
	Message string
	Keyword string
}

func (i ValidationIssue) String() string {
	switch {
	case i.Entry != "":
		return i.Entry + " (" + i.Path + "): " + i.Message
	case i.Path != "":
		return i.Path + ": " + i.Message
	}
	return i.Message
}

// entryKinds names the list sections of a catalog and the field that labels
// each of their entries.
var entryKinds = map[string]struct{ noun, label string }{
	"variants":     {"variant", "name"},
	"requirements": {"requirement", "name"},
	"directories":  {"directory", "path"},
	"files":        {"file", "path"},
	"steps":        {"step", "name"},
	"next_steps":   {"note", ""},
}

// describeEntry turns an instance location into the catalog entry it points
// at, numbered from 1 and labelled when the entry has a name or path.
func describeEntry(loc []string, doc any) string {
	if len(loc) < 2 {
		return ""
	}
	kind, ok := entryKinds[loc[0]]
	if !ok {
		return ""
	}
	idx, err := strconv.Atoi(loc[1])
	if err != nil || idx < 0 {
		return ""
	}
	desc := fmt.Sprintf("%s %d", kind.noun, idx+1)

	root, _ := doc.(map[string]any)
	list, _ := root[loc[0]].([]any)
	if kind.label == "" || idx >= len(list) {
		return desc
	}
	entry, _ := list[idx].(map[string]any)
	if label, _ := entry[kind.label].(string); label != "" {
		desc += fmt.Sprintf(" %q", label)
	}
	return desc
}

// getSchema compiles the embedded JSON schema once and returns it.
func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("catalog.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("catalog.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate validates raw YAML bytes against the catalog JSON schema.
// The error return is for YAML syntax or schema compilation failures;
// validation issues are returned in the ValidationResult.
func Validate(data []byte) (*ValidationResult, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	// Round-trip through JSON so the validator sees json.Number values.
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}

	validationErr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}

	issues := extractIssues(validationErr)
	for i := range issues {
		if issues[i].Path != "" {
			issues[i].Entry = describeEntry(strings.Split(strings.TrimPrefix(issues[i].Path, "/"), "/"), raw)
		}
	}
	return &ValidationResult{
		Valid:  false,
		Issues: issues,
	}, nil
}

// extractIssues walks the ValidationError tree and returns leaf-level issues.
// oneOf branches are walked too so step errors name the failing property.
func extractIssues(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	collectValidationIssues(ve, &issues)

	if len(issues) == 0 {
		return []ValidationIssue{{
			Message: ve.Error(),
		}}
	}
	return deduplicateIssues(issues)
}

func collectValidationIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) == 0 {
		path := "/" + strings.Join(ve.InstanceLocation, "/")
		if len(ve.InstanceLocation) == 0 {
			path = ""
		}

		keyword := ""
		msg := ""
		if ve.ErrorKind != nil {
			kwPath := ve.ErrorKind.KeywordPath()
			if len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
			msg = ve.ErrorKind.LocalizedString(printer)
		}

		// Container keywords only repeat what their causes say.
		if keyword == "oneOf" || keyword == "allOf" || keyword == "$ref" || keyword == "" {
			return
		}

		*issues = append(*issues, ValidationIssue{
			Path:    path,
			Message: msg,
			Keyword: keyword,
		})
		return
	}

	for _, cause := range ve.Causes {
		collectValidationIssues(cause, issues)
	}
}

// deduplicateIssues removes duplicate issues (same path + keyword + message).
func deduplicateIssues(issues []ValidationIssue) []ValidationIssue {
	seen := make(map[string]bool)
	var result []ValidationIssue
	for _, issue := range issues {
		key := issue.Path + "|" + issue.Keyword + "|" + issue.Message
		if !seen[key] {
			seen[key] = true
			result = append(result, issue)
		}
	}
	return result
}
