package scaffold

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/iancoleman/strcase"

	"github.com/itsrobel/qs/internal/apperr"
)

var funcMap = template.FuncMap{
	"kebab":      strcase.ToKebab,
	"snake":      strcase.ToSnake,
	"camel":      strcase.ToCamel,
	"lowerCamel": strcase.ToLowerCamel,
	"upper":      strings.ToUpper,
	"lower":      strings.ToLower,
}

// Render substitutes the spec's placeholders into text. Any placeholder the
// spec does not define is a Template error naming name.
func (s *ScaffoldSpec) Render(name, text string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(funcMap).Parse(text)
	if err != nil {
		return "", apperr.New(apperr.Template, name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, s.data); err != nil {
		return "", apperr.New(apperr.Template, name, err)
	}
	return buf.String(), nil
}
