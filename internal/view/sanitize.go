package view

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

func newPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("br")
	return policy
}

// Rich sanitizes backend-provided text and keeps its line breaks.
func (e *Engine) Rich(text string) template.HTML {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	clean := e.policy.Sanitize(text)
	return template.HTML(strings.ReplaceAll(clean, "\n", "<br>"))
}
