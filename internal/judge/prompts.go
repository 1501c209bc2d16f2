package judge

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/judge_rubric.md
var rubric string

const userTemplateRaw = `User prompt:
{{.Prompt}}

Model responses:
{{.Block}}`

// userTemplate renders the per-audit part of the judge request.
var userTemplate = template.Must(template.New("judge_user").Parse(userTemplateRaw))
