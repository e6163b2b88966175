package service

import (
	"strings"

	"github.com/cadencehq/outreach-backend/internal/model"
)

// RenderTemplate substitutes {placeholder} tokens with lead data. Empty values
// render as <unknown> so a half-filled lead never produces a bare gap.
func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "<unknown>"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

func leadVars(l *model.Lead) map[string]string {
	return map[string]string{
		"first_name": l.FirstName,
		"last_name":  l.LastName,
		"company":    l.Company,
		"email":      l.Email,
		"phone":      l.Phone,
	}
}
