package workflow

import "regexp"

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{field}} placeholders in a template from the
// entity snapshot. Placeholders with no matching key are left literal
// so broken templates are visible in the output instead of silently
// blanked.
func Render(template string, snap Snapshot) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(match string) string {
		key := placeholderRe.FindStringSubmatch(match)[1]
		if value, ok := snap[key]; ok {
			return value
		}
		return match
	})
}
