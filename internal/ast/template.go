package ast

import "regexp"

var templateRefPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// TemplateRefs extracts the referenced variable names from a d-string
// template, in order of first appearance, without duplicates.
func TemplateRefs(template string) []string {
	var refs []string
	seen := make(map[string]bool)
	for _, m := range templateRefPattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if !seen[name] {
			seen[name] = true
			refs = append(refs, name)
		}
	}
	return refs
}
