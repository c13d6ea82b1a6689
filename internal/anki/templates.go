package anki

import "embed"

//go:embed templates
var templatesFS embed.FS

func loadTemplate(name string) string {
	data, err := templatesFS.ReadFile("templates/" + name)
	if err != nil {
		// The templates are compiled in; a missing one is a packaging bug.
		panic("anki template missing: " + name)
	}
	return string(data)
}
