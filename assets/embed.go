package assets

import (
	"embed"
	"io/fs"
)

//go:embed themes.yaml sql/*.sql
var FS embed.FS

// Themes returns the bundled theme definitions (YAML).
func Themes() ([]byte, error) {
	return FS.ReadFile("themes.yaml")
}

// Migrations returns the bundled SQL migrations rooted at their directory.
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, "sql")
}
