// Package assets bundles the files shipped inside the binaries.
package assets

import "embed"

// Migrations holds the goose SQL migrations, per dialect: migrations/<dialect>/*.sql
//
//go:embed migrations
var Migrations embed.FS

// Templates holds the email templates: templates/email/*.{txt,gohtml}
// The all: prefix keeps the _base layouts.
//
//go:embed all:templates
var Templates embed.FS

const EmailTemplatesDir = "templates/email"

// CommonPasswords is a gzipped, newline separated list of passwords users may not pick.
//
//go:embed common-passwords.txt.gz
var CommonPasswords []byte
