package webassets

import "embed"

// Templates contains the server-rendered HTML pages.
//
//go:embed templates/*.tmpl
var Templates embed.FS

// FS contains the static assets served verbatim.
//
//go:embed static/*
var FS embed.FS
