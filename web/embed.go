// Package web embeds the dashboard page template and its static assets.
package web

import "embed"

// TemplatesFS holds the server-rendered pages.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the stylesheet and script served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
