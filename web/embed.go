// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package web embeds the HTML templates and static assets.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var Templates embed.FS

//go:embed all:static
var Static embed.FS

// TemplatesRoot returns the template tree with layouts/, partials/ and
// pages/ at its root.
func TemplatesRoot() fs.FS {
	return mustSub(Templates, "templates")
}

// StaticRoot returns the static assets served under /static/.
func StaticRoot() fs.FS {
	return mustSub(Static, "static")
}

// mustSub only fails on an invalid directory name.
func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
