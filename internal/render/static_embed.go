package render

import "embed"

// StaticFS holds the browser scripts served under /static/js/.
//
//go:embed static/js/*.js
var StaticFS embed.FS
