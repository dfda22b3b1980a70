// Package web 页面模板和静态资源，编译进二进制
package web

import "embed"

// FS 包含 templates/ 和 static/
//
//go:embed templates static
var FS embed.FS
