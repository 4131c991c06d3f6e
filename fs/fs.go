// Package appfs embeds the files shipped within the binaries: SQL migrations and assets.
package appfs

import "embed"

//go:embed migrations/*.sql all:assets
var FS embed.FS
