// Package scripts embeds the bundled Risor visitor scripts.
package scripts

import "embed"

// FS holds the visitor scripts under visit/.
//
//go:embed visit/*.risor
var FS embed.FS
