package assets

import _ "embed"

// MenuJSON is the default tool menu served by the web shell.
//
//go:embed menu.json
var MenuJSON []byte
