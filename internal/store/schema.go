package store

import _ "embed"

// Schema is the bundled schema applied by Migrate. Embedding it keeps the
// binary self-contained: no separate schema.sql to ship alongside it.
//
//go:embed schema.sql
var Schema string
