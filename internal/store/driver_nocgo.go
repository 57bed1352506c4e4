//go:build !cgo

package store

import (
	_ "modernc.org/sqlite"
)

// driverName is modernc.org/sqlite's registered name, used on builds
// without cgo (e.g. cross-compiled or CGO_ENABLED=0), matching the
// teacher's pure-Go fallback driver.
const driverName = "sqlite"
