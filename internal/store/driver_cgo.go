//go:build cgo

package store

import (
	_ "github.com/mattn/go-sqlite3"
)

// driverName is mattn/go-sqlite3's registered name when cgo is available.
const driverName = "sqlite3"
