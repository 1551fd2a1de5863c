//go:build !sqlite3_cgo

package db

import (
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// cgo-free wasm build, runs wherever the server binary does
const driverID = "ncruces/go-sqlite3"
