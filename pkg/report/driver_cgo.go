//go:build cgo

package report

import (
	_ "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"
