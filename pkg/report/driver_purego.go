//go:build !cgo

package report

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"
