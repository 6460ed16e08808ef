//go:build libsql

package db

import (
	_ "github.com/tursodatabase/go-libsql"
)

// DriverLibSQL is the embedded libSQL driver. It needs cgo and is only
// compiled with the libsql build tag.
const DriverLibSQL = "libsql"

func init() {
	drivers[DriverLibSQL] = driverSpec{
		name: "libsql",
		dsn: func(path string) string {
			return "file:" + path
		},
		maxOpenConns: 1,
		pragmas: []string{
			"PRAGMA foreign_keys=ON",
			"PRAGMA busy_timeout=5000",
		},
	}
}
