package db

import (
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DriverSQLite is the embedded (WebAssembly) SQLite driver.
const DriverSQLite = "sqlite3"

type driverSpec struct {
	name         string
	dsn          func(path string) string
	maxOpenConns int
	// pragmas run once after opening, for drivers that cannot take them in
	// the DSN. They only reach every connection when maxOpenConns is 1.
	pragmas []string
}

var drivers = map[string]driverSpec{
	DriverSQLite: {
		name: "sqlite3",
		dsn: func(path string) string {
			return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)", path)
		},
		maxOpenConns: 4,
	},
}

// Drivers lists the driver names compiled into this binary.
func Drivers() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}
