package database

import (
	"fmt"
	"time"
)

const defaultBusyTimeout = 5 * time.Second

// dsn builds the go-sqlite3 connection string. Writers take the database lock
// at BEGIN (_txlock=immediate) so balance read-modify-write cycles serialize
// instead of failing on lock upgrade.
func dsn(path string, busyTimeout time.Duration) string {
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_busy_timeout=%d&_txlock=immediate&_foreign_keys=1",
		path, busyTimeout.Milliseconds())
}
