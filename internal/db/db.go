// Package db reads hive readings from ScyllaDB.
package db

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"
)

// DB reads the readings_by_path table:
//
//	CREATE TABLE readings_by_path (
//	    path text,
//	    timestamp timestamp,
//	    temperature decimal,
//	    humidity decimal,
//	    soil_moisture decimal,
//	    co2_level boolean,
//	    PRIMARY KEY (path, timestamp)
//	) WITH CLUSTERING ORDER BY (timestamp DESC)
//
// Every path is a partition and rows are clustered newest first, so the
// current reading is the first row and the history is the first N rows.
type DB struct {
	Data *gocql.Session // sensors_data
}

func New(dataSess *gocql.Session) *DB {
	return &DB{
		Data: dataSess,
	}
}

// Connect opens a session on keyspace.
func Connect(hosts []string, keyspace string, timeout time.Duration) (*DB, error) {
	cluster := gocql.NewCluster(hosts...)
	cluster.Keyspace = keyspace
	cluster.Timeout = timeout
	cluster.Consistency = gocql.LocalOne
	// Development clusters expose a single node behind a proxy.
	cluster.DisableInitialHostLookup = true
	cluster.DisableShardAwarePort = true

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("unable to connect: %w", err)
	}
	return New(sess), nil
}

func (db *DB) Close() {
	if db.Data != nil {
		db.Data.Close()
	}
}
