package mongo

import (
	"context"
	"testing"
	"time"

	"termcheck/pkg/storage"
)

var mongoTestConf = &Config{
	Host:   "localhost",
	Port:   "27018",
	DBName: "terms_test",
}

// storageConnect connects to the predefined test Mongo instance and skips
// the test when it is not reachable.
func storageConnect(t *testing.T) *Storage {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	db, err := New(ctx, mongoTestConf)
	if err != nil {
		t.Skipf("%v: %v", storage.ErrConnectDB, err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close(ctx)
		t.Skipf("%v: %v", storage.ErrDBNotResponding, err)
	}

	t.Cleanup(func() {
		// Drop the collection to reset the database state.
		if err := db.terms().Drop(context.Background()); err != nil {
			t.Logf("WARNING: unable to restore DB state after the test: %v", err)
		}
		db.Close(context.Background())
	})

	return db
}
