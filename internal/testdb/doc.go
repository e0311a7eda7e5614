// Package testdb provides helpers for tests that need a real PostgreSQL
// database. Tests locate the database through DATABASE_URL (or
// TASKD_TEST_DB_URL), skip themselves when none is configured, and isolate
// their writes in a transaction that is always rolled back.
//
// A typical integration test:
//
//	func TestSomething(t *testing.T) {
//		db := testdb.Open(t, postgres.Open)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			// use tx
//		})
//	}
package testdb
