// Package harness runs query scenarios against a fresh database.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: deposit_join
//	description: "Lines reach their receiver through deposits"
//	schema: schema.sql        # optional, relative to the scenario file
//	driver: sqlite3           # optional, sqlite3 or sqlite
//	steps:
//	  - op: insert_one
//	    request:
//	      table: users
//	      fields: [user_code, user_name]
//	      values: [1001, Ada]
//	      on_conflict: none
//	  - op: read_many
//	    request:
//	      table: users
//	      conditions:
//	        - {field: user_name, op: ilike, value: "ada"}
//	    expect:
//	      rows: 1
//	      record: {user_code: 1001}
//
// Without a schema file the deposit-return schema is used. Each step is
// compiled, recorded in the trace and executed in one session; commit
// defaults to true. An expected error names a code such as UNKNOWN_FIELD;
// failures that are not query errors have code EXECUTION.
//
// # Deterministic Testing
//
// Every scenario runs in its own in-memory database and the trace holds
// only compiled SQL, encoded parameters, row counts and error codes, so
// the same scenario always yields the same trace. RunWithGolden compares
// it with testdata/golden/<name>.golden.
package harness
