package catalogstore

import "database/sql"

// NewEmpty opens a fresh in-memory catalog with the schema applied but no
// rows, for tests that build their own fixture data rather than round
// tripping through a disk snapshot.
func NewEmpty() (*Store, error) {
	mem, err := sql.Open("sqlite3", memoryDSN())
	if err != nil {
		return nil, err
	}
	mem.SetMaxOpenConns(1)

	if _, err := mem.Exec(Schema); err != nil {
		_ = mem.Close()
		return nil, err
	}

	return &Store{mem: mem, dbPath: ""}, nil
}
