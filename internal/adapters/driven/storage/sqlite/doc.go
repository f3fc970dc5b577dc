// Package sqlite persists the vector index in a single SQLite file using
// the pure Go modernc.org/sqlite driver, so the binary needs no cgo.
//
// Document records and chunks share one database. Similarity is computed
// in process over the rows a scope selects; the database only filters and
// orders. The schema lives in migrations/ and is applied on open.
//
// index_meta pins the embedding model the stored vectors came from, so a
// changed embedding.model cannot silently mix incomparable vectors.
package sqlite
