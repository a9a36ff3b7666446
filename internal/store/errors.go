package store

import "errors"

// ErrStorageLock signals the backing Database's own synchronization
// failed (e.g. a poisoned lock or a dropped connection) — fatal to the
// scrub pass that triggered it.
var ErrStorageLock = errors.New("store: storage lock failure")

// ErrStorageInsert signals the backing Database rejected a write —
// non-fatal; the caller retries once before marking the chunk unprocessed.
var ErrStorageInsert = errors.New("store: storage insert failure")

// ErrNotFound signals a key has no stored record.
var ErrNotFound = errors.New("store: key not found")
