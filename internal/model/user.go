// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents an account that owns an ordered collection of books.
//
// The books live INSIDE the user record (an "embedded collection"), not in a
// separate table/collection. That mirrors how a document store holds them and
// keeps every book operation a single-document write.
//
// WHY ID string (not int)?
// The ID is store-assigned and opaque: we generate an xid on insert and use
// the same string as the Mongo `_id`. Application-visible sequential integers
// are reserved for Book IDs, which are scoped to one user (see Book).
//
// WHY Version int64?
// Every mutation of the Books slice bumps Version by exactly one, and every
// write of the slice is conditional on the Version the writer last read.
// This is the optimistic-concurrency token that turns a silently lost update
// into a retryable conflict. It never decreases.
//
// The bson tags exist so the same struct round-trips through the MongoDB
// backend; the memory and SQLite backends ignore them.
type User struct {
	ID           string    `json:"id"              bson:"_id"`
	Name         string    `json:"name"            bson:"name"`
	Email        string    `json:"email,omitempty" bson:"email,omitempty"`
	PasswordHash string    `json:"-"               bson:"password,omitempty"` // bcrypt hash, never serialized to clients
	Books        []Book    `json:"books"           bson:"books"`
	Version      int64     `json:"-"               bson:"version"`
	CreatedAt    time.Time `json:"createdAt"       bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"       bson:"updatedAt"`
}

// NextBookID returns the ID a book appended right now would receive.
//
// Book IDs are assigned as len(books)+1 at insertion time. They stay unique
// within one user only while removals come off the tail: after removing book
// 1 from a user with two books, the next append reuses ID 2. That is the
// system's documented contract — callers must not treat book IDs as stable
// or globally unique.
func (u *User) NextBookID() int {
	return len(u.Books) + 1
}

// Book is one entry in a user's embedded book list.
// Insertion order is significant; titles are free text and not deduplicated.
type Book struct {
	ID    int    `json:"id"    bson:"id"`
	Title string `json:"title" bson:"title"`
}
