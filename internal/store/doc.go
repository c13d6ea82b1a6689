// Package store persists Kindle excerpts and their generated cards in a
// local SQLite database, which is the ground truth for every other component.
package store
