// Package models defines the core domain models for shoeshelf.
//
// # Models
//
//   - Item: a shoe on the user's list (name + price)
//   - Document: a record in the hosted document store, addressed by Ref
//   - ViewEvent: one successful enrichment fetch, kept as view history
//   - Session: the anonymous identity every read and write is scoped by
//
// # Collections
//
// Items live in the "shoes" collection and view events in "shoeViews".
// Both are scoped by the "userId" field. Field names match the documents
// written by earlier clients, so they are exported as constants here and
// not spelled out at each call site.
package models
