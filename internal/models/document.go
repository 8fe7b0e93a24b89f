package models

// Collection names in the document store.
const (
	CollectionItems = "shoes"
	CollectionViews = "shoeViews"
)

// Document field names.
const (
	FieldUserID    = "userId"
	FieldShoeName  = "shoeName"
	FieldPrice     = "price"
	FieldDetails   = "details"
	FieldTimestamp = "timestamp"
)

// Ref addresses one document.
type Ref struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
}

// Document is a schemaless record in the document store.
// Fields round-trip through JSON, so numbers come back as float64 and
// timestamps as RFC 3339 strings.
type Document struct {
	// ID is the store-assigned identifier (UUID format).
	ID string `json:"id"`

	// Collection is the logical collection the document belongs to.
	Collection string `json:"collection"`

	// Fields holds the document body.
	Fields map[string]any `json:"fields"`

	// CreatedAt is the Unix timestamp (nanoseconds) when the store accepted the document.
	CreatedAt int64 `json:"created_at"`
}

// Ref returns the reference that addresses d.
func (d Document) Ref() Ref {
	return Ref{Collection: d.Collection, ID: d.ID}
}

// String returns the field as a string, or "" if absent or not a string.
func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}
