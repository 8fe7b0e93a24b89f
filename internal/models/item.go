package models

import (
	"fmt"
	"math"
	"strings"
)

// Item represents a single shoe on a user's list.
type Item struct {
	// Name is the trimmed, non-empty display name. Unique within one user's list.
	Name string `json:"name"`

	// Price is a finite, positive amount in dollars.
	Price float64 `json:"price"`
}

// ValidPrice reports whether p can be stored as an item price.
func ValidPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// FormatPrice renders a price the way the list shows it.
func FormatPrice(p float64) string {
	return fmt.Sprintf("$%.2f", p)
}

// JoinNames joins item names for a view event ("Air Max, Gel-Kayano").
func JoinNames(items []Item) string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return strings.Join(names, ", ")
}
