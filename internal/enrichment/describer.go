package enrichment

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/shoeshelf/internal/models"
)

// Describer produces details text for a list of shoes.
type Describer interface {
	Describe(ctx context.Context, items []models.Item) (string, error)
}

// CatalogDescriber builds details from the list itself. It is used when no
// language model is configured.
type CatalogDescriber struct{}

// Describe lists each shoe with its price, then a total for the list.
func (CatalogDescriber) Describe(_ context.Context, items []models.Item) (string, error) {
	var (
		b     strings.Builder
		total float64
	)
	for _, item := range items {
		fmt.Fprintf(&b, "%s: %s per pair.\n", item.Name, models.FormatPrice(item.Price))
		total += item.Price
	}
	pairs := "pair"
	if len(items) != 1 {
		pairs = "pairs"
	}
	fmt.Fprintf(&b, "Total for %d %s: %s.", len(items), pairs, models.FormatPrice(total))
	return b.String(), nil
}
