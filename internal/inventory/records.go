package inventory

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/shoeshelf/internal/models"
)

// parsePrice reads a stored price. Documents written by older clients may
// carry the price as a string.
func parsePrice(v any) (float64, bool) {
	var p float64
	switch x := v.(type) {
	case float64:
		p = x
	case int:
		p = float64(x)
	case int64:
		p = float64(x)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		p = f
	default:
		return 0, false
	}
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

// parseTimestamp reads a stored timestamp: RFC 3339 text, a time.Time from
// an in-process store, or Unix milliseconds.
func parseTimestamp(v any) time.Time {
	switch x := v.(type) {
	case time.Time:
		return x
	case string:
		if t, err := time.Parse(time.RFC3339Nano, x); err == nil {
			return t
		}
	case float64:
		return time.UnixMilli(int64(x))
	}
	return time.Time{}
}

func itemFields(userID string, item models.Item, now time.Time) map[string]any {
	return map[string]any{
		models.FieldUserID:    userID,
		models.FieldShoeName:  item.Name,
		models.FieldPrice:     item.Price,
		models.FieldTimestamp: now.UTC().Format(time.RFC3339Nano),
	}
}

func viewFields(view models.ViewEvent) map[string]any {
	return map[string]any{
		models.FieldUserID:    view.UserID,
		models.FieldShoeName:  view.ItemNames,
		models.FieldDetails:   view.Details,
		models.FieldTimestamp: view.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func viewFromDocument(doc models.Document) models.ViewEvent {
	return models.ViewEvent{
		ID:        doc.ID,
		UserID:    doc.String(models.FieldUserID),
		ItemNames: doc.String(models.FieldShoeName),
		Details:   doc.String(models.FieldDetails),
		CreatedAt: parseTimestamp(doc.Fields[models.FieldTimestamp]),
	}
}
