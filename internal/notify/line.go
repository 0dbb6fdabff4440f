// Package notify adapts outbound messaging clients to the crawl pipeline's
// notification boundary.
package notify

import (
	"context"
	"fmt"

	"github.com/mfurukawa/dellwatch/internal/models"
	"github.com/mfurukawa/dellwatch/pkg/line"
)

// LineNotifier formats price-change events as LINE broadcast messages.
type LineNotifier struct {
	client *line.Client
}

// NewLineNotifier creates a LineNotifier over the given client.
func NewLineNotifier(client *line.Client) *LineNotifier {
	return &LineNotifier{client: client}
}

// NotifyPriceChange sends one broadcast describing the change.
func (n *LineNotifier) NotifyPriceChange(ctx context.Context, ev models.PriceChangeEvent) error {
	return n.client.Broadcast(ctx, FormatPriceChange(ev))
}

// FormatPriceChange renders the notification text for a change event.
func FormatPriceChange(ev models.PriceChangeEvent) string {
	return fmt.Sprintf(
		"価格変動がありました\n%s (%s)\n%s円 → %s円\n%s",
		ev.Name, ev.Model, formatYen(ev.OldPrice), formatYen(ev.NewPrice), ev.URL,
	)
}

// formatYen renders an integer price with thousands separators.
func formatYen(v int64) string {
	s := fmt.Sprintf("%d", v)
	neg := false
	if len(s) > 0 && s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

// NopNotifier discards every event. Used when no channel token is
// configured so the pipeline still runs end to end.
type NopNotifier struct{}

// NotifyPriceChange does nothing.
func (NopNotifier) NotifyPriceChange(context.Context, models.PriceChangeEvent) error {
	return nil
}
