package kafka

import (
	"strings"

	"github.com/polkiloo/orderflow/internal/domain/model"
)

// laneTopic maps a priority lane to its dedicated topic, e.g.
// "orderflow.urgent". One topic per lane keeps lane ordering intact on the
// broker side.
func laneTopic(prefix string, priority model.PriorityClass) string {
	return prefix + "." + strings.ToLower(priority.String())
}

func deadLetterTopic(prefix string) string {
	return prefix + ".dead-letter"
}
