package cache

import (
	"fmt"

	"github.com/google/uuid"
)

// DeliveryClaimKey scopes webhook delivery dedupe to one source and workflow
// run (or PR, for review analyses).
func DeliveryClaimKey(source, runContext string) string {
	return fmt.Sprintf("delivery:claim:%s:%s", source, runContext)
}

func DeliveryStatusKey(runID uuid.UUID) string {
	return fmt.Sprintf("delivery:status:%s", runID)
}

func RateLimitKey(keyPrefix string) string {
	return fmt.Sprintf("ratelimit:%s", keyPrefix)
}
