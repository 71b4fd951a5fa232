package alert

import "fmt"

// DedupeKey derives the idempotency token for one deadline and one
// rule. The key is a structured concatenation, not a hash: identical
// inputs always produce the same token and distinct inputs can never
// collide. It deliberately carries no time component, so the storage
// uniqueness constraint on (user, channel, dedupe_key) allows at most
// one notification per deadline and rule ever, however many times the
// alert pass runs or is retried.
func DedupeKey(deadlineID string, rule Rule) string {
	return fmt.Sprintf("deadline:%s:%s", deadlineID, rule)
}
