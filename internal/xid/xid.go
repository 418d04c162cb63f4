package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random id carrying a short type prefix, e.g. "sale-6f1c...".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
