package result

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// NewRunID returns a random id identifying a session. The UUID is base64
// encoded to keep it short.
func NewRunID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}
