package api

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidateSessionID checks that a path parameter is a well-formed session id.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session id is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("session id must be a valid uuid")
	}
	return nil
}
