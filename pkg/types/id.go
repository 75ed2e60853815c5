package types

import (
	"fmt"

	"github.com/segmentio/ksuid"
)

// GenerateUserID generates a unique user ID with prefix
func GenerateUserID() string {
	return fmt.Sprintf("usr_%s", ksuid.New().String())
}

// GenerateCredentialID generates a unique credential ID with prefix
func GenerateCredentialID() string {
	return fmt.Sprintf("cred_%s", ksuid.New().String())
}

// GenerateID generates a generic unique ID
func GenerateID() string {
	return ksuid.New().String()
}
