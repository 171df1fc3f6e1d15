package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RunGenerateSessionSecret generates a cryptographically secure 32-byte secret
// and prints the environment variable configuration for signing session and
// resource tokens.
func RunGenerateSessionSecret() error {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate session secret: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(secret)
	for i := range secret {
		secret[i] = 0
	}

	fmt.Println("# Session token secret configuration")
	fmt.Println("# Copy this environment variable to your .env file or secrets manager")
	fmt.Println()
	fmt.Printf("SESSION_TOKEN_SECRET=\"%s\"\n", encoded)

	return nil
}
