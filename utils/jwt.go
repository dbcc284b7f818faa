package utils

import (
	"log"
	"os"
)

// JWTSecretKey holds the HMAC key used to verify caller identity tokens.
// Token issuance lives in the identity service; this process only verifies.
var JWTSecretKey string

// InitJWT loads the shared verification key from the environment
func InitJWT() {
	JWTSecretKey = os.Getenv("JWT_SECRET_KEY")
	if JWTSecretKey == "" && os.Getenv("GO_ENV") != "test" {
		log.Fatal("JWT_SECRET_KEY environment variable not set")
	}
}
