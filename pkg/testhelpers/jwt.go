// Package testhelpers provides utilities for testing machina-engine
// components.
package testhelpers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// GenerateTestJWT creates an unsigned test token (alg: none) for use when
// verification is disabled. Claims mirror what the identity service issues:
// sub, tid, and roles.
func GenerateTestJWT(sub, tenantID string, roles ...string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	claims := map[string]any{"sub": sub}
	if tenantID != "" {
		claims["tid"] = tenantID
	}
	if len(roles) > 0 {
		claims["roles"] = roles
	}
	payload, _ := json.Marshal(claims)

	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	return fmt.Sprintf("%s.%s.", header, encodedPayload)
}

// GenerateTestJWTWithBearer returns the token with a "Bearer " prefix for
// the Authorization header.
func GenerateTestJWTWithBearer(sub, tenantID string, roles ...string) string {
	return "Bearer " + GenerateTestJWT(sub, tenantID, roles...)
}
