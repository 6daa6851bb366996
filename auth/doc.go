// Package auth authenticates tool invocations.
//
// Credentials travel inside the tool arguments (api_key, jwt_token) rather
// than transport headers, so the package works for any transport that
// delivers a tool call. API keys are stored by SHA-256 hash; JWTs are HS256
// tokens verified with a shared secret.
package auth
