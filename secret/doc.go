// Package secret resolves secret values in configuration.
//
// A value is first expanded strictly against the environment (see
// ExpandEnvStrict). If the result is a reference of the form
//
//	secretref:<provider>:<ref>
//
// it is then resolved through the named Provider:
//
//	jwt_secret: ${TOOLPIPE_JWT_SECRET}
//	jwt_secret: secretref:file:/run/secrets/jwt
//	jwt_secret: secretref:env:TOOLPIPE_JWT_SECRET
package secret
