package common

// AuthorizationHeaderName carries the bearer token on inbound HTTP requests.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the token type reported to clients and expected in the
// Authorization header.
const BearerScheme = "bearer"

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// MaxPasswordBytes is the longest password bcrypt can take into account.
const MaxPasswordBytes = 72

// MaxDisplayNameLength caps the optional full name, in characters.
const MaxDisplayNameLength = 255
