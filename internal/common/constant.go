package common

const (
	// AuthorizationHeaderName carries the bearer token on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// DefaultAuthTokenKey is the storage slot the token is persisted under.
	DefaultAuthTokenKey = "auth_token"

	// EncryptedField is the only key of an encrypted request/response body.
	EncryptedField = "encrypted"
)
