package common

// Header names understood by the HTTP API.
const (
	AuthorizationHeaderName  = "Authorization"
	CorrelationIDHeaderName  = "X-Correlation-ID"
	InitiatorHeaderName      = "X-Initiator"
	BodyEncryptionHeaderName = "X-Body-Encryption"
)

// BodyEncryptionScheme is the only value accepted in BodyEncryptionHeaderName.
const BodyEncryptionScheme = "aes-gcm"

// TokenType is returned next to every issued access token.
const TokenType = "bearer"
