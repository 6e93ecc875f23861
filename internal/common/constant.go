package common

// Header names shared by the HTTP server and client.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "

	// EncryptedKeyHeaderName carries the base64 content key on download responses.
	EncryptedKeyHeaderName = "Encrypted-Key"

	// ShareTokenHeaderName scopes a request to the permission of a share link.
	ShareTokenHeaderName = "X-Share-Token"
)

// HealthServiceName is the grpc.health.v1 service name reported for the
// storage API.
const HealthServiceName = "gophshare.Storage"
