package mongodb

const (
	ApplicationsCollection = "oauth_applications" // Registered third-party applications
	CodesCollection        = "oauth_auth_codes"   // Authorization codes (hashed)
	TokensCollection       = "oauth_tokens"       // Access and refresh tokens (hashed)
)
