package consts

const (
	GenerateContentLastRunKey = "job:generate_content:last_run"
)

const (
	GenerateContentLock = "lock:job:generate_content"
)

const (
	// RevokedTokenPrefix + JWT signature, written by the account service on logout
	RevokedTokenPrefix = "jwt:revoked:"
)
