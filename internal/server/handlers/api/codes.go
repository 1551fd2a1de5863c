package api

const (
	// Generic request/server errors
	CodeInvalidRequest = "E_INVALID_REQUEST" // bad or invalid request
	CodeRateLimited    = "E_RATE_LIMITED"    // rate limit exceeded
	CodeInternalError  = "E_INTERNAL_ERROR"  // internal server error
	CodeAccessDenied   = "E_ACCESS_DENIED"   // missing or wrong api key

	// Save errors
	CodeInvalidTitleID    = "E_SAVE_INVALID_TITLE_ID"  // title id is not 16 hex characters
	CodeBundleMalformed   = "E_SAVE_BUNDLE_MALFORMED"  // bundle bytes failed to decode
	CodeTitleIDMismatch   = "E_SAVE_TITLE_ID_MISMATCH" // url title id differs from the bundle's
	CodeSaveNotFound      = "E_SAVE_NOT_FOUND"         // no save stored for the title
	CodeSaveStale         = "E_SAVE_STALE"             // server already holds a newer or equal save
	CodeSaveStoreFailed   = "E_SAVE_STORE_FAILED"      // storage engine failure
	CodeSaveDataIntegrity = "E_SAVE_DATA_INTEGRITY"    // metadata record exists but is unreadable
)
