package adapter

// SignatureVerifier checks the provider's webhook signature. Provider-specific
// schemes stay behind this port; the ingestion flow only sees pass/fail.
type SignatureVerifier interface {
	Verify(payload map[string]any) bool
}
