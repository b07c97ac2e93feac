// File: internal/infra/payment/tinkoff_verifier.go
package payment

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"ege-billing/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.SignatureVerifier = (*TinkoffVerifier)(nil)

// TinkoffVerifier implements the T-Bank notification token scheme: SHA-256
// over the concatenation of all scalar field values sorted by key, with the
// terminal password injected and the Token field itself excluded.
type TinkoffVerifier struct {
	secretKey string
}

func NewTinkoffVerifier(secretKey string) *TinkoffVerifier {
	return &TinkoffVerifier{secretKey: secretKey}
}

// Fields that never participate in the token per provider documentation.
var tokenExcluded = map[string]struct{}{
	"Receipt":             {},
	"DATA":                {},
	"Token":               {},
	"Shops":               {},
	"Descriptor":          {},
	"PaymentFormLanguage": {},
}

func (v *TinkoffVerifier) Verify(payload map[string]any) bool {
	received, ok := payload["Token"].(string)
	if !ok || received == "" {
		return false
	}
	expected := v.calculateToken(payload)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(received)) == 1
}

func (v *TinkoffVerifier) calculateToken(payload map[string]any) string {
	processed := map[string]string{"Password": v.secretKey}
	for key, value := range payload {
		if _, skip := tokenExcluded[key]; skip || value == nil {
			continue
		}
		switch val := value.(type) {
		case bool:
			if val {
				processed[key] = "true"
			} else {
				processed[key] = "false"
			}
		case string:
			processed[key] = val
		case float64:
			// JSON numbers decode as float64; amounts are integral kopecks.
			processed[key] = fmt.Sprintf("%.0f", val)
		default:
			processed[key] = fmt.Sprintf("%v", val)
		}
	}

	keys := make([]string, 0, len(processed))
	for k := range processed {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(processed[k])
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
