package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const codeCharacters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomCode(n int) string {
	max := big.NewInt(int64(len(codeCharacters)))
	result := make([]byte, n)
	for i := range result {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto/rand failed: %v", err))
		}
		result[i] = codeCharacters[idx.Int64()]
	}
	return string(result)
}

// GenerateInvoiceNo returns an invoice number of the form INV-YYYYMMDD-XXXXXXX.
func GenerateInvoiceNo(now time.Time) string {
	return fmt.Sprintf("INV-%s-%s", now.UTC().Format("20060102"), randomCode(7))
}

// GenerateReference returns a short upper-case reference for redemptions.
func GenerateReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "RDM-" + strings.ToUpper(id[:10])
}
