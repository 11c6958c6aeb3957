// Package document holds the storage-addressing rules for rendered vouchers:
// pure key derivation for the deterministic expense scheme, the folder and
// suffix conventions for the search-based income scheme, and the reference
// states a resolved document can be in.
package document

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ReceiptExtensions is the fixed precedence order used when probing for an
// income receipt. The first existing extension wins; later ones are never
// checked once a hit is found.
var ReceiptExtensions = []string{"pdf", "png", "jpg", "jpeg", "webp"}

// ExpenseOriginalKey returns the storage key of the rendered (unsigned)
// expense voucher.
func ExpenseOriginalKey(agreementCode string, sequenceNumber int64) string {
	return fmt.Sprintf("%s/expense_%d.pdf", agreementCode, sequenceNumber)
}

// ExpenseSignedKey returns the storage key of the signed expense voucher.
func ExpenseSignedKey(agreementCode string, sequenceNumber int64) string {
	return fmt.Sprintf("signed/%s/expense_%d.pdf", agreementCode, sequenceNumber)
}

// IncomeFolder reduces an agreement code to its storage folder name: the
// first whitespace-delimited token, trimmed. Agreement codes are displayed
// as "CODE — Name"; only the leading CODE token is filesystem-safe and
// stable.
func IncomeFolder(agreementCode string) string {
	fields := strings.Fields(agreementCode)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimSpace(fields[0])
}

// IncomeReceiptKey returns the storage key of the income receipt for a given
// extension. Callers probe extensions in ReceiptExtensions order.
func IncomeReceiptKey(agreementCode string, sequenceNumber int64, extension string) string {
	return fmt.Sprintf("receipts/%s/income_%d.%s", IncomeFolder(agreementCode), sequenceNumber, extension)
}

// IncomeOriginalSuffix is the filename suffix an income original must carry.
// The rest of the name is free-form (it embeds a human-entered entity name),
// so originals are discovered by listing and matching this suffix
// case-insensitively.
func IncomeOriginalSuffix(sequenceNumber int64) string {
	return fmt.Sprintf("_income_%d.pdf", sequenceNumber)
}

// MatchesIncomeOriginal reports whether a listed object name is the income
// original for the given sequence number.
func MatchesIncomeOriginal(name string, sequenceNumber int64) bool {
	return strings.HasSuffix(strings.ToLower(name), IncomeOriginalSuffix(sequenceNumber))
}

// IncomeOriginalKey builds the upload key of a fresh income original:
// the folder plus a sanitized entity name, a compact date, and the suffix
// convention the resolver discovers by.
func IncomeOriginalKey(agreementCode, entityName, compactDate string, sequenceNumber int64) string {
	return fmt.Sprintf("%s/%s_%s%s",
		IncomeFolder(agreementCode),
		SanitizeFilePart(entityName),
		compactDate,
		IncomeOriginalSuffix(sequenceNumber),
	)
}

// DownloadFilename builds the suggested client-side filename for a resolved
// document: sanitized counterparty name, ISO date, a sequence marker, and an
// optional variant tag ("firmado", "recibo").
func DownloadFilename(counterpartyName string, date time.Time, sequenceNumber int64, variant, extension string) string {
	name := SanitizeFilePart(counterpartyName)
	if name == "" {
		name = "documento"
	}
	if variant != "" {
		variant = "_" + variant
	}
	return fmt.Sprintf("%s_%s_#%d%s.%s", name, date.Format("2006-01-02"), sequenceNumber, variant, extension)
}

// CacheKey joins a bucket and key into the identifier used by the URL cache.
func CacheKey(bucket, key string) string {
	return bucket + "|" + key
}

// SanitizeFilePart lowercases a human-entered name, strips accents from the
// common Spanish vowels, and collapses anything non-alphanumeric to
// underscores so it is safe as a filename fragment.
func SanitizeFilePart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	replacer := strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n", "ü", "u",
	)
	s = replacer.Replace(s)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}
