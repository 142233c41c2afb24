// Package privacy redacts query results before they leave the gateway
// toward the chat backend.
//
// PII detection is regex-based and best-effort: it catches email- and
// phone-shaped strings, nothing more. It is a heuristic layer, not a
// compliance-grade redaction guarantee.
package privacy

import (
	"fmt"
	"regexp"
	"strings"

	"cloakedsheets/internal/domain"
)

// MaxSampleRows caps how many rows per result may be shared with the
// backend when sample rows are allowed at all.
const MaxSampleRows = 20

var (
	emailRe = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	phoneRe = regexp.MustCompile(`^\s*(\+?1[\-.\s]?)?\(?[0-9]{3}\)?[\-.\s]?[0-9]{3}[\-.\s]?[0-9]{4}\s*$`)
	digitRe = regexp.MustCompile(`[0-9]`)
)

// phoneMask is a constant-width prefix so masked numbers do not leak the
// original digit count.
const phoneMask = "XXXXXXXXX"

// Apply returns a filtered copy of results suitable for transmission.
//
// With AllowSampleRows false every result keeps its name and columns but
// loses all row payloads. With it true, at most MaxSampleRows rows survive
// per result, and with MaskPII also true every string cell is masked. The
// input is never mutated; the function is total over its shape, so rows of
// unexpected types pass through untouched.
func Apply(results []domain.QueryResult, s domain.PrivacySettings) []domain.QueryResult {
	filtered := make([]domain.QueryResult, 0, len(results))
	for _, res := range results {
		out := domain.QueryResult{
			Name:    res.Name,
			Columns: res.Columns,
			Rows:    [][]any{},
		}
		if s.AllowSampleRows {
			limit := len(res.Rows)
			if limit > MaxSampleRows {
				limit = MaxSampleRows
			}
			out.Rows = make([][]any, 0, limit)
			for _, row := range res.Rows[:limit] {
				cells := make([]any, len(row))
				for i, cell := range row {
					if str, ok := cell.(string); ok && s.MaskPII {
						cells[i] = MaskString(str)
					} else {
						cells[i] = cell
					}
				}
				out.Rows = append(out.Rows, cells)
			}
		}
		filtered = append(filtered, out)
	}
	return filtered
}

// MaskString redacts email- and phone-shaped content in a single cell.
// Emails keep their domain; phone numbers keep only their last two digits.
func MaskString(s string) string {
	masked := emailRe.ReplaceAllStringFunc(s, maskEmail)
	if phoneRe.MatchString(masked) {
		masked = maskPhone(masked)
	}
	return masked
}

func maskEmail(match string) string {
	at := strings.LastIndex(match, "@")
	if at < 0 {
		return match
	}
	return "***" + match[at:]
}

func maskPhone(s string) string {
	digits := digitRe.FindAllString(s, -1)
	if len(digits) < 2 {
		return s
	}
	return phoneMask + strings.Join(digits[len(digits)-2:], "")
}

// Describe returns the audit-trail line for the filtering branch taken.
func Describe(s domain.PrivacySettings) string {
	if !s.AllowSampleRows {
		return "privacy: aggregates only, no sample rows sent"
	}
	if s.MaskPII {
		return fmt.Sprintf("privacy: sample rows sent (masked, max %d per result)", MaxSampleRows)
	}
	return fmt.Sprintf("privacy: sample rows sent (unmasked, max %d per result)", MaxSampleRows)
}
