package billing

import "strings"

// Segment widths of the canonical invoice number EEE-PPP-SSSSSSSSS
const (
	EstablishmentWidth = 3
	EmissionPointWidth = 3
	SequentialWidth    = 9

	// compactSequentialWidth is the minimum sequential width in the legacy compact form
	compactSequentialWidth = 8
)

// Series assumed for exports that only carry the sequential ("124370")
const (
	DefaultEstablishment = "001"
	DefaultEmissionPoint = "001"
)

// InvoiceNumberNormalizer turns the invoice identifiers found in exports and in the
// document registry into the canonical dashed form used as the ledger join key.
type InvoiceNumberNormalizer struct {
	defaultEstablishment string
	defaultEmissionPoint string
}

// NormalizerOption configures an InvoiceNumberNormalizer
type NormalizerOption func(*InvoiceNumberNormalizer)

// WithDefaultSeries sets the establishment and emission point used when the raw
// value carries only some of the segments (typically just the sequential).
func WithDefaultSeries(establishment, emissionPoint string) NormalizerOption {
	return func(n *InvoiceNumberNormalizer) {
		n.defaultEstablishment = onlyDigits(establishment)
		n.defaultEmissionPoint = onlyDigits(emissionPoint)
	}
}

// NewInvoiceNumberNormalizer creates a normalizer. Without options it is strict:
// every segment must be present in the raw value.
func NewInvoiceNumberNormalizer(opts ...NormalizerOption) *InvoiceNumberNormalizer {
	n := &InvoiceNumberNormalizer{}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

var strictNormalizer = NewInvoiceNumberNormalizer()

// NormalizeInvoiceNumber normalizes raw with a strict normalizer.
func NormalizeInvoiceNumber(raw string) (string, error) {
	return strictNormalizer.Normalize(raw)
}

// Normalize converts raw into EEE-PPP-SSSSSSSSS.
//
// Digit runs separated by any non-digit are read as segments:
//   - one run: the last 9 digits are the sequential, the preceding (up to 3) the
//     emission point, the rest (up to 3) the establishment
//   - two runs: establishment+emission point, then the sequential ("001002-00123341")
//   - three runs: establishment, emission point, sequential
func (n *InvoiceNumberNormalizer) Normalize(raw string) (string, error) {
	groups := digitGroups(raw)

	var est, pto, seq string
	switch len(groups) {
	case 0:
		return "", malformedInvoiceNumber(raw, "no digits")
	case 1:
		g := groups[0]
		if len(g) > EstablishmentWidth+EmissionPointWidth+SequentialWidth {
			return "", malformedInvoiceNumber(raw, "too many digits")
		}
		if len(g) <= SequentialWidth {
			seq = g
		} else {
			seq = g[len(g)-SequentialWidth:]
			est, pto = splitSeries(g[:len(g)-SequentialWidth])
		}
	case 2:
		if len(groups[0]) > EstablishmentWidth+EmissionPointWidth {
			return "", malformedInvoiceNumber(raw, "series segment too long")
		}
		est, pto = splitSeries(groups[0])
		seq = groups[1]
	case 3:
		est, pto, seq = groups[0], groups[1], groups[2]
	default:
		return "", malformedInvoiceNumber(raw, "too many segments")
	}

	if est == "" {
		est = n.defaultEstablishment
	}
	if pto == "" {
		pto = n.defaultEmissionPoint
	}
	if est == "" || pto == "" {
		return "", malformedInvoiceNumber(raw, "not enough digits for establishment and emission point")
	}
	if len(est) > EstablishmentWidth || len(pto) > EmissionPointWidth || len(seq) > SequentialWidth {
		return "", malformedInvoiceNumber(raw, "segment exceeds its width")
	}
	if strings.Trim(seq, "0") == "" {
		return "", malformedInvoiceNumber(raw, "sequential is zero")
	}

	return padDigits(est, EstablishmentWidth) + "-" +
		padDigits(pto, EmissionPointWidth) + "-" +
		padDigits(seq, SequentialWidth), nil
}

// DenormalizeInvoiceNumber produces the compact legacy form EEEPPP-SSSSSSSS
// from a canonical number.
func DenormalizeInvoiceNumber(canonical string) (string, error) {
	if !IsCanonicalInvoiceNumber(canonical) {
		return "", malformedInvoiceNumber(canonical, "not in canonical form")
	}
	parts := strings.Split(canonical, "-")
	seq := parts[2]
	if trimmed := strings.TrimLeft(seq, "0"); len(trimmed) <= compactSequentialWidth {
		seq = padDigits(trimmed, compactSequentialWidth)
	}
	return parts[0] + parts[1] + "-" + seq, nil
}

// IsCanonicalInvoiceNumber reports whether s is exactly EEE-PPP-SSSSSSSSS
// with a non-zero sequential.
func IsCanonicalInvoiceNumber(s string) bool {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return false
	}
	widths := [3]int{EstablishmentWidth, EmissionPointWidth, SequentialWidth}
	for i, p := range parts {
		if len(p) != widths[i] || onlyDigits(p) != p {
			return false
		}
	}
	return strings.Trim(parts[2], "0") != ""
}

// splitSeries splits a run holding establishment+emission point.
// The emission point takes the trailing (up to 3) digits.
func splitSeries(s string) (est, pto string) {
	if len(s) <= EmissionPointWidth {
		return "", s
	}
	return s[:len(s)-EmissionPointWidth], s[len(s)-EmissionPointWidth:]
}

func digitGroups(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r < '0' || r > '9'
	})
}

func onlyDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}

func padDigits(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// SplitInvoiceReferences splits a transaction reference that names several
// invoices ("124370, 124371/124372") into its parts.
func SplitInvoiceReferences(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || r == '&' || r == '|'
	})
	refs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			refs = append(refs, p)
		}
	}
	return refs
}
