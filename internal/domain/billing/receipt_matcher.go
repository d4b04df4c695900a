package billing

import (
	"encoding/base32"
	"strings"
	"time"
	"unicode"

	"github.com/notaria/backoffice/internal/domain/shared"
	"github.com/notaria/backoffice/internal/domain/shared/strategy"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SyntheticReceiptPrefix prefixes receipt numbers derived for adjustment rows
const SyntheticReceiptPrefix = "DESC-"

// shortHashLength is the number of base32 characters kept from the digest
const shortHashLength = 6

// DefaultAdjustmentKeywords are the concept keywords that mark a discount or
// adjustment row in the Koinor export.
var DefaultAdjustmentKeywords = []string{"DESCUENTO", "DSCTO", "AJUSTE"}

// AdjustmentPredicate decides whether a payment concept describes a
// discount/adjustment rather than a cash movement.
type AdjustmentPredicate interface {
	strategy.Strategy
	Matches(concept string) bool
}

// KeywordAdjustmentPredicate matches when the concept contains any keyword,
// ignoring case and diacritics.
type KeywordAdjustmentPredicate struct {
	strategy.BaseStrategy
	keywords []string
}

// NewKeywordAdjustmentPredicate creates a keyword predicate. With no keywords it
// falls back to DefaultAdjustmentKeywords.
func NewKeywordAdjustmentPredicate(keywords ...string) *KeywordAdjustmentPredicate {
	if len(keywords) == 0 {
		keywords = DefaultAdjustmentKeywords
	}
	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = FoldText(k); k != "" {
			folded = append(folded, k)
		}
	}
	return &KeywordAdjustmentPredicate{
		BaseStrategy: strategy.NewBaseStrategy(
			"keyword_adjustment",
			strategy.StrategyTypeMatching,
			"Matches adjustment rows by keyword substring in the concept",
		),
		keywords: folded,
	}
}

// Matches implements AdjustmentPredicate
func (p *KeywordAdjustmentPredicate) Matches(concept string) bool {
	folded := FoldText(concept)
	if folded == "" {
		return false
	}
	for _, k := range p.keywords {
		if strings.Contains(folded, k) {
			return true
		}
	}
	return false
}

// Keywords returns the folded keyword list
func (p *KeywordAdjustmentPredicate) Keywords() []string {
	return append([]string(nil), p.keywords...)
}

// AnyAdjustmentPredicate matches when any of its members matches.
type AnyAdjustmentPredicate struct {
	strategy.BaseStrategy
	members []AdjustmentPredicate
}

// NewAnyAdjustmentPredicate combines predicates with a logical OR
func NewAnyAdjustmentPredicate(members ...AdjustmentPredicate) *AnyAdjustmentPredicate {
	return &AnyAdjustmentPredicate{
		BaseStrategy: strategy.NewBaseStrategy(
			"any_adjustment",
			strategy.StrategyTypeMatching,
			"Matches when any member predicate matches",
		),
		members: members,
	}
}

// Matches implements AdjustmentPredicate
func (p *AnyAdjustmentPredicate) Matches(concept string) bool {
	for _, m := range p.members {
		if m != nil && m.Matches(concept) {
			return true
		}
	}
	return false
}

// ReceiptSource carries the payment row fields the matcher looks at
type ReceiptSource struct {
	ReceiptNumber     string
	TransactionNumber string
	Concept           string
	Amount            decimal.Decimal
	Date              time.Time
}

// ReceiptMatch is the resolved payment identity
type ReceiptMatch struct {
	ReceiptNumber string
	IsSynthetic   bool
}

// ReceiptMatcher resolves the identity key of a payment row.
type ReceiptMatcher struct {
	predicate AdjustmentPredicate
}

// NewReceiptMatcher creates a matcher. A nil predicate uses the default keywords.
func NewReceiptMatcher(predicate AdjustmentPredicate) *ReceiptMatcher {
	if predicate == nil {
		predicate = NewKeywordAdjustmentPredicate()
	}
	return &ReceiptMatcher{predicate: predicate}
}

// IsAdjustment reports whether the concept describes an adjustment
func (m *ReceiptMatcher) IsAdjustment(concept string) bool {
	return m.predicate.Matches(concept)
}

// Match returns the receipt number verbatim when present; otherwise derives a
// stable synthetic one for adjustment rows. Anything else is MissingReceiptNumber.
func (m *ReceiptMatcher) Match(src ReceiptSource) (ReceiptMatch, error) {
	if receipt := strings.TrimSpace(src.ReceiptNumber); receipt != "" {
		return ReceiptMatch{ReceiptNumber: receipt}, nil
	}

	txn := strings.TrimSpace(src.TransactionNumber)
	if txn == "" || !m.predicate.Matches(src.Concept) {
		return ReceiptMatch{}, shared.NewDomainError(CodeMissingReceiptNumber,
			"Payment row has no receipt number and is not a recognized adjustment")
	}

	return ReceiptMatch{
		ReceiptNumber: SyntheticReceiptPrefix + txn + "-" + ShortHash(src.Amount, src.Date),
		IsSynthetic:   true,
	}, nil
}

var shortHashEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ShortHash encodes amount and date into a short deterministic token.
func ShortHash(amount decimal.Decimal, date time.Time) string {
	var dateText string
	if !date.IsZero() {
		dateText = date.Format("2006-01-02")
	}
	sum := blake2b.Sum256([]byte(amount.StringFixed(2) + "|" + dateText))
	return strings.ToLower(shortHashEncoding.EncodeToString(sum[:])[:shortHashLength])
}

// FoldText upper-cases s, strips diacritics and collapses whitespace so that
// "Nota de  crédito" and "NOTA DE CREDITO" compare equal.
func FoldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(folded)), " ")
}
