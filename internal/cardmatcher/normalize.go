package cardmatcher

import (
	"regexp"
	"strings"

	"statement-ingestion-service/internal/models"
)

// NormalizedCard is the identity triple used for matching, normalized for
// comparison. Empty fields mean the source never stated them.
type NormalizedCard struct {
	Bank     string
	Holder   string
	LastFour string
}

var (
	accentReplacer = strings.NewReplacer(
		"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
		"ä", "a", "ë", "e", "ï", "i", "ö", "o", "ü", "u",
		"ñ", "n",
	)

	nonAlnumRe     = regexp.MustCompile(`[^a-z0-9 ]+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	fourDigitsRe   = regexp.MustCompile(`\d{4}`)
	digitRunRe     = regexp.MustCompile(`\d+`)
	bankNoiseWords = map[string]bool{
		"banco": true, "bank": true, "de": true, "del": true, "the": true,
		"sa": true, "cv": true, "institucion": true, "bancaria": true,
	}

	// bankNetworkWords marks free-text card names as bank-ish rather than
	// holder-ish when structured fields are missing.
	bankNetworkWords = map[string]bool{
		"banco": true, "bank": true, "bbva": true, "bancomer": true,
		"banorte": true, "santander": true, "hsbc": true, "banamex": true,
		"citibanamex": true, "scotiabank": true, "banregio": true,
		"inbursa": true, "azteca": true, "invex": true,
		"visa": true, "mastercard": true, "amex": true,
		"american": true, "express": true,
	}
)

// NormalizeText lowercases, strips accents and punctuation, and collapses
// whitespace.
func NormalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = accentReplacer.Replace(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ExtractLastFour pulls the final 4-digit run out of a card number field,
// tolerating masked formats like "**** **** **** 1234" and "XXXX-1234".
func ExtractLastFour(s string) string {
	runs := fourDigitsRe.FindAllString(s, -1)
	if len(runs) == 0 {
		return ""
	}
	return runs[len(runs)-1]
}

// NormalizeCardData builds the comparison triple from raw bank, holder, and
// card number text.
func NormalizeCardData(bank, holder, cardNumber string) NormalizedCard {
	return NormalizedCard{
		Bank:     NormalizeText(bank),
		Holder:   NormalizeText(holder),
		LastFour: ExtractLastFour(cardNumber),
	}
}

// NormalizeCardRecord builds the comparison triple from a card record,
// falling back to the free-text name for legacy records whose structured
// fields were never filled in: a 4-digit run supplies the last four, and
// the remaining words supply the bank when they contain a bank or network
// keyword, or the holder when they look like a multi-word person name.
func NormalizeCardRecord(card *models.CardRecord) NormalizedCard {
	n := NormalizeCardData(card.Bank, card.HolderName, card.CardNumber)

	name := NormalizeText(card.Name)
	if name == "" {
		return n
	}

	if n.LastFour == "" {
		n.LastFour = ExtractLastFour(name)
	}

	words := strings.Fields(digitRunRe.ReplaceAllString(name, " "))
	if len(words) == 0 {
		return n
	}

	bankish := false
	for _, w := range words {
		if bankNetworkWords[w] {
			bankish = true
			break
		}
	}

	remainder := strings.Join(words, " ")
	switch {
	case n.Bank == "" && bankish:
		n.Bank = remainder
	case n.Holder == "" && !bankish && len(words) >= 2:
		n.Holder = remainder
	}

	return n
}

// wordSet splits normalized text into a set of significant words. For bank
// names, filler words ("banco", "de") are dropped so "Banco Santander" and
// "Santander México" compare on substance.
func wordSet(s string, dropBankNoise bool) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		if dropBankNoise && bankNoiseWords[w] {
			continue
		}
		set[w] = true
	}
	return set
}

// jaccard computes word-set similarity in [0, 1]. Two empty sets are not
// similar; absence of data is not evidence of identity.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// bankSimilarity compares two normalized bank names.
func bankSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return jaccard(wordSet(a, true), wordSet(b, true))
}

// holderSimilarity compares two normalized holder names.
func holderSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return jaccard(wordSet(a, false), wordSet(b, false))
}
