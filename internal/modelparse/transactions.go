package modelparse

import (
	"encoding/json"
	"strconv"
	"strings"

	"statement-ingestion-service/internal/models"

	"github.com/shopspring/decimal"
)

// Group inference keyword tables. Order of evaluation is fixed: payment
// evidence outranks fees, fees outrank interest, and keyword evidence of
// any kind outranks amount sign. The lists carry the Spanish and English
// phrasings seen in real statements.
var (
	paymentMarkers = []string{
		"pago", "su pago", "payment", "abono", "refund", "reembolso",
		"devolucion", "devolución", "thank you",
	}
	feeMarkers = []string{
		"comision", "comisión", "fee", "anualidad", "annual fee",
		"cargo por", "membresia", "membresía", "membership",
	}
	interestMarkers = []string{
		"interes", "interés", "interest", "financiamiento", "finance charge",
	}
	supplementaryMarkers = []string{
		"adicional", "supplementary", "additional card", "tarjeta adicional",
	}
	purchaseMarkers = []string{
		"compra", "purchase",
	}
)

// ParseTransactions recovers a transaction list from model text.
//
// Elements that are not JSON objects are kept as zero-value placeholders
// rather than dropped: downstream auditing depends on the parsed count
// matching what the model claimed to extract.
func ParseTransactions(text string) ([]*models.Transaction, *Result) {
	result := Parse(text, ShapeArray)

	arr, _ := result.Data.([]interface{})
	txs := make([]*models.Transaction, 0, len(arr))
	for _, el := range arr {
		txs = append(txs, CoerceTransaction(el))
	}

	return txs, result
}

// CoerceTransaction converts one parsed array element into the canonical
// Transaction shape. Non-object elements become placeholders.
func CoerceTransaction(el interface{}) *models.Transaction {
	m, ok := el.(map[string]interface{})
	if !ok {
		return &models.Transaction{Group: models.GroupGeneral}
	}

	tx := &models.Transaction{
		Date:        stringField(m, "date", "fecha", "transaction_date"),
		Description: stringField(m, "description", "descripcion", "descripción", "concepto", "desc"),
		RawType:     stringField(m, "type", "tipo"),
	}
	tx.Amount = decimalField(m, "amount", "monto", "importe", "cantidad")
	tx.Type = normalizeType(tx.RawType, tx.Amount)

	group := models.TransactionGroup(strings.ToLower(stringField(m, "group", "grupo")))
	if group.IsValid() {
		tx.Group = group
	} else {
		tx.Group = InferGroup(tx.Description, tx.Amount)
	}

	return tx
}

// InferGroup classifies a transaction into a statement section from its
// description and amount. Keyword checks run in priority order; the amount
// sign is only consulted when no keyword matched, so a positive-amount
// "PAGO RECIBIDO" still lands in payments.
func InferGroup(description string, amount decimal.Decimal) models.TransactionGroup {
	desc := strings.ToLower(description)

	if containsAny(desc, paymentMarkers) || amount.IsNegative() {
		return models.GroupPayments
	}
	if containsAny(desc, feeMarkers) {
		return models.GroupFees
	}
	if containsAny(desc, interestMarkers) {
		return models.GroupInterest
	}
	if containsAny(desc, supplementaryMarkers) {
		return models.GroupSupplementary
	}
	if containsAny(desc, purchaseMarkers) || amount.IsPositive() {
		return models.GroupPurchases
	}

	return models.GroupGeneral
}

func normalizeType(raw string, amount decimal.Decimal) models.TransactionType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "payment", "pago", "abono", "credit", "credito", "crédito":
		return models.TransactionTypePayment
	case "charge", "cargo", "compra", "purchase", "debit", "debito", "débito":
		return models.TransactionTypeCharge
	case "adjustment", "ajuste":
		return models.TransactionTypeAdjustment
	}

	if amount.IsNegative() {
		return models.TransactionTypePayment
	}
	return models.TransactionTypeCharge
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// stringField returns the first present key coerced to a trimmed string.
// Numbers are rendered as text so identifier-like fields (card digits)
// survive a model that emitted them unquoted.
func stringField(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			return strings.TrimSpace(val)
		case json.Number:
			return val.String()
		case float64:
			return strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return ""
}

// decimalField returns the first present key coerced to a decimal, or zero.
func decimalField(m map[string]interface{}, keys ...string) decimal.Decimal {
	if d := nullDecimalField(m, keys...); d.Valid {
		return d.Decimal
	}
	return decimal.Zero
}

// nullDecimalField returns the first present key coerced to a nullable
// decimal. An absent key, a JSON null, or an unparseable value all yield
// the invalid (unknown) state; an explicit zero stays a valid zero.
func nullDecimalField(m map[string]interface{}, keys ...string) decimal.NullDecimal {
	for _, key := range keys {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch val := v.(type) {
		case json.Number:
			if d, err := decimal.NewFromString(val.String()); err == nil {
				return models.NullDecimalFrom(d)
			}
		case float64:
			return models.NullDecimalFrom(decimal.NewFromFloat(val))
		case string:
			if d, err := models.ParseDecimalFlexible(val); err == nil {
				return models.NullDecimalFrom(d)
			}
		}
	}
	return decimal.NullDecimal{}
}
