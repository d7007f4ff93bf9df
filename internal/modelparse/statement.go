package modelparse

import (
	"statement-ingestion-service/internal/models"
)

// ParseStatement recovers a full statement object from model text.
//
// Numeric fields keep explicit null-if-absent semantics: a statement whose
// model output says "totalBalance": 0 is a paid-off card, while one that
// omits the field is an unknown balance. The validator treats the two very
// differently, so the distinction is preserved here and never patched over.
func ParseStatement(text string) (*models.ParsedStatement, *Result) {
	result := Parse(text, ShapeObject)

	m, _ := result.Data.(map[string]interface{})
	stmt := models.NewParsedStatement()

	stmt.TotalBalance = nullDecimalField(m, "totalBalance", "total_balance", "saldoTotal", "saldo_total", "saldo_actual")
	stmt.PreviousBalance = nullDecimalField(m, "previousBalance", "previous_balance", "saldoAnterior", "saldo_anterior")
	stmt.CreditLimit = nullDecimalField(m, "creditLimit", "credit_limit", "limiteCredito", "limite_credito")
	stmt.MinimumPayment = nullDecimalField(m, "minimumPayment", "minimum_payment", "pagoMinimo", "pago_minimo")
	stmt.AvailableCredit = nullDecimalField(m, "availableCredit", "available_credit", "creditoDisponible", "credito_disponible")
	stmt.Payments = nullDecimalField(m, "payments", "pagos")
	stmt.Charges = nullDecimalField(m, "charges", "cargos")
	stmt.Fees = nullDecimalField(m, "fees", "comisiones")
	stmt.Interest = nullDecimalField(m, "interest", "intereses")

	stmt.BankName = stringField(m, "bankName", "bank_name", "banco", "bank")
	stmt.CardHolderName = stringField(m, "cardHolderName", "card_holder_name", "titular", "holder_name")
	stmt.LastFourDigits = stringField(m, "lastFourDigits", "last_four_digits", "ultimosDigitos", "ultimos_digitos")
	stmt.StatementDate = stringField(m, "statementDate", "statement_date", "fechaCorte", "fecha_corte")
	stmt.DueDate = stringField(m, "dueDate", "due_date", "fechaLimite", "fecha_limite", "fecha_limite_pago")

	stmt.Transactions = coerceTransactionList(m, "transactions", "transacciones", "movimientos")

	return stmt, result
}

// coerceTransactionList extracts the embedded transaction array. The list
// is always non-nil, preserving element positions like ParseTransactions.
func coerceTransactionList(m map[string]interface{}, keys ...string) []*models.Transaction {
	txs := []*models.Transaction{}

	for _, key := range keys {
		arr, ok := m[key].([]interface{})
		if !ok {
			continue
		}
		for _, el := range arr {
			txs = append(txs, CoerceTransaction(el))
		}
		break
	}

	return txs
}
