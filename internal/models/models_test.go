package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDecimalFlexible(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"1234.56", "1234.56", false},
		{"$1,234.56", "1234.56", false},
		{"MXN 1,300.50", "1300.5", false},
		{"€99", "99", false},
		{"(123.45)", "-123.45", false},
		{"-50", "-50", false},
		{"0", "0", false},
		{"", "", true},
		{"not a number", "", true},
	}

	for _, tt := range tests {
		got, err := ParseDecimalFlexible(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDecimalFlexible(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if err == nil && got.String() != tt.want {
			t.Errorf("ParseDecimalFlexible(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestParseDateFlexible(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"2025-01-15", false},
		{"15/01/2025", false},
		{"2025/01/15", false},
		{"Jan 15, 2025", false},
		{"15 Jan 2025", false},
		{"", true},
		{"yesterday", true},
	}

	for _, tt := range tests {
		_, err := ParseDateFlexible(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseDateFlexible(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2025, 1, 15, 23, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 4, 1, 0, 0, 0, time.UTC)

	if got := DaysBetween(from, to); got != 20 {
		t.Errorf("DaysBetween = %d, want 20 (time of day must not matter)", got)
	}
	if got := DaysBetween(to, from); got != -20 {
		t.Errorf("reverse DaysBetween = %d, want -20", got)
	}
}

func TestShouldUpdateFromStatement(t *testing.T) {
	tests := []struct {
		name          string
		lastKnown     string
		statementDate string
		want          bool
	}{
		{"newer statement", "2025-01-15", "2025-02-15", true},
		{"equal date re-ingest", "2025-01-15", "2025-01-15", true},
		{"older statement", "2025-01-15", "2024-12-15", false},
		{"no prior statement", "", "2025-01-15", true},
		{"no statement date", "2025-01-15", "", false},
		{"unparseable statement date", "2025-01-15", "garbage", false},
		{"unparseable prior date", "garbage", "2025-01-15", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			card := &CardRecord{LastStatementDate: tt.lastKnown}
			if got := card.ShouldUpdateFromStatement(tt.statementDate); got != tt.want {
				t.Errorf("ShouldUpdateFromStatement(%q) = %v, want %v", tt.statementDate, got, tt.want)
			}
		})
	}
}

func TestEnumValidity(t *testing.T) {
	if !TransactionTypePayment.IsValid() || TransactionType("bogus").IsValid() {
		t.Error("TransactionType validity check broken")
	}
	if !GroupSupplementary.IsValid() || TransactionGroup("bogus").IsValid() {
		t.Error("TransactionGroup validity check broken")
	}
	if !ConfidenceUser.IsValid() || CategoryConfidence("bogus").IsValid() {
		t.Error("CategoryConfidence validity check broken")
	}
	if !MethodUserPattern.IsValid() || CategoryMethod("bogus").IsValid() {
		t.Error("CategoryMethod validity check broken")
	}
}

func TestNullDecimalDistinguishesZeroFromUnknown(t *testing.T) {
	zero := NullDecimalFrom(decimal.Zero)
	var unknown decimal.NullDecimal

	if !zero.Valid || !zero.Decimal.IsZero() {
		t.Error("explicit zero must be a valid zero")
	}
	if unknown.Valid {
		t.Error("zero value of NullDecimal must be the unknown state")
	}
}

func TestIsCategorized(t *testing.T) {
	tx := &Transaction{Description: "OXXO"}
	if tx.IsCategorized() {
		t.Error("fresh transaction must not be categorized")
	}

	tx.Category = "groceries"
	tx.CategoryMethod = MethodPattern
	if !tx.IsCategorized() {
		t.Error("transaction with category and method is categorized")
	}
}
