package categorizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"statement-ingestion-service/internal/models"

	"github.com/shopspring/decimal"
)

// stubClassifier returns scripted answers in call order.
type stubClassifier struct {
	answers []string
	errs    []error
	calls   int
}

func (s *stubClassifier) ClassifyTransaction(_ context.Context, _ *models.Transaction, _ []string) (string, error) {
	i := s.calls
	s.calls++
	var answer string
	var err error
	if i < len(s.answers) {
		answer = s.answers[i]
	}
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return answer, err
}

func chargeTx(description string) *models.Transaction {
	return &models.Transaction{
		Description: description,
		Amount:      decimal.NewFromInt(100),
		Type:        models.TransactionTypeCharge,
	}
}

// noDelayConfig keeps batch tests fast.
func noDelayConfig() *Config {
	cfg := DefaultConfig()
	cfg.AIDelay = 0
	return cfg
}

func TestUserPatternBeatsStaticTable(t *testing.T) {
	// "amazon" is in the static table as shopping; the user taught otherwise.
	e := New(noDelayConfig(), nil, map[string]string{"amazon": "services"})

	c, err := e.Categorize(context.Background(), chargeTx("AMAZON PRIME MX"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Category != "services" || c.Method != models.MethodUserPattern || c.Confidence != models.ConfidenceUser {
		t.Errorf("user pattern should win: got %+v", c)
	}
}

func TestUserPatternTwoWayContainment(t *testing.T) {
	e := New(noDelayConfig(), nil, map[string]string{"supermercado soriana hiper": "groceries"})

	// Truncated receipt: the key contains the description.
	c, err := e.Categorize(context.Background(), chargeTx("SORIANA HIPER"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Method != models.MethodUserPattern {
		t.Errorf("expected user pattern via reverse containment, got %+v", c)
	}
}

func TestStaticMerchantTable(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"UBER EATS CDMX", "food"},
		{"UBER TRIP HELP.UBER.COM", "transport"},
		{"NETFLIX.COM", "entertainment"},
		{"WALMART SUPERCENTER", "groceries"},
		{"FARMACIA DEL AHORRO", "health"},
	}

	e := New(noDelayConfig(), nil, nil)
	for _, tt := range tests {
		c, err := e.Categorize(context.Background(), chargeTx(tt.description))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.description, err)
		}
		if c.Category != tt.want {
			t.Errorf("%s: got %q, want %q", tt.description, c.Category, tt.want)
		}
		if c.Method != models.MethodPattern || c.Confidence != models.ConfidenceHigh {
			t.Errorf("%s: merchant hit should be pattern/high, got %+v", tt.description, c)
		}
	}
}

func TestKeywordHitIsHighConfidence(t *testing.T) {
	e := New(noDelayConfig(), nil, nil)

	c, err := e.Categorize(context.Background(), chargeTx("RESTAURANTE EL FOGON"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Category != "food" || c.Method != models.MethodPattern || c.Confidence != models.ConfidenceHigh {
		t.Errorf("keyword hit should be food/pattern/high, got %+v", c)
	}
}

func TestAIFallback(t *testing.T) {
	stub := &stubClassifier{answers: []string{"travel"}}
	e := New(noDelayConfig(), stub, nil)

	c, err := e.Categorize(context.Background(), chargeTx("XK9 UNRECOGNIZABLE 42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Category != "travel" || c.Method != models.MethodAI || c.Confidence != models.ConfidenceMedium {
		t.Errorf("expected AI classification travel/ai/medium, got %+v", c)
	}
	if stub.calls != 1 {
		t.Errorf("expected exactly one AI call, got %d", stub.calls)
	}
}

func TestAIUnknownCategoryDegrades(t *testing.T) {
	stub := &stubClassifier{answers: []string{"cryptocurrency"}}
	e := New(noDelayConfig(), stub, nil)

	c, err := e.Categorize(context.Background(), chargeTx("XK9 UNRECOGNIZABLE 42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Category != "other" || c.Method != models.MethodFallback || c.Confidence != models.ConfidenceLow {
		t.Errorf("unknown AI category must degrade to other/fallback/low, got %+v", c)
	}
}

func TestAITransientErrorDegrades(t *testing.T) {
	stub := &stubClassifier{errs: []error{errors.New("connection reset by peer")}}
	e := New(noDelayConfig(), stub, nil)

	c, err := e.Categorize(context.Background(), chargeTx("XK9 UNRECOGNIZABLE 42"))
	if err != nil {
		t.Fatalf("transient AI error must not propagate: %v", err)
	}
	if c.Category != "other" || c.Method != models.MethodFallback {
		t.Errorf("expected fallback classification, got %+v", c)
	}
}

func TestNilClassifierFallsBack(t *testing.T) {
	e := New(noDelayConfig(), nil, nil)

	c, err := e.Categorize(context.Background(), chargeTx("XK9 UNRECOGNIZABLE 42"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Method != models.MethodFallback {
		t.Errorf("nil classifier should produce the fallback, got %+v", c)
	}
}

func TestQuotaErrorStopsBatch(t *testing.T) {
	stub := &stubClassifier{
		answers: []string{"travel", ""},
		errs:    []error{nil, errors.New("googleapi: Error 429: quota exceeded")},
	}
	e := New(noDelayConfig(), stub, nil)

	txs := []*models.Transaction{
		chargeTx("NETFLIX.COM"),         // static hit, no AI
		chargeTx("XK9 UNRECOGNIZABLE"),  // AI success
		chargeTx("ZZQ UNRECOGNIZABLE"),  // AI quota failure
		chargeTx("AAA NEVER REACHED 1"), // skipped
		chargeTx("AAA NEVER REACHED 2"), // skipped
	}

	result := e.CategorizeAll(context.Background(), txs)

	if !result.QuotaExceeded {
		t.Fatal("expected quota exceeded flag")
	}
	if result.Categorized != 2 {
		t.Errorf("expected 2 categorized before the stop, got %d", result.Categorized)
	}
	if result.AICalls != 1 {
		t.Errorf("expected 1 successful AI call, got %d", result.AICalls)
	}
	if len(result.Items) != len(txs) {
		t.Fatalf("items must stay aligned with input: got %d, want %d", len(result.Items), len(txs))
	}
	for i := 2; i < len(result.Items); i++ {
		if result.Items[i] != nil {
			t.Errorf("item %d should be nil after quota stop, got %+v", i, result.Items[i])
		}
	}
	if stub.calls != 2 {
		t.Errorf("no AI calls should happen after the quota error, got %d", stub.calls)
	}
	// Classified transactions keep their assignment.
	if txs[0].Category != "entertainment" || txs[1].Category != "travel" {
		t.Errorf("classified transactions lost their categories: %q, %q", txs[0].Category, txs[1].Category)
	}
	if txs[2].Category != "" {
		t.Errorf("transaction hit by quota stop must stay uncategorized, got %q", txs[2].Category)
	}
}

func TestBatchPreservesOrderWithoutAI(t *testing.T) {
	e := New(noDelayConfig(), nil, nil)
	txs := []*models.Transaction{
		chargeTx("OXXO CENTRO"),
		chargeTx("CINEPOLIS VIP"),
		chargeTx("TELMEX RECIBO"),
	}

	result := e.CategorizeAll(context.Background(), txs)

	if result.QuotaExceeded {
		t.Fatal("pattern-only batch must not report quota exhaustion")
	}
	if result.AICalls != 0 {
		t.Errorf("pattern-only batch made %d AI calls", result.AICalls)
	}
	want := []string{"groceries", "entertainment", "services"}
	for i, w := range want {
		if result.Items[i] == nil || result.Items[i].Category != w {
			t.Errorf("item %d: got %+v, want category %q", i, result.Items[i], w)
		}
	}
}

func TestLearnPattern(t *testing.T) {
	e := New(noDelayConfig(), nil, nil)

	if err := e.LearnPattern("  Cafe La Habana  ", "food"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := e.Categorize(context.Background(), chargeTx("CAFE LA HABANA SUC 2"))
	if c.Category != "food" || c.Method != models.MethodUserPattern {
		t.Errorf("learned pattern not applied: %+v", c)
	}

	if err := e.LearnPattern("ab", "food"); err == nil {
		t.Error("expected error for a too-short pattern key")
	}
	if err := e.LearnPattern("long enough key", "not-a-category"); err == nil {
		t.Error("expected error for an unknown category")
	}
}

func TestDeterministicPatternPrecedence(t *testing.T) {
	// Two overlapping keys: the longer one must win every run.
	patterns := map[string]string{
		"uber":      "transport",
		"uber eats": "food",
	}

	for i := 0; i < 20; i++ {
		e := New(noDelayConfig(), nil, patterns)
		c, _ := e.Categorize(context.Background(), chargeTx("UBER EATS PEDIDO 7"))
		if c.Category != "food" {
			t.Fatalf("run %d: longest key must win, got %q", i, c.Category)
		}
	}
}

func TestBuildClassificationPrompt(t *testing.T) {
	tx := chargeTx("GASOLINERA LOMAS")
	tx.Date = "2025-01-10"

	prompt := BuildClassificationPrompt(tx, Categories)

	for _, want := range []string{"GASOLINERA LOMAS", "100.00", "2025-01-10", "transport", "only the category name"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
