package money

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// TestDataGenerator generates realistic statement data using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a fixed seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// TestTransaction is a generated statement line or ledger record.
type TestTransaction struct {
	ID          string
	Date        string // YYYY-MM-DD
	Payee       string
	Memo        string
	AmountCents int64
	Category    string
}

var payees = []string{
	"Albert Heijn", "Jumbo", "Lidl", "Aldi", "Starbucks",
	"Spotify", "Netflix", "Uber", "Bol.com", "Amazon",
	"Shell", "NS Reizigers", "Vattenfall", "Ziggo", "KPN",
	"Coolblue", "IKEA", "HEMA", "Kruidvat", "Thuisbezorgd",
}

var legalSuffixes = []string{"", "", "", " B.V.", " N.V.", " Inc.", " GmbH", " Ltd"}

var categories = []string{
	"Groceries", "Dining Out", "Transport", "Utilities",
	"Subscriptions", "Shopping", "Health", "Salary",
}

var memos = []string{
	"", "", "Card payment", "iDEAL", "Direct debit", "Monthly", "Refund", "SEPA transfer",
}

// Payee returns a random payee, sometimes with a legal-entity suffix or odd casing.
func (g *TestDataGenerator) Payee() string {
	p := payees[g.faker.Number(0, len(payees)-1)] + legalSuffixes[g.faker.Number(0, len(legalSuffixes)-1)]
	if g.faker.Number(0, 4) == 0 {
		p = strings.ToUpper(p)
	}
	return p
}

// Category returns a random category name.
func (g *TestDataGenerator) Category() string {
	return categories[g.faker.Number(0, len(categories)-1)]
}

// Date returns a random YYYY-MM-DD date in the year before ref.
func (g *TestDataGenerator) Date(ref time.Time) string {
	return g.faker.DateRange(ref.AddDate(-1, 0, 0), ref).Format(time.DateOnly)
}

// AmountCents returns a random signed amount. Roughly one in five is income.
func (g *TestDataGenerator) AmountCents(minCents, maxCents int64) int64 {
	if minCents > maxCents {
		minCents, maxCents = maxCents, minCents
	}
	cents := minCents + g.faker.Int64()%(maxCents-minCents+1)
	if cents < minCents {
		cents += maxCents - minCents + 1
	}
	if g.faker.Number(0, 4) == 0 {
		return cents
	}
	return -cents
}

// Transaction generates a single random transaction dated within a year of ref.
func (g *TestDataGenerator) Transaction(ref time.Time) TestTransaction {
	return TestTransaction{
		ID:          uuid.NewString(),
		Date:        g.Date(ref),
		Payee:       g.Payee(),
		Memo:        memos[g.faker.Number(0, len(memos)-1)],
		AmountCents: g.AmountCents(1, 50000),
		Category:    g.Category(),
	}
}

// Transactions generates count random transactions.
func (g *TestDataGenerator) Transactions(ref time.Time, count int) []TestTransaction {
	txs := make([]TestTransaction, count)
	for i := range txs {
		txs[i] = g.Transaction(ref)
	}
	return txs
}

// Recurring generates count transactions for the same payee and amount, a month apart.
func (g *TestDataGenerator) Recurring(ref time.Time, payee string, amountCents int64, count int) []TestTransaction {
	txs := make([]TestTransaction, count)
	for i := range txs {
		txs[i] = TestTransaction{
			ID:          uuid.NewString(),
			Date:        ref.AddDate(0, -i, 0).Format(time.DateOnly),
			Payee:       payee,
			AmountCents: amountCents,
		}
	}
	return txs
}

// StatementLayout controls how StatementCSV writes a statement.
type StatementLayout struct {
	Delimiter    string // "," when empty
	DecimalComma bool   // 12,34 instead of 12.34
	DayFirst     bool   // DD/MM/YYYY instead of YYYY-MM-DD
	SplitAmounts bool   // Inflow and Outflow columns instead of Amount
}

// StatementCSV renders txs as a bank statement with a header row.
func StatementCSV(txs []TestTransaction, layout StatementLayout) string {
	d := layout.Delimiter
	if d == "" {
		d = ","
	}

	var b strings.Builder
	if layout.SplitAmounts {
		b.WriteString(strings.Join([]string{"Date", "Payee", "Memo", "Inflow", "Outflow"}, d))
	} else {
		b.WriteString(strings.Join([]string{"Date", "Payee", "Memo", "Amount"}, d))
	}
	b.WriteString("\n")

	for _, tx := range txs {
		fields := []string{statementDate(tx.Date, layout.DayFirst), quote(tx.Payee, d), quote(tx.Memo, d)}
		amount := statementAmount(tx.AmountCents, layout.DecimalComma)
		if layout.SplitAmounts {
			abs := statementAmount(absCents(tx.AmountCents), layout.DecimalComma)
			if tx.AmountCents >= 0 {
				fields = append(fields, quote(abs, d), "")
			} else {
				fields = append(fields, "", quote(abs, d))
			}
		} else {
			fields = append(fields, quote(amount, d))
		}
		b.WriteString(strings.Join(fields, d))
		b.WriteString("\n")
	}
	return b.String()
}

func statementDate(iso string, dayFirst bool) string {
	if !dayFirst {
		return iso
	}
	t, err := time.Parse(time.DateOnly, iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}

func statementAmount(cents int64, decimalComma bool) string {
	s := FormatCents(cents)
	if decimalComma {
		s = strings.Replace(s, ".", ",", 1)
	}
	return s
}

func quote(s, delimiter string) string {
	if strings.Contains(s, delimiter) || strings.Contains(s, `"`) {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

func absCents(c int64) int64 {
	if c < 0 {
		return -c
	}
	return c
}
