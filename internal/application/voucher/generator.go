package voucher

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tesoreria/backend/internal/domain/ledger"
	"github.com/tesoreria/backend/internal/infrastructure/printing"
	"github.com/tesoreria/backend/internal/infrastructure/telemetry"
)

// Ledger account codes printed on the expense voucher.
const (
	accountClearing = "28150510"
	accountCash     = "1105"
	accountBank     = "1110"
)

// Organization is the issuing entity printed in the voucher header.
type Organization struct {
	Name    string
	TaxID   string
	City    string
	Phone   string
	LogoURL string
}

// Generator renders voucher PDFs from ledger records. The whole document is
// produced in memory before any upload happens, so a render failure never
// leaves a partial object in storage.
type Generator struct {
	renderer printing.PDFRenderer
	org      Organization
	tmpl     *template.Template
	logger   *zap.Logger
	metrics  *telemetry.LedgerMetrics
}

// NewGenerator creates a generator
func NewGenerator(renderer printing.PDFRenderer, org Organization, logger *zap.Logger) (*Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := template.New("voucher").Parse(voucherTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse voucher template: %w", err)
	}
	return &Generator{
		renderer: renderer,
		org:      org,
		tmpl:     tmpl,
		logger:   logger,
	}, nil
}

// SetMetrics attaches business metrics emission for render outcomes.
func (g *Generator) SetMetrics(metrics *telemetry.LedgerMetrics) {
	g.metrics = metrics
}

func (g *Generator) rendered(ctx context.Context, kind ledger.RecordKind, outcome telemetry.RenderOutcome) {
	if g.metrics != nil {
		g.metrics.VoucherRendered(ctx, kind.String(), outcome)
	}
}

type accountingRow struct {
	Code    string
	Account string
	Partial string
	Debit   string
	Credit  string
}

type voucherData struct {
	Org   Organization
	Title string
	Seq   int64
	Date  string

	CounterpartyName string
	CounterpartyID   string
	Phone            string
	AccountLine      string
	Agreement        string

	Concept     string
	Description string

	AmountInWords string
	IsExpense     bool
	Rows          []accountingRow

	Gross string
	Tax   string
	Net   string

	Voided bool
}

// Render produces the voucher PDF for a record. The voided flag is passed
// explicitly by the caller and is never read off the record, so a void
// transition controls exactly what the regenerated document says.
func (g *Generator) Render(ctx context.Context, rec *ledger.LedgerRecord, counterparty *ledger.Counterparty, voided bool) ([]byte, error) {
	data := g.buildData(rec, counterparty, voided)

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		g.rendered(ctx, rec.Kind, telemetry.RenderOutcomeFailed)
		return nil, fmt.Errorf("failed to execute voucher template: %w", err)
	}

	result, err := g.renderer.Render(ctx, &printing.RenderRequest{
		HTML:        buf.String(),
		PaperSize:   printing.PaperLetter,
		Orientation: printing.OrientationPortrait,
		Margins:     printing.DefaultMargins(),
		Title:       data.Title,
	})
	if err != nil {
		g.rendered(ctx, rec.Kind, telemetry.RenderOutcomeFailed)
		return nil, err
	}
	g.rendered(ctx, rec.Kind, telemetry.RenderOutcomeSuccess)

	g.logger.Debug("voucher rendered",
		zap.String("kind", rec.Kind.String()),
		zap.Int64("sequence", rec.SequenceNumber),
		zap.Bool("voided", voided),
		zap.Int("bytes", len(result.PDFData)))

	return result.PDFData, nil
}

func (g *Generator) buildData(rec *ledger.LedgerRecord, counterparty *ledger.Counterparty, voided bool) voucherData {
	amounts := rec.Amounts()

	data := voucherData{
		Org:         g.org,
		Seq:         rec.SequenceNumber,
		Date:        rec.Date.Format("2006-01-02"),
		Agreement:   rec.AgreementCode,
		Concept:     orDash(rec.Concept),
		Description: orDash(rec.Description),
		IsExpense:   rec.Kind == ledger.KindExpense,
		Gross:       FormatMoney(amounts.Gross),
		Tax:         FormatMoney(amounts.Retained),
		Net:         FormatMoney(amounts.Net),
		Voided:      voided,

		// The legally operative amount is the net value for both kinds.
		AmountInWords: strings.ToUpper(ledger.AmountInWords(amounts.Net)),
	}

	if counterparty != nil {
		data.CounterpartyName = counterparty.Name
		data.CounterpartyID = counterparty.Identifier
		data.Phone = orDash(counterparty.Phone)
	} else {
		data.CounterpartyName = orDash(rec.CounterpartyName)
		data.CounterpartyID = orDash(rec.CounterpartyIdentifier)
		data.Phone = "-"
	}

	if rec.Kind == ledger.KindExpense {
		data.Title = fmt.Sprintf("Comprobante de Egreso No. %d", rec.SequenceNumber)
		data.AccountLine = accountLine(rec)
		data.Rows = expenseRows(rec, amounts)
	} else {
		data.Title = fmt.Sprintf("Comprobante de Ingreso No. %d", rec.SequenceNumber)
		data.AccountLine = bankLine(rec.Bank, rec.Account)
	}

	return data
}

// expenseRows builds the accounting ledger table: gross under the clearing
// account, retention under its code, net under cash or bank, and a balancing
// row where debits equal credits equal gross.
func expenseRows(rec *ledger.LedgerRecord, amounts ledger.Amounts) []accountingRow {
	paymentCode := accountBank
	if rec.PaymentMethod == ledger.PaymentCash {
		paymentCode = accountCash
	}

	return []accountingRow{
		{
			Code:    accountClearing,
			Account: "VALORES RECIBIDOS PARA TERCEROS " + rec.AgreementCode,
			Debit:   FormatMoney(amounts.Gross),
		},
		{
			Code:    rec.RetentionCode,
			Account: fmt.Sprintf("RETENCIÓN %s%%", rec.RetentionPercent.String()),
			Partial: FormatMoney(amounts.Retained),
			Credit:  FormatMoney(amounts.Retained),
		},
		{
			Code:    paymentCode,
			Account: strings.ToUpper(rec.PaymentMethod.String()),
			Partial: FormatMoney(amounts.Net),
			Credit:  FormatMoney(amounts.Net),
		},
		{
			Account: "Suma iguales:",
			Debit:   FormatMoney(amounts.Gross),
			Credit:  FormatMoney(amounts.Gross),
		},
	}
}

func accountLine(rec *ledger.LedgerRecord) string {
	if rec.PaymentMethod == ledger.PaymentCash {
		return "EFECTIVO"
	}
	return bankLine(rec.Bank, rec.Account)
}

func bankLine(bank, account string) string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(bank) != "" {
		parts = append(parts, bank)
	}
	if strings.TrimSpace(account) != "" {
		parts = append(parts, account)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " · ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// FormatMoney renders a peso amount with dot thousands separators and no
// decimals: 1500000 becomes $1.500.000.
func FormatMoney(amount decimal.Decimal) string {
	n := amount.Round(0).IntPart()
	negative := n < 0
	if negative {
		n = -n
	}

	digits := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}

	if negative {
		return "-$" + b.String()
	}
	return "$" + b.String()
}
