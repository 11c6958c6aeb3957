package handler

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tesoreria/backend/internal/application/voucher"
	"github.com/tesoreria/backend/internal/domain/document"
	"github.com/tesoreria/backend/internal/domain/ledger"
)

// ===================== Request DTOs =====================

// CreateExpenseRequest represents a request to create an expense record
//
//	@Description	Create expense record request
type CreateExpenseRequest struct {
	Agreement        string          `json:"agreement" binding:"required" example:"2975-2024"`
	Concept          string          `json:"concept" binding:"required" example:"Honorarios profesionales"`
	Description      string          `json:"description" example:"Contrato de prestación de servicios"`
	Date             time.Time       `json:"date" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity" binding:"required" example:"10"`
	UnitPrice        decimal.Decimal `json:"unit_price" binding:"required" example:"100000"`
	RetentionPercent decimal.Decimal `json:"retention_percent" example:"2.5"`
	RetentionCode    string          `json:"retention_code" example:"28150510"`
	PaymentMethod    string          `json:"payment_method" binding:"required,oneof=cash transfer" example:"transfer"`
	Bank             string          `json:"bank" example:"Bancolombia"`
	Account          string          `json:"account" example:"123-456789-00"`

	CounterpartyIdentifier string `json:"counterparty_identifier" example:"1144099888"`
	CounterpartyName       string `json:"counterparty_name" example:"Andrés Perea"`
	CounterpartyAddress    string `json:"counterparty_address,omitempty"`
	CounterpartyPhone      string `json:"counterparty_phone,omitempty"`
}

// CreateIncomeRequest represents a request to create an income record
//
//	@Description	Create income record request
type CreateIncomeRequest struct {
	Agreement   string          `json:"agreement" binding:"required" example:"3065-2025"`
	Concept     string          `json:"concept" binding:"required" example:"Primer desembolso"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date" binding:"required"`
	GrossAmount decimal.Decimal `json:"gross_amount" binding:"required" example:"5000000"`
	TaxPercent  decimal.Decimal `json:"tax_percent" example:"1.1"`
	Bank        string          `json:"bank"`
	Account     string          `json:"account"`

	CounterpartyIdentifier string `json:"counterparty_identifier"`
	CounterpartyName       string `json:"counterparty_name" example:"Ministerio de Cultura"`
}

// RecordListFilter represents filter parameters for the record list
//
//	@Description	Record list filter
type RecordListFilter struct {
	Kind          string    `form:"kind" binding:"omitempty,oneof=expense income"`
	Agreement     string    `form:"agreement"`
	Search        string    `form:"search"`
	From          time.Time `form:"from" time_format:"2006-01-02" time_utc:"1"`
	To            time.Time `form:"to" time_format:"2006-01-02" time_utc:"1"`
	IncludeVoided bool      `form:"include_voided"`
	WithDocuments bool      `form:"with_documents"`
	Limit         int       `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset        int       `form:"offset" binding:"omitempty,min=0"`
}

// ===================== Response DTOs =====================

// DocumentReferenceResponse represents one resolved document reference
//
//	@Description	Resolved document reference
type DocumentReferenceResponse struct {
	State        string `json:"state" example:"AVAILABLE"`
	URL          string `json:"url,omitempty"`
	DownloadName string `json:"download_name,omitempty" example:"andres_perea_2024-06-10_#15.pdf"`
}

// RecordDocumentsResponse pairs a record's original voucher with its signed
// variant (expense) or payment receipt (income)
//
//	@Description	Documents attached to a ledger record
type RecordDocumentsResponse struct {
	Original DocumentReferenceResponse `json:"original"`
	Attached DocumentReferenceResponse `json:"attached"`
}

// AmountsResponse represents the monetary breakdown of a record
//
//	@Description	Monetary breakdown
type AmountsResponse struct {
	Gross    string `json:"gross" example:"1000000"`
	Retained string `json:"retained" example:"25000"`
	Net      string `json:"net" example:"975000"`
}

// RecordResponse represents a ledger record in API responses
//
//	@Description	Ledger record response
type RecordResponse struct {
	ID             string    `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Kind           string    `json:"kind" example:"expense"`
	AgreementCode  string    `json:"agreement_code" example:"2975-2024"`
	SequenceNumber int64     `json:"sequence_number" example:"15"`
	Date           time.Time `json:"date"`
	Concept        string    `json:"concept" example:"Honorarios profesionales"`
	Description    string    `json:"description,omitempty"`

	CounterpartyIdentifier string `json:"counterparty_identifier,omitempty"`
	CounterpartyName       string `json:"counterparty_name,omitempty"`

	Quantity         string `json:"quantity,omitempty" example:"10"`
	UnitPrice        string `json:"unit_price,omitempty" example:"100000"`
	RetentionPercent string `json:"retention_percent,omitempty" example:"2.5"`
	RetentionCode    string `json:"retention_code,omitempty"`
	PaymentMethod    string `json:"payment_method,omitempty" example:"transfer"`

	GrossAmount string `json:"gross_amount,omitempty" example:"5000000"`
	TaxPercent  string `json:"tax_percent,omitempty" example:"1.1"`
	Bank        string `json:"bank,omitempty"`
	Account     string `json:"account,omitempty"`

	Amounts     AmountsResponse `json:"amounts"`
	DocumentURL string          `json:"document_url,omitempty"`
	Voided      bool            `json:"voided"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Documents *RecordDocumentsResponse `json:"documents,omitempty"`
}

// VoidRecordResponse represents the outcome of a void transition
//
//	@Description	Void transition response
type VoidRecordResponse struct {
	Record        RecordResponse `json:"record"`
	AlreadyVoided bool           `json:"already_voided"`
}

// AgreementResponse represents an agreement in API responses
//
//	@Description	Agreement response
type AgreementResponse struct {
	ID     string `json:"id"`
	Code   string `json:"code" example:"2975-2024"`
	Name   string `json:"name" example:"Convenio interadministrativo 2975"`
	Label  string `json:"label" example:"2975-2024 Convenio interadministrativo 2975"`
	Active bool   `json:"active"`
}

// ===================== Converters =====================

func (h *RecordHandler) toRecordResponse(rec *ledger.LedgerRecord) RecordResponse {
	amounts := rec.Amounts()
	resp := RecordResponse{
		ID:                     rec.ID.String(),
		Kind:                   rec.Kind.String(),
		AgreementCode:          rec.AgreementCode,
		SequenceNumber:         rec.SequenceNumber,
		Date:                   rec.Date,
		Concept:                rec.Concept,
		Description:            rec.Description,
		CounterpartyIdentifier: rec.CounterpartyIdentifier,
		CounterpartyName:       rec.CounterpartyName,
		Bank:                   rec.Bank,
		Account:                rec.Account,
		Amounts: AmountsResponse{
			Gross:    amounts.Gross.String(),
			Retained: amounts.Retained.String(),
			Net:      amounts.Net.String(),
		},
		DocumentURL: rec.DocumentURL,
		Voided:      rec.Voided,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}

	if rec.Kind == ledger.KindExpense {
		resp.Quantity = rec.Quantity.String()
		resp.UnitPrice = rec.UnitPrice.String()
		resp.RetentionPercent = rec.RetentionPercent.String()
		resp.RetentionCode = rec.RetentionCode
		resp.PaymentMethod = rec.PaymentMethod.String()
	} else {
		resp.GrossAmount = rec.GrossAmount.String()
		resp.TaxPercent = rec.TaxPercent.String()
	}
	return resp
}

func (h *RecordHandler) toRecordResponseWithDocuments(rec *ledger.LedgerRecord, res voucher.Resolution) RecordResponse {
	resp := h.toRecordResponse(rec)

	attachedVariant := "firmado"
	if rec.Kind == ledger.KindIncome {
		attachedVariant = "recibo"
	}
	resp.Documents = &RecordDocumentsResponse{
		Original: toDocumentReference(rec, res.Original, ""),
		Attached: toDocumentReference(rec, res.Attached, attachedVariant),
	}
	return resp
}

// toDocumentReference carries the resolved state over and, for available
// documents, attaches the suggested download filename. The extension comes
// from the signed URL's path since income receipts vary by upload type.
func toDocumentReference(rec *ledger.LedgerRecord, ref document.Reference, variant string) DocumentReferenceResponse {
	out := DocumentReferenceResponse{State: string(ref.State), URL: ref.URL}
	if ref.State == document.StateAvailable {
		out.DownloadName = document.DownloadFilename(
			rec.CounterpartyName, rec.Date, rec.SequenceNumber, variant, extensionFromURL(ref.URL))
	}
	return out
}

func extensionFromURL(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	if i := strings.LastIndex(path, "."); i >= 0 && i < len(path)-1 {
		return strings.ToLower(path[i+1:])
	}
	return "pdf"
}

func toAgreementResponse(agreement *ledger.Agreement) AgreementResponse {
	return AgreementResponse{
		ID:     agreement.ID.String(),
		Code:   agreement.Code,
		Name:   agreement.Name,
		Label:  agreement.DisplayLabel(),
		Active: agreement.Active,
	}
}
