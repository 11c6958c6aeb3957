package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tesoreria/backend/internal/domain/ledger"
)

// ExpenseRecordModel is the persistence model for expense ledger records.
// SequenceNumber is backed by a bigserial column; the default:null tag makes
// GORM omit it on insert and read the assigned value back.
type ExpenseRecordModel struct {
	BaseModel
	AgreementCode  string    `gorm:"column:agreement_code;not null;index"`
	SequenceNumber int64     `gorm:"column:sequence_number;default:null;uniqueIndex"`
	Date           time.Time `gorm:"column:date;not null"`
	Concept        string    `gorm:"column:concept;not null"`
	Description    string    `gorm:"column:description"`

	CounterpartyID         *uuid.UUID `gorm:"column:counterparty_id;type:uuid;index"`
	CounterpartyIdentifier string     `gorm:"column:counterparty_identifier;index"`
	CounterpartyName       string     `gorm:"column:counterparty_name"`

	Quantity         decimal.Decimal `gorm:"column:quantity;type:numeric(18,4);not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(18,4);not null"`
	RetentionPercent decimal.Decimal `gorm:"column:retention_percent;type:numeric(7,4);not null"`
	RetentionCode    string          `gorm:"column:retention_code"`
	PaymentMethod    string          `gorm:"column:payment_method;not null"`
	Bank             string          `gorm:"column:bank"`
	Account          string          `gorm:"column:account"`

	DocumentURL string `gorm:"column:document_url"`
	Voided      bool   `gorm:"column:voided;not null;default:false"`
}

// TableName specifies the table name
func (ExpenseRecordModel) TableName() string {
	return "expense_records"
}

// ToDomain converts the model to a domain record
func (m *ExpenseRecordModel) ToDomain() *ledger.LedgerRecord {
	return &ledger.LedgerRecord{
		BaseEntity:             m.BaseModel.ToDomain(),
		Kind:                   ledger.KindExpense,
		AgreementCode:          m.AgreementCode,
		SequenceNumber:         m.SequenceNumber,
		Date:                   m.Date,
		Concept:                m.Concept,
		Description:            m.Description,
		CounterpartyID:         m.CounterpartyID,
		CounterpartyIdentifier: m.CounterpartyIdentifier,
		CounterpartyName:       m.CounterpartyName,
		Quantity:               m.Quantity,
		UnitPrice:              m.UnitPrice,
		RetentionPercent:       m.RetentionPercent,
		RetentionCode:          m.RetentionCode,
		PaymentMethod:          ledger.PaymentMethod(m.PaymentMethod),
		Bank:                   m.Bank,
		Account:                m.Account,
		DocumentURL:            m.DocumentURL,
		Voided:                 m.Voided,
	}
}

// FromDomain populates the model from a domain record
func (m *ExpenseRecordModel) FromDomain(rec *ledger.LedgerRecord) {
	m.FromDomainBaseEntity(rec.BaseEntity)
	m.AgreementCode = rec.AgreementCode
	m.SequenceNumber = rec.SequenceNumber
	m.Date = rec.Date
	m.Concept = rec.Concept
	m.Description = rec.Description
	m.CounterpartyID = rec.CounterpartyID
	m.CounterpartyIdentifier = rec.CounterpartyIdentifier
	m.CounterpartyName = rec.CounterpartyName
	m.Quantity = rec.Quantity
	m.UnitPrice = rec.UnitPrice
	m.RetentionPercent = rec.RetentionPercent
	m.RetentionCode = rec.RetentionCode
	m.PaymentMethod = rec.PaymentMethod.String()
	m.Bank = rec.Bank
	m.Account = rec.Account
	m.DocumentURL = rec.DocumentURL
	m.Voided = rec.Voided
}

// IncomeRecordModel is the persistence model for income ledger records. Its
// sequence counter is independent from the expense one.
type IncomeRecordModel struct {
	BaseModel
	AgreementCode  string    `gorm:"column:agreement_code;not null;index"`
	SequenceNumber int64     `gorm:"column:sequence_number;default:null;uniqueIndex"`
	Date           time.Time `gorm:"column:date;not null"`
	Concept        string    `gorm:"column:concept;not null"`
	Description    string    `gorm:"column:description"`

	CounterpartyID         *uuid.UUID `gorm:"column:counterparty_id;type:uuid;index"`
	CounterpartyIdentifier string     `gorm:"column:counterparty_identifier;index"`
	CounterpartyName       string     `gorm:"column:counterparty_name"`

	GrossAmount decimal.Decimal `gorm:"column:gross_amount;type:numeric(18,4);not null"`
	TaxPercent  decimal.Decimal `gorm:"column:tax_percent;type:numeric(7,4);not null"`
	Bank        string          `gorm:"column:bank"`
	Account     string          `gorm:"column:account"`

	DocumentURL string `gorm:"column:document_url"`
	Voided      bool   `gorm:"column:voided;not null;default:false"`
}

// TableName specifies the table name
func (IncomeRecordModel) TableName() string {
	return "income_records"
}

// ToDomain converts the model to a domain record
func (m *IncomeRecordModel) ToDomain() *ledger.LedgerRecord {
	return &ledger.LedgerRecord{
		BaseEntity:             m.BaseModel.ToDomain(),
		Kind:                   ledger.KindIncome,
		AgreementCode:          m.AgreementCode,
		SequenceNumber:         m.SequenceNumber,
		Date:                   m.Date,
		Concept:                m.Concept,
		Description:            m.Description,
		CounterpartyID:         m.CounterpartyID,
		CounterpartyIdentifier: m.CounterpartyIdentifier,
		CounterpartyName:       m.CounterpartyName,
		GrossAmount:            m.GrossAmount,
		TaxPercent:             m.TaxPercent,
		Bank:                   m.Bank,
		Account:                m.Account,
		DocumentURL:            m.DocumentURL,
		Voided:                 m.Voided,
	}
}

// FromDomain populates the model from a domain record
func (m *IncomeRecordModel) FromDomain(rec *ledger.LedgerRecord) {
	m.FromDomainBaseEntity(rec.BaseEntity)
	m.AgreementCode = rec.AgreementCode
	m.SequenceNumber = rec.SequenceNumber
	m.Date = rec.Date
	m.Concept = rec.Concept
	m.Description = rec.Description
	m.CounterpartyID = rec.CounterpartyID
	m.CounterpartyIdentifier = rec.CounterpartyIdentifier
	m.CounterpartyName = rec.CounterpartyName
	m.GrossAmount = rec.GrossAmount
	m.TaxPercent = rec.TaxPercent
	m.Bank = rec.Bank
	m.Account = rec.Account
	m.DocumentURL = rec.DocumentURL
	m.Voided = rec.Voided
}

// CounterpartyModel is the persistence model for counterparties.
type CounterpartyModel struct {
	BaseModel
	Identifier string `gorm:"column:identifier;not null;uniqueIndex"`
	Name       string `gorm:"column:name;not null"`
	Address    string `gorm:"column:address"`
	Phone      string `gorm:"column:phone"`
}

// TableName specifies the table name
func (CounterpartyModel) TableName() string {
	return "counterparties"
}

// ToDomain converts the model to a domain counterparty
func (m *CounterpartyModel) ToDomain() *ledger.Counterparty {
	return &ledger.Counterparty{
		BaseEntity: m.BaseModel.ToDomain(),
		Identifier: m.Identifier,
		Name:       m.Name,
		Address:    m.Address,
		Phone:      m.Phone,
	}
}

// FromDomain populates the model from a domain counterparty
func (m *CounterpartyModel) FromDomain(c *ledger.Counterparty) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.Identifier = c.Identifier
	m.Name = c.Name
	m.Address = c.Address
	m.Phone = c.Phone
}

// AgreementModel is the persistence model for funding agreements.
type AgreementModel struct {
	BaseModel
	Code   string `gorm:"column:code;not null;uniqueIndex"`
	Name   string `gorm:"column:name;not null"`
	Active bool   `gorm:"column:active;not null;default:true"`
}

// TableName specifies the table name
func (AgreementModel) TableName() string {
	return "agreements"
}

// ToDomain converts the model to a domain agreement
func (m *AgreementModel) ToDomain() *ledger.Agreement {
	return &ledger.Agreement{
		BaseEntity: m.BaseModel.ToDomain(),
		Code:       m.Code,
		Name:       m.Name,
		Active:     m.Active,
	}
}

// FromDomain populates the model from a domain agreement
func (m *AgreementModel) FromDomain(a *ledger.Agreement) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Code = a.Code
	m.Name = a.Name
	m.Active = a.Active
}
