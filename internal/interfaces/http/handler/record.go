package handler

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	ledgerapp "github.com/tesoreria/backend/internal/application/ledger"
	"github.com/tesoreria/backend/internal/application/voucher"
	"github.com/tesoreria/backend/internal/domain/ledger"
)

// RecordHandler handles ledger record and document API endpoints
type RecordHandler struct {
	BaseHandler
	records *ledgerapp.RecordService
	uploads *voucher.UploadService
	voids   *voucher.VoidService
}

// NewRecordHandler creates a new RecordHandler
func NewRecordHandler(records *ledgerapp.RecordService, uploads *voucher.UploadService, voids *voucher.VoidService) *RecordHandler {
	return &RecordHandler{
		records: records,
		uploads: uploads,
		voids:   voids,
	}
}

// parseKind validates the :kind path parameter
func (h *RecordHandler) parseKind(c *gin.Context) (ledger.RecordKind, bool) {
	kind := ledger.RecordKind(c.Param("kind"))
	if !kind.IsValid() {
		h.BadRequest(c, "kind must be expense or income")
		return "", false
	}
	return kind, true
}

// parseID validates the :id path parameter
func (h *RecordHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// ListRecords godoc
//
//	@Summary		List ledger records
//	@Description	List expense and income records, optionally with resolved document references
//	@Tags			records
//	@Produce		json
//	@Param			kind			query		string	false	"Filter by kind"	Enums(expense, income)
//	@Param			agreement		query		string	false	"Filter by agreement code"
//	@Param			search			query		string	false	"Match concept, description or counterparty name"
//	@Param			from			query		string	false	"Earliest record date (YYYY-MM-DD)"
//	@Param			to				query		string	false	"Latest record date (YYYY-MM-DD)"
//	@Param			include_voided	query		bool	false	"Include voided records"
//	@Param			with_documents	query		bool	false	"Resolve stored documents and attach signed URLs"
//	@Param			limit			query		int		false	"Page size"
//	@Param			offset			query		int		false	"Offset"
//	@Success		200	{object}	APIResponse[[]RecordResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		401	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records [get]
func (h *RecordHandler) ListRecords(c *gin.Context) {
	var filter RecordListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	serviceFilter := ledger.RecordFilter{
		Kind:          ledger.RecordKind(filter.Kind),
		AgreementCode: filter.Agreement,
		Search:        filter.Search,
		From:          filter.From,
		To:            filter.To,
		IncludeVoided: filter.IncludeVoided,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}

	var (
		recs []*ledger.LedgerRecord
		err  error
	)
	if filter.WithDocuments {
		recs, err = h.records.ListWithDocuments(c.Request.Context(), serviceFilter)
	} else {
		recs, err = h.records.List(c.Request.Context(), serviceFilter)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := make([]RecordResponse, len(recs))
	for i, rec := range recs {
		if filter.WithDocuments {
			response[i] = h.toRecordResponseWithDocuments(rec, h.records.Documents(rec))
		} else {
			response[i] = h.toRecordResponse(rec)
		}
	}
	h.Success(c, response)
}

// GetRecord godoc
//
//	@Summary		Get a ledger record
//	@Description	Get one record by kind and id, with its cached document references
//	@Tags			records
//	@Produce		json
//	@Param			kind	path		string	true	"Record kind"	Enums(expense, income)
//	@Param			id		path		string	true	"Record ID"
//	@Success		200	{object}	APIResponse[RecordResponse]
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/{kind}/{id} [get]
func (h *RecordHandler) GetRecord(c *gin.Context) {
	kind, ok := h.parseKind(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	rec, err := h.records.Get(c.Request.Context(), kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, h.toRecordResponseWithDocuments(rec, h.records.Documents(rec)))
}

// CreateExpense godoc
//
//	@Summary		Create an expense record
//	@Description	Create an expense record; its voucher is rendered and stored right after. A voucher failure is reported as a warning, the record stays.
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateExpenseRequest	true	"Expense fields"
//	@Success		201	{object}	APIResponse[RecordResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/expenses [post]
func (h *RecordHandler) CreateExpense(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	var req CreateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.records.CreateExpense(c.Request.Context(), identity, ledgerapp.CreateExpenseInput{
		Agreement:              req.Agreement,
		Concept:                req.Concept,
		Description:            req.Description,
		Date:                   req.Date,
		Quantity:               req.Quantity,
		UnitPrice:              req.UnitPrice,
		RetentionPercent:       req.RetentionPercent,
		RetentionCode:          req.RetentionCode,
		PaymentMethod:          ledger.PaymentMethod(req.PaymentMethod),
		Bank:                   req.Bank,
		Account:                req.Account,
		CounterpartyIdentifier: req.CounterpartyIdentifier,
		CounterpartyName:       req.CounterpartyName,
		CounterpartyAddress:    req.CounterpartyAddress,
		CounterpartyPhone:      req.CounterpartyPhone,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.CreatedWithWarning(c, h.toRecordResponse(result.Record), result.VoucherWarning)
}

// CreateIncome godoc
//
//	@Summary		Create an income record
//	@Description	Create an income record. The income voucher is rendered on demand, not at creation.
//	@Tags			records
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateIncomeRequest	true	"Income fields"
//	@Success		201	{object}	APIResponse[RecordResponse]
//	@Failure		400	{object}	ErrorResponse
//	@Failure		403	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/incomes [post]
func (h *RecordHandler) CreateIncome(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}

	var req CreateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.records.CreateIncome(c.Request.Context(), identity, ledgerapp.CreateIncomeInput{
		Agreement:              req.Agreement,
		Concept:                req.Concept,
		Description:            req.Description,
		Date:                   req.Date,
		GrossAmount:            req.GrossAmount,
		TaxPercent:             req.TaxPercent,
		Bank:                   req.Bank,
		Account:                req.Account,
		CounterpartyIdentifier: req.CounterpartyIdentifier,
		CounterpartyName:       req.CounterpartyName,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, h.toRecordResponse(result.Record))
}

// VoidRecord godoc
//
//	@Summary		Void a ledger record
//	@Description	Irreversibly mark a record as annulled. The database write decides the outcome; expense voucher regeneration is best-effort and surfaces as a warning.
//	@Tags			records
//	@Produce		json
//	@Param			kind	path		string	true	"Record kind"	Enums(expense, income)
//	@Param			id		path		string	true	"Record ID"
//	@Success		200	{object}	APIResponse[VoidRecordResponse]
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/{kind}/{id}/void [post]
func (h *RecordHandler) VoidRecord(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	kind, ok := h.parseKind(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.voids.Void(c.Request.Context(), identity, kind, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithWarning(c, VoidRecordResponse{
		Record:        h.toRecordResponse(result.Record),
		AlreadyVoided: result.AlreadyVoided,
	}, result.RegenWarning)
}

// UploadSignedExpense godoc
//
//	@Summary		Upload a signed expense voucher
//	@Description	Store the hand-signed PDF for an expense record at its fixed key, replacing any previous upload. A concurrent upload to the same record is rejected with 409.
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Expense record ID"
//	@Param			file	formData	file	true	"Signed voucher PDF"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/expenses/{id}/signed [put]
func (h *RecordHandler) UploadSignedExpense(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	rec, err := h.records.Get(c.Request.Context(), ledger.KindExpense, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	data, _, ok := h.readUpload(c)
	if !ok {
		return
	}

	if err := h.uploads.UploadExpenseSigned(c.Request.Context(), identity, rec, data); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// UploadIncomeReceipt godoc
//
//	@Summary		Upload an income payment receipt
//	@Description	Store the payment receipt for an income record. Accepts PDF and png/jpg/webp images; the storage key extension follows the content type.
//	@Tags			documents
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			id		path		string	true	"Income record ID"
//	@Param			file	formData	file	true	"Receipt file"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		409	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/incomes/{id}/receipt [put]
func (h *RecordHandler) UploadIncomeReceipt(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	rec, err := h.records.Get(c.Request.Context(), ledger.KindIncome, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	data, declaredType, ok := h.readUpload(c)
	if !ok {
		return
	}

	if err := h.uploads.UploadIncomeReceipt(c.Request.Context(), identity, rec, data, declaredType); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RenderIncomeVoucher godoc
//
//	@Summary		Render an income voucher
//	@Description	Render the income voucher PDF, store it under the discoverable name, and return a signed URL for immediate viewing.
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Income record ID"
//	@Success		200	{object}	APIResponse[SignedURLData]
//	@Failure		403	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/records/incomes/{id}/voucher [post]
func (h *RecordHandler) RenderIncomeVoucher(c *gin.Context) {
	identity, ok := h.requireIdentity(c)
	if !ok {
		return
	}
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	url, err := h.records.RenderIncomeVoucher(c.Request.Context(), identity, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SignedURLData{URL: url})
}

// ListAgreements godoc
//
//	@Summary		List agreements
//	@Description	List funding agreements available for new records
//	@Tags			agreements
//	@Produce		json
//	@Param			all	query		bool	false	"Include inactive agreements"
//	@Success		200	{object}	APIResponse[[]AgreementResponse]
//	@Security		BearerAuth
//	@Router			/agreements [get]
func (h *RecordHandler) ListAgreements(c *gin.Context) {
	includeAll := c.Query("all") == "true"

	agreements, err := h.records.ListAgreements(c.Request.Context(), !includeAll)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	response := make([]AgreementResponse, len(agreements))
	for i, agreement := range agreements {
		response[i] = toAgreementResponse(agreement)
	}
	h.Success(c, response)
}

// readUpload pulls the uploaded bytes from either a multipart "file" field or
// the raw request body, returning the declared content type alongside.
func (h *RecordHandler) readUpload(c *gin.Context) ([]byte, string, bool) {
	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			h.BadRequest(c, "uploaded file could not be read")
			return nil, "", false
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			h.BadRequest(c, "uploaded file could not be read")
			return nil, "", false
		}
		return data, file.Header.Get("Content-Type"), true
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil || len(data) == 0 {
		h.BadRequest(c, "upload body is empty")
		return nil, "", false
	}
	return data, c.ContentType(), true
}
