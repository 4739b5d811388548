package service

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/castlemilk/taxledger/backend/internal/merge"
	"github.com/castlemilk/taxledger/backend/internal/model"
)

// API exposes the ledger service over JSON HTTP. Authentication and tenant
// resolution happen upstream; the handlers only require the resolved tenant
// id in the X-Tenant-ID header.
type API struct {
	svc *LedgerService
	log zerolog.Logger
}

// NewAPI creates the HTTP surface over a ledger service.
func NewAPI(svc *LedgerService, log zerolog.Logger) *API {
	return &API{svc: svc, log: log}
}

// Register attaches all routes to the mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/sources/{source}/sync", a.tenantHandler(a.syncSource))
	mux.HandleFunc("GET /v1/transactions", a.tenantHandler(a.listTransactions))
	mux.HandleFunc("POST /v1/transactions", a.tenantHandler(a.createTransaction))
	mux.HandleFunc("DELETE /v1/transactions/{id}", a.tenantHandler(a.deleteTransaction))
	mux.HandleFunc("POST /v1/transactions/{id}/analysis", a.tenantHandler(a.attachAnalysis))
	mux.HandleFunc("GET /v1/transactions/{id}/receipts", a.tenantHandler(a.receiptsForTransaction))
	mux.HandleFunc("GET /v1/transactions/{id}/receipt-suggestions", a.tenantHandler(a.suggestReceipts))
	mux.HandleFunc("GET /v1/bills", a.tenantHandler(a.listBills))
	mux.HandleFunc("POST /v1/bills", a.tenantHandler(a.createBill))
	mux.HandleFunc("PUT /v1/bills/{id}", a.tenantHandler(a.updateBill))
	mux.HandleFunc("DELETE /v1/bills/{id}", a.tenantHandler(a.deleteBill))
	mux.HandleFunc("GET /v1/receipts", a.tenantHandler(a.listReceipts))
	mux.HandleFunc("POST /v1/receipts", a.tenantHandler(a.createReceipt))
	mux.HandleFunc("DELETE /v1/receipts/{id}", a.tenantHandler(a.deleteReceipt))
	mux.HandleFunc("POST /v1/receipts/{id}/link", a.tenantHandler(a.linkReceipt))
	mux.HandleFunc("POST /v1/receipts/{id}/unlink", a.tenantHandler(a.unlinkReceipt))
	mux.HandleFunc("POST /v1/receipts/{id}/document", a.tenantHandler(a.uploadReceiptDocument))
	mux.HandleFunc("GET /v1/receipts/{id}/document", a.tenantHandler(a.downloadReceiptDocument))
	mux.HandleFunc("GET /v1/receipts/export", a.tenantHandler(a.exportReceipts))
	mux.HandleFunc("GET /v1/invoices", a.tenantHandler(a.listInvoices))
	mux.HandleFunc("POST /v1/invoices", a.tenantHandler(a.createInvoice))
	mux.HandleFunc("PUT /v1/invoices/{id}", a.tenantHandler(a.updateInvoice))
	mux.HandleFunc("DELETE /v1/invoices/{id}", a.tenantHandler(a.deleteInvoice))
	mux.HandleFunc("GET /v1/tax/summary", a.tenantHandler(a.taxSummary))
	mux.HandleFunc("GET /v1/tax/export", a.tenantHandler(a.exportTaxSummary))
}

type tenantFunc func(w http.ResponseWriter, r *http.Request, tenantID string)

// tenantHandler extracts the resolved tenant scope or rejects the request.
func (a *API) tenantHandler(fn tenantFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID := r.Header.Get("X-Tenant-ID")
		if tenantID == "" {
			writeError(w, http.StatusBadRequest, "X-Tenant-ID header is required")
			return
		}
		fn(w, r, tenantID)
	}
}

func (a *API) syncSource(w http.ResponseWriter, r *http.Request, tenantID string) {
	source := model.TransactionSource(r.PathValue("source"))

	var req struct {
		Verified     bool                 `json:"verified"`
		FetchedAt    time.Time            `json:"fetched_at"`
		Transactions []*model.Transaction `json:"transactions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := a.svc.SyncSource(r.Context(), tenantID, &model.SourceBatch{
		Source:       source,
		Verified:     req.Verified,
		FetchedAt:    req.FetchedAt,
		Transactions: req.Transactions,
	})
	if err != nil {
		a.serviceError(w, err, "sync source")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// transactionView decorates a canonical transaction with derived display
// fields.
type transactionView struct {
	*model.Transaction
	DisplayVendor string `json:"display_vendor"`
	TaxLineID     string `json:"tax_line_id"`
}

func (a *API) listTransactions(w http.ResponseWriter, r *http.Request, tenantID string) {
	txns, err := a.svc.Transactions(r.Context(), tenantID)
	if err != nil {
		a.serviceError(w, err, "list transactions")
		return
	}
	views := make([]transactionView, 0, len(txns))
	for _, txn := range txns {
		views = append(views, transactionView{
			Transaction:   txn,
			DisplayVendor: merge.FormatVendor(txn.Vendor),
			TaxLineID:     a.svc.ClassifyTransaction(txn).ID,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": views, "count": len(views)})
}

func (a *API) createTransaction(w http.ResponseWriter, r *http.Request, tenantID string) {
	var txn model.Transaction
	if err := json.NewDecoder(r.Body).Decode(&txn); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := a.svc.CreateTransaction(r.Context(), tenantID, &txn)
	if err != nil {
		a.serviceError(w, err, "create transaction")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) deleteTransaction(w http.ResponseWriter, r *http.Request, tenantID string) {
	if err := a.svc.DeleteTransaction(r.Context(), tenantID, r.PathValue("id")); err != nil {
		a.serviceError(w, err, "delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) attachAnalysis(w http.ResponseWriter, r *http.Request, tenantID string) {
	var analysis model.Analysis
	if err := json.NewDecoder(r.Body).Decode(&analysis); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := a.svc.AttachAnalysis(r.Context(), tenantID, r.PathValue("id"), &analysis); err != nil {
		a.serviceError(w, err, "attach analysis")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) receiptsForTransaction(w http.ResponseWriter, r *http.Request, tenantID string) {
	linked, err := a.svc.ReceiptsFor(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		a.serviceError(w, err, "list linked receipts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipts": linked, "count": len(linked)})
}

func (a *API) suggestReceipts(w http.ResponseWriter, r *http.Request, tenantID string) {
	suggestions, err := a.svc.SuggestReceipts(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		a.serviceError(w, err, "suggest receipts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions, "count": len(suggestions)})
}

func (a *API) listBills(w http.ResponseWriter, r *http.Request, tenantID string) {
	views, err := a.svc.BillsWithPayments(r.Context(), tenantID, time.Now())
	if err != nil {
		a.serviceError(w, err, "list bills")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bills": views, "count": len(views)})
}

func (a *API) createBill(w http.ResponseWriter, r *http.Request, tenantID string) {
	var bill model.Bill
	if err := json.NewDecoder(r.Body).Decode(&bill); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := a.svc.CreateBill(r.Context(), tenantID, &bill)
	if err != nil {
		a.serviceError(w, err, "create bill")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) updateBill(w http.ResponseWriter, r *http.Request, tenantID string) {
	var bill model.Bill
	if err := json.NewDecoder(r.Body).Decode(&bill); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	bill.ID = r.PathValue("id")
	if err := a.svc.UpdateBill(r.Context(), tenantID, &bill); err != nil {
		a.serviceError(w, err, "update bill")
		return
	}
	writeJSON(w, http.StatusOK, &bill)
}

func (a *API) deleteBill(w http.ResponseWriter, r *http.Request, tenantID string) {
	if err := a.svc.DeleteBill(r.Context(), tenantID, r.PathValue("id")); err != nil {
		a.serviceError(w, err, "delete bill")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) listReceipts(w http.ResponseWriter, r *http.Request, tenantID string) {
	list, err := a.svc.ListReceipts(r.Context(), tenantID)
	if err != nil {
		a.serviceError(w, err, "list receipts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"receipts": list, "count": len(list)})
}

func (a *API) createReceipt(w http.ResponseWriter, r *http.Request, tenantID string) {
	var receipt model.Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := a.svc.AddReceipt(r.Context(), tenantID, &receipt)
	if err != nil {
		a.serviceError(w, err, "create receipt")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) deleteReceipt(w http.ResponseWriter, r *http.Request, tenantID string) {
	if err := a.svc.DeleteReceipt(r.Context(), tenantID, r.PathValue("id")); err != nil {
		a.serviceError(w, err, "delete receipt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) linkReceipt(w http.ResponseWriter, r *http.Request, tenantID string) {
	var req struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "transaction_id is required")
		return
	}
	if err := a.svc.LinkReceipt(r.Context(), tenantID, r.PathValue("id"), req.TransactionID); err != nil {
		a.serviceError(w, err, "link receipt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) unlinkReceipt(w http.ResponseWriter, r *http.Request, tenantID string) {
	if err := a.svc.UnlinkReceipt(r.Context(), tenantID, r.PathValue("id")); err != nil {
		a.serviceError(w, err, "unlink receipt")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) uploadReceiptDocument(w http.ResponseWriter, r *http.Request, tenantID string) {
	filename := r.URL.Query().Get("filename")
	path, err := a.svc.UploadReceiptDocument(r.Context(), tenantID, r.PathValue("id"), filename, r.Body)
	if err != nil {
		a.serviceError(w, err, "upload receipt document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"document_ref": path})
}

func (a *API) downloadReceiptDocument(w http.ResponseWriter, r *http.Request, tenantID string) {
	rc, err := a.svc.OpenReceiptDocument(r.Context(), tenantID, r.PathValue("id"))
	if err != nil {
		a.serviceError(w, err, "download receipt document")
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, rc); err != nil {
		a.log.Error().Err(err).Msg("stream receipt document")
	}
}

func (a *API) exportReceipts(w http.ResponseWriter, r *http.Request, tenantID string) {
	export, err := a.svc.ExportReceiptArchive(r.Context(), tenantID)
	if err != nil {
		a.serviceError(w, err, "export receipts")
		return
	}
	writeExport(w, export)
}

func (a *API) listInvoices(w http.ResponseWriter, r *http.Request, tenantID string) {
	list, err := a.svc.ListInvoices(r.Context(), tenantID)
	if err != nil {
		a.serviceError(w, err, "list invoices")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": list, "count": len(list)})
}

func (a *API) createInvoice(w http.ResponseWriter, r *http.Request, tenantID string) {
	var invoice model.Invoice
	if err := json.NewDecoder(r.Body).Decode(&invoice); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := a.svc.CreateInvoice(r.Context(), tenantID, &invoice)
	if err != nil {
		a.serviceError(w, err, "create invoice")
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (a *API) updateInvoice(w http.ResponseWriter, r *http.Request, tenantID string) {
	var invoice model.Invoice
	if err := json.NewDecoder(r.Body).Decode(&invoice); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	invoice.ID = r.PathValue("id")
	if err := a.svc.UpdateInvoice(r.Context(), tenantID, &invoice); err != nil {
		a.serviceError(w, err, "update invoice")
		return
	}
	writeJSON(w, http.StatusOK, &invoice)
}

func (a *API) deleteInvoice(w http.ResponseWriter, r *http.Request, tenantID string) {
	if err := a.svc.DeleteInvoice(r.Context(), tenantID, r.PathValue("id")); err != nil {
		a.serviceError(w, err, "delete invoice")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) taxSummary(w http.ResponseWriter, r *http.Request, tenantID string) {
	summary, err := a.svc.TaxSummary(r.Context(), tenantID)
	if err != nil {
		a.serviceError(w, err, "tax summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) exportTaxSummary(w http.ResponseWriter, r *http.Request, tenantID string) {
	format := ExportFormat(r.URL.Query().Get("format"))
	export, err := a.svc.ExportTaxSummary(r.Context(), tenantID, format)
	if err != nil {
		a.serviceError(w, err, "export tax summary")
		return
	}
	writeExport(w, export)
}

// serviceError maps a service failure onto an HTTP status. Not-found errors
// become 404, everything else 500.
func (a *API) serviceError(w http.ResponseWriter, err error, op string) {
	a.log.Error().Err(err).Str("op", op).Msg("request failed")
	var status int
	switch {
	case isNotFound(err):
		status = http.StatusNotFound
	case errors.Is(err, io.EOF):
		status = http.StatusBadRequest
	default:
		status = http.StatusInternalServerError
	}
	writeError(w, status, err.Error())
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeExport(w http.ResponseWriter, export *Export) {
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.Filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}
