package api

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/catalog"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/negotiation"
	"github.com/erazemk/nabava/internal/store"
)

// PageSize is the number of catalog rows per inventory page.
const PageSize = 10

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 32 << 20

// InventoryHandler serves the catalog view and the bulk upload.
type InventoryHandler struct {
	DB     *sql.DB
	Driver *negotiation.Driver
	Log    *logger.Logger
}

type inventoryResponse struct {
	Items         []model.InventoryItem `json:"items"`
	Page          int                   `json:"page"`
	TotalPages    int                   `json:"total_pages"`
	TotalItems    int                   `json:"total_items"`
	TotalValue    string                `json:"total_value"`
	LowStock      int                   `json:"low_stock"`
	LowStockItems []model.InventoryItem `json:"low_stock_items"`
	Negotiations  []model.Negotiation   `json:"negotiations"`
}

// List handles GET /inventory. Pages are 1-based; an unparsable page is
// treated as the first one and a page past the end as the last one.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	ctx := r.Context()
	summary, err := store.SummarizeInventory(ctx, h.DB)
	if err != nil {
		writeError(ctx, h.Log, w, err)
		return
	}
	totalPages := (summary.Count + PageSize - 1) / PageSize
	if totalPages == 0 {
		totalPages = 1
	}
	page = min(page, totalPages)

	items, err := store.ListInventoryPage(ctx, h.DB, PageSize, (page-1)*PageSize)
	if err != nil {
		writeError(ctx, h.Log, w, err)
		return
	}
	low, err := store.ListLowStock(ctx, h.DB)
	if err != nil {
		writeError(ctx, h.Log, w, err)
		return
	}
	negs, err := store.ListOpenNegotiations(ctx, h.DB)
	if err != nil {
		writeError(ctx, h.Log, w, err)
		return
	}

	jsonResponse(w, http.StatusOK, inventoryResponse{
		Items:         nonNil(items),
		Page:          page,
		TotalPages:    totalPages,
		TotalItems:    summary.Count,
		TotalValue:    summary.TotalValue.StringFixed(2),
		LowStock:      summary.LowStock,
		LowStockItems: nonNil(low),
		Negotiations:  nonNil(negs),
	})
}

// Upload handles POST /upload-all: a multipart form with "inventory" and
// "suppliers" CSV parts. Nothing is changed unless both files parse.
func (h *InventoryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(ctx, h.Log, w, apperr.Wrap(apperr.CodeValidation, err, "expected a multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	var items []model.InventoryItem
	err := withFormFile(r, "inventory", func(f io.Reader) (err error) {
		items, err = catalog.ParseInventory(f)
		return err
	})
	if err != nil {
		writeError(ctx, h.Log, w, uploadError("inventory", err))
		return
	}

	var suppliers []model.Supplier
	err = withFormFile(r, "suppliers", func(f io.Reader) (err error) {
		suppliers, err = catalog.ParseSuppliers(f)
		return err
	})
	if err != nil {
		writeError(ctx, h.Log, w, uploadError("suppliers", err))
		return
	}

	result, err := h.Driver.Upload(ctx, items, suppliers)
	if err != nil {
		writeError(ctx, h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, result)
}

// Suppliers handles GET /api/suppliers.
func (h *InventoryHandler) Suppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := store.ListSuppliers(r.Context(), h.DB)
	if err != nil {
		writeError(r.Context(), h.Log, w, err)
		return
	}
	jsonResponse(w, http.StatusOK, nonNil(suppliers))
}

var errMissingPart = errors.New("file part is missing")

func withFormFile(r *http.Request, field string, fn func(io.Reader) error) error {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return errMissingPart
	}
	if err != nil {
		return err
	}
	defer f.Close()
	return fn(f)
}

func uploadError(field string, err error) error {
	if errors.Is(err, errMissingPart) {
		return apperr.Newf(apperr.CodeValidation, "%s file is required", field).
			WithDetails(map[string]string{field: "is required"})
	}
	var pe *catalog.ParseError
	if errors.As(err, &pe) {
		return apperr.Wrap(apperr.CodeValidation, err, fmt.Sprintf("%s file: %v", field, pe)).
			WithDetails(map[string]any{"file": field, "line": pe.Line, "column": pe.Column})
	}
	return apperr.Wrap(apperr.CodeValidation, err, fmt.Sprintf("reading %s file", field))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
