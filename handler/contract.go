package handler

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/KishoreAkashYS/chargebee-cpf/config"
	"github.com/KishoreAkashYS/chargebee-cpf/model"
	"github.com/KishoreAkashYS/chargebee-cpf/pkg/logger"
	"github.com/KishoreAkashYS/chargebee-cpf/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Biller creates the billing-provider objects for a confirmed contract.
type Biller interface {
	CreateSubscription(ctx context.Context, extracted *model.ExtractedContract) (*service.BillingResult, error)
}

// Archiver keeps object-storage copies of uploaded PDFs. Nil when archiving
// is disabled.
type Archiver interface {
	StorePDF(ctx context.Context, contractID, path string) error
	Clear(ctx context.Context) error
}

type ContractHandler struct {
	store     *service.ContractStore
	extractor service.StructuredExtractor
	billing   Biller
	archive   Archiver

	extractText  func(path string) (string, error)
	maxUploadMB  int64
	rawTextChars int
}

func NewContractHandler(store *service.ContractStore, extractor service.StructuredExtractor, billing Biller, archive Archiver, cfg *config.StorageConfig) *ContractHandler {
	return &ContractHandler{
		store:        store,
		extractor:    extractor,
		billing:      billing,
		archive:      archive,
		extractText:  service.ExtractPDFText,
		maxUploadMB:  cfg.MaxUploadMB,
		rawTextChars: cfg.RawTextChars,
	}
}

// Upload runs the full extraction pipeline synchronously: save the PDF,
// extract its text, structure it with the AI model, persist the record. The
// record is only written after the whole pipeline succeeds.
func (h *ContractHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are supported"})
		return
	}
	if header.Size > h.maxUploadMB*1024*1024 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File too large"})
		return
	}

	contractID := uuid.New().String()
	timestamp := time.Now()
	ctx := context.WithValue(c.Request.Context(), logger.ContractIDKey, contractID)

	path, err := h.store.SaveUpload(contractID, file)
	if err != nil {
		logger.Error(ctx, "failed to save upload", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	pdfText, err := h.extractText(path)
	if err != nil {
		logger.Error(ctx, "PDF text extraction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	extracted, err := h.extractor.Extract(ctx, pdfText)
	if err != nil {
		logger.Error(ctx, "AI extraction failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rawText := pdfText
	if len(rawText) > h.rawTextChars {
		rawText = rawText[:h.rawTextChars]
	}

	record := &model.ContractRecord{
		ContractID: contractID,
		Filename:   header.Filename,
		Timestamp:  timestamp,
		Status:     model.StatusExtracted,
		Extracted:  extracted,
		RawText:    rawText,
	}
	if err := h.store.Save(record); err != nil {
		logger.Error(ctx, "failed to persist record", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.archive != nil {
		if err := h.archive.StorePDF(ctx, contractID, path); err != nil {
			// Best-effort: the disk copy is authoritative
			logger.Warn(ctx, "failed to archive PDF", "error", err)
		}
	}

	logger.Info(ctx, "contract extracted", "filename", header.Filename)

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"contract_id": contractID,
		"filename":    header.Filename,
		"timestamp":   timestamp,
		"extracted":   extracted,
	})
}

type ConfirmRequest struct {
	ContractID string                   `json:"contract_id"`
	Extracted  *model.ExtractedContract `json:"extracted"`
}

// Confirm stores the operator-reviewed fields and then creates the billing
// objects. Billing is skipped (with an explicit skip result) when disabled.
func (h *ContractHandler) Confirm(c *gin.Context) {
	var req ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ContractID == "" || req.Extracted == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing contract_id or extracted data"})
		return
	}

	ctx := context.WithValue(c.Request.Context(), logger.ContractIDKey, req.ContractID)

	// Ramp serializes as an array even when the client omits it
	if req.Extracted.Ramp == nil {
		req.Extracted.Ramp = []model.RampPhase{}
	}

	record, err := h.store.Get(req.ContractID)
	switch {
	case errors.Is(err, service.ErrContractNotFound):
		// The billing call still happens for unknown identifiers; only the
		// record update is skipped.
		logger.Warn(ctx, "confirming unknown contract")
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	default:
		now := time.Now()
		record.Extracted = req.Extracted
		record.Status = model.StatusConfirmed
		record.ConfirmedAt = &now
		if err := h.store.Save(record); err != nil {
			logger.Error(ctx, "failed to persist confirmation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	result, err := h.billing.CreateSubscription(ctx, req.Extracted)
	if err != nil {
		logger.Error(ctx, "billing creation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.Info(ctx, "contract confirmed", "skipped", result.Skipped)

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"chargebee": result,
	})
}

// History lists summaries for all persisted records, most recent first.
func (h *ContractHandler) History(c *gin.Context) {
	summaries, err := h.store.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"contracts": summaries})
}

// Get returns the full persisted record for one contract.
func (h *ContractHandler) Get(c *gin.Context) {
	record, err := h.store.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrContractNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, record)
}

// DeleteAll removes every uploaded file and persisted record. There is no
// per-identifier deletion.
func (h *ContractHandler) DeleteAll(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.store.ClearUploads(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "message": "Error deleting files"})
		return
	}
	if err := h.store.Clear(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error(), "message": "Error deleting files"})
		return
	}
	if h.archive != nil {
		if err := h.archive.Clear(ctx); err != nil {
			logger.Warn(ctx, "failed to clear archive", "error", err)
		}
	}

	logger.Info(ctx, "all contracts deleted")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All files deleted successfully",
	})
}
