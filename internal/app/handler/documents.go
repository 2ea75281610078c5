package handler

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"autohaul-app/internal/app/ds"
)

// ==================== ДОКУМЕНТЫ ====================

// UploadDocument - загрузка документа к заявке (владелец или админ)
func (h *Handler) UploadDocument(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid transportation request id")
		return
	}

	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	request, err := h.Repository.GetTransportationRequest(id)
	if err != nil {
		fail(ctx, http.StatusNotFound, "transportation request not found")
		return
	}

	if profile.Role != ds.RoleAdmin && request.CustomerID != profile.ID {
		fail(ctx, http.StatusForbidden, "access denied")
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		fail(ctx, http.StatusBadRequest, "file is required")
		return
	}

	if err := os.MkdirAll(h.DocumentsDir, 0o755); err != nil {
		logrus.Error(err)
		fail(ctx, http.StatusInternalServerError, "failed to prepare storage")
		return
	}

	// Под уникальным именем, чтобы не затирать одноимённые файлы
	storageName := fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(file.Filename))
	storagePath := filepath.Join(h.DocumentsDir, storageName)

	if err := ctx.SaveUploadedFile(file, storagePath); err != nil {
		logrus.Error(err)
		fail(ctx, http.StatusInternalServerError, "failed to save file")
		return
	}

	doc := ds.DocumentAttachment{
		TransportationRequestID: id,
		UploaderID:              profile.ID,
		FileName:                file.Filename,
		FileSize:                file.Size,
		ContentType:             file.Header.Get("Content-Type"),
		StoragePath:             storagePath,
	}

	if err := h.Repository.CreateDocumentAttachment(&doc); err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to save document metadata")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"status": "ok", "document": doc})
}

// GetRequestDocuments - документы по заявке
func (h *Handler) GetRequestDocuments(ctx *gin.Context) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid transportation request id")
		return
	}

	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	request, err := h.Repository.GetTransportationRequest(id)
	if err != nil {
		fail(ctx, http.StatusNotFound, "transportation request not found")
		return
	}

	if profile.Role != ds.RoleAdmin && request.CustomerID != profile.ID {
		fail(ctx, http.StatusForbidden, "access denied")
		return
	}

	docs, err := h.Repository.GetDocumentsForRequest(id)
	if err != nil {
		fail(ctx, http.StatusInternalServerError, "failed to get documents")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "ok", "documents": docs})
}

// DownloadDocument - скачивание документа по ID
func (h *Handler) DownloadDocument(ctx *gin.Context) {
	docID, err := strconv.Atoi(ctx.Param("doc_id"))
	if err != nil {
		fail(ctx, http.StatusBadRequest, "invalid document id")
		return
	}

	profile, ok := h.currentProfile(ctx)
	if !ok {
		fail(ctx, http.StatusUnauthorized, "authentication required")
		return
	}

	doc, err := h.Repository.GetDocumentAttachment(docID)
	if err != nil {
		fail(ctx, http.StatusNotFound, "document not found")
		return
	}

	request, err := h.Repository.GetTransportationRequest(doc.TransportationRequestID)
	if err != nil {
		fail(ctx, http.StatusNotFound, "transportation request not found")
		return
	}

	if profile.Role != ds.RoleAdmin && request.CustomerID != profile.ID {
		fail(ctx, http.StatusForbidden, "access denied")
		return
	}

	ctx.FileAttachment(doc.StoragePath, doc.FileName)
}
