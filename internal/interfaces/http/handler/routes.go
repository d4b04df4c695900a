package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/notaria/backoffice/internal/interfaces/http/middleware"
	"github.com/notaria/backoffice/internal/interfaces/http/router"
)

// BillingRoutes builds the /billing route group. sweep may be nil when the
// scheduler is disabled.
func BillingRoutes(imports *BillingImportHandler, ledger *LedgerHandler, sweep *SweepHandler) *router.DomainGroup {
	billing := router.NewDomainGroup("billing", "/billing")

	billing.Group("imports", "/imports").
		POST("", middleware.BodyLimit(imports.maxUploadSize+multipartOverhead), imports.Import).
		GET("", imports.ListImports).
		GET("/:id", imports.GetImport).
		GET("/:id/errors.csv", imports.DownloadErrors)

	billing.Group("invoices", "/invoices").
		GET("", ledger.ListInvoices).
		GET("/:number", ledger.GetInvoice)

	billing.Group("credit-notes", "/credit-notes").
		GET("", ledger.ListCreditNotes).
		POST("/:id/resolve", ledger.ResolveCreditNote)

	if sweep != nil {
		billing.Group("sweep", "/sweep").
			GET("", sweep.Status).
			POST("", sweep.Trigger)
	}
	return billing
}

// multipartOverhead leaves room for the multipart envelope around the file
const multipartOverhead = 64 << 10

// RegisterHealth mounts the health probe outside the versioned API
func RegisterHealth(engine *gin.Engine, h *HealthHandler) {
	engine.GET("/health", h.Health)
}
