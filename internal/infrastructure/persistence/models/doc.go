// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: BaseModel and AggregateModel
// - billing.go: invoices, payments, allocations and credit notes
// - document.go: read-only view of the externally owned documents table
// - import_log.go: import audit log
package models
