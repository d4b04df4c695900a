package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/shared"
)

// DefaultMaxErrorDetails caps the stored error details of one import
const DefaultMaxErrorDetails = 100

// FileType is the export profile inferred from the file name
type FileType string

const (
	FileTypeCXC       FileType = "CXC"
	FileTypePorCobrar FileType = "POR_COBRAR"
	FileTypeUnknown   FileType = "UNKNOWN"
)

// IsValid checks if the file type is valid
func (f FileType) IsValid() bool {
	switch f {
	case FileTypeCXC, FileTypePorCobrar, FileTypeUnknown:
		return true
	}
	return false
}

// ImportStatus represents the outcome of an import execution
type ImportStatus string

const (
	ImportStatusRunning             ImportStatus = "RUNNING"
	ImportStatusCompleted           ImportStatus = "COMPLETED"
	ImportStatusCompletedWithErrors ImportStatus = "COMPLETED_WITH_ERRORS"
	ImportStatusFailed              ImportStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s ImportStatus) IsValid() bool {
	switch s {
	case ImportStatusRunning, ImportStatusCompleted, ImportStatusCompletedWithErrors, ImportStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s ImportStatus) IsTerminal() bool {
	return s != ImportStatusRunning
}

// ImportErrorDetail represents a detailed error for a specific row
type ImportErrorDetail struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// ImportWarning is a non-fatal finding reported with the import
type ImportWarning struct {
	Code          string `json:"code"`
	InvoiceNumber string `json:"invoice_number,omitempty"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	Message       string `json:"message"`
}

// ImportCounters are the totals of one import execution
type ImportCounters struct {
	TotalRows           int `json:"total_rows"`
	InvoicesCreated     int `json:"invoices_created"`
	InvoicesUpdated     int `json:"invoices_updated"`
	PaymentsCreated     int `json:"payments_created"`
	PaymentsSkipped     int `json:"payments_skipped"`
	CreditNotesRecorded int `json:"credit_notes_recorded"`
	PaymentsPending     int `json:"payments_pending"`
	DocumentsLinked     int `json:"documents_linked"`
	Errors              int `json:"errors"`
}

// ImportLog is the audit record of one import execution. It is built while the
// import runs and is immutable once finished.
type ImportLog struct {
	shared.BaseAggregateRoot
	FileName      string
	FileType      FileType
	FileSize      int64
	ContentDigest string
	ArchiveKey    string
	ActorID       uuid.UUID
	Counters      ImportCounters
	ErrorDetails  []ImportErrorDetail
	Warnings      []ImportWarning
	FailureReason string
	Status        ImportStatus
	StartedAt     time.Time
	FinishedAt    *time.Time
}

// NewImportLog starts an import log
func NewImportLog(fileName string, fileType FileType, fileSize int64, digest string, actorID uuid.UUID) (*ImportLog, error) {
	if fileName == "" {
		return nil, shared.NewDomainError("INVALID_FILE_NAME", "File name cannot be empty")
	}
	if fileSize < 0 {
		return nil, shared.NewDomainError("INVALID_FILE_SIZE", "File size cannot be negative")
	}
	if !fileType.IsValid() {
		return nil, shared.NewDomainError("INVALID_FILE_TYPE", fmt.Sprintf("Invalid file type: %s", fileType))
	}

	return &ImportLog{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FileName:          fileName,
		FileType:          fileType,
		FileSize:          fileSize,
		ContentDigest:     digest,
		ActorID:           actorID,
		ErrorDetails:      make([]ImportErrorDetail, 0),
		Warnings:          make([]ImportWarning, 0),
		Status:            ImportStatusRunning,
		StartedAt:         time.Now(),
	}, nil
}

// SetArchiveKey records where the raw export was archived
func (l *ImportLog) SetArchiveKey(key string) error {
	if l.Status.IsTerminal() {
		return l.finishedError()
	}
	l.ArchiveKey = key
	return nil
}

// Complete finishes the log. Error details beyond maxDetails are dropped while
// Counters.Errors keeps the full count.
func (l *ImportLog) Complete(counters ImportCounters, details []ImportErrorDetail, warnings []ImportWarning, maxDetails int) error {
	if l.Status.IsTerminal() {
		return l.finishedError()
	}
	if maxDetails <= 0 {
		maxDetails = DefaultMaxErrorDetails
	}
	if len(details) > maxDetails {
		details = details[:maxDetails]
	}
	if counters.Errors < len(details) {
		counters.Errors = len(details)
	}

	l.Counters = counters
	l.ErrorDetails = append(make([]ImportErrorDetail, 0, len(details)), details...)
	l.Warnings = append(make([]ImportWarning, 0, len(warnings)), warnings...)
	l.Status = ImportStatusCompleted
	if counters.Errors > 0 {
		l.Status = ImportStatusCompletedWithErrors
	}
	l.finish()
	return nil
}

// Fail finishes the log as FAILED
func (l *ImportLog) Fail(reason string, counters ImportCounters) error {
	if l.Status.IsTerminal() {
		return l.finishedError()
	}
	l.Counters = counters
	l.FailureReason = reason
	l.Status = ImportStatusFailed
	l.finish()
	return nil
}

func (l *ImportLog) finish() {
	now := time.Now()
	l.FinishedAt = &now
	l.IncrementVersion()
}

func (l *ImportLog) finishedError() error {
	return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Import log is already finished with status %s", l.Status))
}

// HasErrors returns true if any row failed
func (l *ImportLog) HasErrors() bool {
	return l.Counters.Errors > 0
}

// ErrorDetailsJSON returns the error details as a JSON string
func (l *ImportLog) ErrorDetailsJSON() (string, error) {
	return marshalList(l.ErrorDetails)
}

// WarningsJSON returns the warnings as a JSON string
func (l *ImportLog) WarningsJSON() (string, error) {
	return marshalList(l.Warnings)
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (l *ImportLog) SetErrorDetailsFromJSON(jsonStr string) error {
	details := make([]ImportErrorDetail, 0)
	if err := unmarshalList(jsonStr, &details); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	l.ErrorDetails = details
	return nil
}

// SetWarningsFromJSON parses warnings from a JSON string
func (l *ImportLog) SetWarningsFromJSON(jsonStr string) error {
	warnings := make([]ImportWarning, 0)
	if err := unmarshalList(jsonStr, &warnings); err != nil {
		return fmt.Errorf("failed to unmarshal warnings: %w", err)
	}
	l.Warnings = warnings
	return nil
}

// Duration returns how long the import ran
func (l *ImportLog) Duration() time.Duration {
	if l.FinishedAt == nil {
		return time.Since(l.StartedAt)
	}
	return l.FinishedAt.Sub(l.StartedAt)
}

func marshalList[T any](items []T) (string, error) {
	if len(items) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("failed to marshal: %w", err)
	}
	return string(data), nil
}

func unmarshalList[T any](jsonStr string, out *[]T) error {
	if jsonStr == "" || jsonStr == "[]" || jsonStr == "null" {
		return nil
	}
	return json.Unmarshal([]byte(jsonStr), out)
}
