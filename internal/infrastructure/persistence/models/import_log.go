package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/notaria/backoffice/internal/domain/bulk"
)

// ImportLogModel is the persistence model for the ImportLog audit record.
type ImportLogModel struct {
	AggregateModel
	FileName            string            `gorm:"type:varchar(255);not null"`
	FileType            bulk.FileType     `gorm:"type:varchar(20);not null;index"`
	FileSize            int64             `gorm:"not null;default:0"`
	ContentDigest       string            `gorm:"type:varchar(64);not null;index"`
	ArchiveKey          string            `gorm:"type:varchar(512)"`
	ActorID             uuid.UUID         `gorm:"type:uuid;index"`
	TotalRows           int               `gorm:"not null;default:0"`
	InvoicesCreated     int               `gorm:"not null;default:0"`
	InvoicesUpdated     int               `gorm:"not null;default:0"`
	PaymentsCreated     int               `gorm:"not null;default:0"`
	PaymentsSkipped     int               `gorm:"not null;default:0"`
	CreditNotesRecorded int               `gorm:"not null;default:0"`
	PaymentsPending     int               `gorm:"not null;default:0"`
	DocumentsLinked     int               `gorm:"not null;default:0"`
	ErrorCount          int               `gorm:"not null;default:0"`
	ErrorDetails        string            `gorm:"type:jsonb;default:'[]'"`
	Warnings            string            `gorm:"type:jsonb;default:'[]'"`
	FailureReason       string            `gorm:"type:text"`
	Status              bulk.ImportStatus `gorm:"type:varchar(30);not null;index"`
	StartedAt           time.Time         `gorm:"not null;index"`
	FinishedAt          *time.Time
}

// TableName returns the table name for GORM
func (ImportLogModel) TableName() string {
	return "import_logs"
}

// ToDomain converts the persistence model to a domain ImportLog entity.
func (m *ImportLogModel) ToDomain() *bulk.ImportLog {
	log := &bulk.ImportLog{
		FileName:      m.FileName,
		FileType:      m.FileType,
		FileSize:      m.FileSize,
		ContentDigest: m.ContentDigest,
		ArchiveKey:    m.ArchiveKey,
		ActorID:       m.ActorID,
		Counters: bulk.ImportCounters{
			TotalRows:           m.TotalRows,
			InvoicesCreated:     m.InvoicesCreated,
			InvoicesUpdated:     m.InvoicesUpdated,
			PaymentsCreated:     m.PaymentsCreated,
			PaymentsSkipped:     m.PaymentsSkipped,
			CreditNotesRecorded: m.CreditNotesRecorded,
			PaymentsPending:     m.PaymentsPending,
			DocumentsLinked:     m.DocumentsLinked,
			Errors:              m.ErrorCount,
		},
		ErrorDetails:  make([]bulk.ImportErrorDetail, 0),
		Warnings:      make([]bulk.ImportWarning, 0),
		FailureReason: m.FailureReason,
		Status:        m.Status,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	}
	m.PopulateAggregateRoot(&log.BaseAggregateRoot)

	// Parse JSON columns
	_ = log.SetErrorDetailsFromJSON(m.ErrorDetails)
	_ = log.SetWarningsFromJSON(m.Warnings)

	return log
}

// FromDomain populates the persistence model from a domain ImportLog entity.
func (m *ImportLogModel) FromDomain(l *bulk.ImportLog) {
	m.FromDomainAggregateRoot(l.BaseAggregateRoot)
	m.FileName = l.FileName
	m.FileType = l.FileType
	m.FileSize = l.FileSize
	m.ContentDigest = l.ContentDigest
	m.ArchiveKey = l.ArchiveKey
	m.ActorID = l.ActorID
	m.TotalRows = l.Counters.TotalRows
	m.InvoicesCreated = l.Counters.InvoicesCreated
	m.InvoicesUpdated = l.Counters.InvoicesUpdated
	m.PaymentsCreated = l.Counters.PaymentsCreated
	m.PaymentsSkipped = l.Counters.PaymentsSkipped
	m.CreditNotesRecorded = l.Counters.CreditNotesRecorded
	m.PaymentsPending = l.Counters.PaymentsPending
	m.DocumentsLinked = l.Counters.DocumentsLinked
	m.ErrorCount = l.Counters.Errors
	m.FailureReason = l.FailureReason
	m.Status = l.Status
	m.StartedAt = l.StartedAt
	m.FinishedAt = l.FinishedAt

	if errorJSON, err := l.ErrorDetailsJSON(); err == nil {
		m.ErrorDetails = errorJSON
	} else {
		m.ErrorDetails = "[]"
	}
	if warningJSON, err := l.WarningsJSON(); err == nil {
		m.Warnings = warningJSON
	} else {
		m.Warnings = "[]"
	}
}

// ImportLogModelFromDomain creates a new persistence model from a domain ImportLog entity.
func ImportLogModelFromDomain(l *bulk.ImportLog) *ImportLogModel {
	m := &ImportLogModel{}
	m.FromDomain(l)
	return m
}
