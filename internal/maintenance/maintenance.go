// Package maintenance holds the offline scans behind cmd/migrate and
// cmd/audit. Both walk every stored record; neither goes through the stock
// engine, so no ledger entries or events are produced.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/leathercraft/inventory-service/internal/domain"
	"github.com/leathercraft/inventory-service/pkg/logging"
)

// RecordStore is the repository surface the scans need
type RecordStore interface {
	Each(ctx context.Context, fn func(*domain.InventoryRecord) error) error
	Save(ctx context.Context, record *domain.InventoryRecord) error
}

// MigrationReport summarises a migration run
type MigrationReport struct {
	Scanned        int
	StatusFixed    int
	LedgersTrimmed int
	EntriesDropped int
	Saved          int
	Failed         int
	DryRun         bool
}

// Migrator re-derives status and trims over-long ledgers
type Migrator struct {
	store  RecordStore
	logger *logging.Logger
	dryRun bool
	now    func() time.Time
}

// NewMigrator creates a Migrator. With dryRun set nothing is written.
func NewMigrator(store RecordStore, logger *logging.Logger, dryRun bool) *Migrator {
	return &Migrator{
		store:  store,
		logger: logger.WithComponent("migrate"),
		dryRun: dryRun,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run walks every record. A failed save is counted and logged, the scan
// keeps going; only a scan error aborts.
func (m *Migrator) Run(ctx context.Context) (*MigrationReport, error) {
	report := &MigrationReport{DryRun: m.dryRun}

	err := m.store.Each(ctx, func(record *domain.InventoryRecord) error {
		report.Scanned++

		before := record.Status
		record.RefreshStatus()
		statusFixed := record.Status != before

		dropped := record.TrimLedger()
		if statusFixed {
			report.StatusFixed++
		}
		if dropped > 0 {
			report.LedgersTrimmed++
			report.EntriesDropped += dropped
		}
		if !statusFixed && dropped == 0 {
			return nil
		}

		m.logger.Info("Record needs migration",
			"recordId", record.ID,
			"statusFrom", before,
			"statusTo", record.Status,
			"entriesDropped", dropped,
		)
		if m.dryRun {
			return nil
		}

		record.UpdatedAt = m.now()
		if err := m.store.Save(ctx, record); err != nil {
			report.Failed++
			m.logger.WithError(err).Warn("Failed to save migrated record", "recordId", record.ID)
			return nil
		}
		report.Saved++
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("migration scan failed: %w", err)
	}
	return report, nil
}

// Finding is one unhealthy record
type Finding struct {
	RecordID   string   `json:"recordId"`
	ItemKind   string   `json:"itemKind"`
	ItemID     string   `json:"itemId"`
	Violations []string `json:"violations"`
}

// AuditReport lists unhealthy records
type AuditReport struct {
	Scanned  int       `json:"scanned"`
	Findings []Finding `json:"findings"`
}

// Healthy reports whether no record broke an invariant
func (r *AuditReport) Healthy() bool { return len(r.Findings) == 0 }

// Audit checks every stored record against the record invariants
func Audit(ctx context.Context, store RecordStore) (*AuditReport, error) {
	report := &AuditReport{Findings: make([]Finding, 0)}

	err := store.Each(ctx, func(record *domain.InventoryRecord) error {
		report.Scanned++
		if v := record.InvariantViolations(); len(v) > 0 {
			report.Findings = append(report.Findings, Finding{
				RecordID:   record.ID,
				ItemKind:   string(record.ItemRef.Kind),
				ItemID:     record.ItemRef.ID,
				Violations: v,
			})
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("audit scan failed: %w", err)
	}
	return report, nil
}
