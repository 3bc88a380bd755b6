package queries

import (
	"context"
	"log/slog"

	application "github.com/AlmaLinux/astra/contexts/governance/tally-engine/application"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
)

// Counting algorithm identity embedded in every public audit export so
// archived exports stay self-describing.
const (
	AlgorithmName    = "Single Transferable Vote"
	AlgorithmVariant = "droop-quota, fractional surplus transfer"
	AlgorithmVersion = "1.0"
)

// AuditExport is the public, self-contained audit artifact for a tallied
// election. The event sequence alone reconstructs the count.
type AuditExport struct {
	ElectionID string
	TallyID    string
	Algorithm  AlgorithmInfo
	Events     []entities.AuditEvent
}

type AlgorithmInfo struct {
	Name    string `json:"name"`
	Variant string `json:"variant"`
	Version string `json:"version"`
}

// AuditQuery exports the append-only audit trail of a committed tally.
type AuditQuery struct {
	Tallies ports.TallyRepository
	Logger  *slog.Logger
}

func (q AuditQuery) Export(ctx context.Context, electionID string) (AuditExport, error) {
	logger := application.ResolveLogger(q.Logger)
	record, err := q.Tallies.GetTally(ctx, electionID)
	if err != nil {
		logger.Warn("tally audit export failed",
			"event", "tally_audit_export_failed",
			"module", "governance/tally-engine",
			"layer", "application",
			"election_id", electionID,
			"error", err.Error(),
		)
		return AuditExport{}, err
	}
	return AuditExport{
		ElectionID: record.ElectionID,
		TallyID:    record.TallyID,
		Algorithm: AlgorithmInfo{
			Name:    AlgorithmName,
			Variant: AlgorithmVariant,
			Version: AlgorithmVersion,
		},
		Events: record.Audit,
	}, nil
}
