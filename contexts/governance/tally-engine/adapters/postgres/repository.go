package postgresadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	domainerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
	"github.com/AlmaLinux/astra/internal/shared/outbox"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	id := strings.TrimSpace(electionID)
	var row electionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("tally_repo_get_election_failed", err, "election_id", id)
	}

	var candidateRows []candidateModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", id).
		Order("candidate_id ASC").
		Find(&candidateRows).
		Error; err != nil {
		return entities.Election{}, r.logError("tally_repo_list_candidates_failed", err, "election_id", id)
	}
	var groupRows []exclusionGroupModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", id).
		Order("name ASC").
		Find(&groupRows).
		Error; err != nil {
		return entities.Election{}, r.logError("tally_repo_list_groups_failed", err, "election_id", id)
	}

	return row.toEntity(candidateRows, groupRows)
}

func (r *Repository) ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error) {
	id := strings.TrimSpace(electionID)
	var rows []ballotModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", id).
		Order("id ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, r.logError("tally_repo_list_ballots_failed", err, "election_id", id)
	}
	ballots := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		ballot, err := row.toEntity()
		if err != nil {
			return nil, r.logError("tally_repo_decode_ballot_failed", err,
				"election_id", id,
				"ballot_id", row.ID,
			)
		}
		ballots = append(ballots, ballot)
	}
	return ballots, nil
}

// CommitTally flips the election to tallied, inserts the tally record, and
// appends the outbox row in one transaction. The status guard on the UPDATE
// makes concurrent commits lose cleanly with ErrAlreadyTallied.
func (r *Repository) CommitTally(ctx context.Context, record entities.TallyRecord, message outbox.Message) error {
	row, err := tallyModelFromRecord(record)
	if err != nil {
		return r.logError("tally_repo_encode_tally_failed", err,
			"election_id", record.ElectionID,
			"tally_id", record.TallyID,
		)
	}
	outboxRow := outboxModel{
		OutboxID:  message.ID,
		EventType: message.EventType,
		Payload:   message.Payload,
		Status:    outbox.StatusPending,
		CreatedAt: record.CompletedAt,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flip := tx.Model(&electionModel{}).
			Where("id = ? AND status = ?", record.ElectionID, string(entities.ElectionStatusClosed)).
			Updates(map[string]any{
				"status":     string(entities.ElectionStatusTallied),
				"updated_at": record.CompletedAt,
			})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			return domainerrors.ErrAlreadyTallied
		}
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrAlreadyTallied
			}
			return err
		}
		return tx.Create(&outboxRow).Error
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyTallied) {
			return domainerrors.ErrAlreadyTallied
		}
		return r.logError("tally_repo_commit_tally_failed", err,
			"election_id", record.ElectionID,
			"tally_id", record.TallyID,
		)
	}
	return nil
}

func (r *Repository) GetTally(ctx context.Context, electionID string) (entities.TallyRecord, error) {
	id := strings.TrimSpace(electionID)
	var row tallyModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", id).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.TallyRecord{}, domainerrors.ErrTallyNotFound
		}
		return entities.TallyRecord{}, r.logError("tally_repo_get_tally_failed", err, "election_id", id)
	}
	record, err := row.toRecord()
	if err != nil {
		return entities.TallyRecord{}, r.logError("tally_repo_decode_tally_failed", err,
			"election_id", id,
			"tally_id", row.TallyID,
		)
	}
	return record, nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ?", outbox.StatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	if err != nil {
		if isUndefinedTable(err) {
			return nil, nil
		}
		return nil, r.logError("tally_repo_list_outbox_failed", err)
	}
	messages := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, outbox.Message{
			ID:         row.OutboxID,
			EventType:  row.EventType,
			Payload:    row.Payload,
			Status:     row.Status,
			RetryCount: row.RetryCount,
		})
	}
	return messages, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, messageID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(messageID)).
		Updates(map[string]any{
			"status":       outbox.StatusPublished,
			"published_at": publishedAt,
		})
	if result.Error != nil {
		return r.logError("tally_repo_mark_outbox_published_failed", result.Error, "outbox_id", messageID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) MarkOutboxFailed(ctx context.Context, messageID string) error {
	result := r.db.WithContext(ctx).Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(messageID)).
		Updates(map[string]any{
			"status":      outbox.StatusFailed,
			"retry_count": gorm.Expr("retry_count + 1"),
		})
	if result.Error != nil {
		return r.logError("tally_repo_mark_outbox_failed_failed", result.Error, "outbox_id", messageID)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/tally-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("tally repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

type electionModel struct {
	ID                 string    `gorm:"column:id;primaryKey"`
	Name               string    `gorm:"column:name"`
	Seats              int       `gorm:"column:seats"`
	Status             string    `gorm:"column:status"`
	QuorumPercent      int       `gorm:"column:quorum_percent"`
	EligibleVoterCount int       `gorm:"column:eligible_voter_count"`
	EligibleVoteWeight int       `gorm:"column:eligible_vote_weight"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (electionModel) TableName() string {
	return "elections"
}

func (m electionModel) toEntity(candidateRows []candidateModel, groupRows []exclusionGroupModel) (entities.Election, error) {
	candidates := make([]entities.Candidate, 0, len(candidateRows))
	for _, row := range candidateRows {
		candidates = append(candidates, entities.Candidate{
			CandidateID: row.CandidateID,
			DisplayName: row.DisplayName,
			GroupName:   row.GroupName,
		})
	}
	groups := make([]entities.ExclusionGroup, 0, len(groupRows))
	for _, row := range groupRows {
		var members []string
		if len(row.CandidateIDs) > 0 {
			if err := json.Unmarshal(row.CandidateIDs, &members); err != nil {
				return entities.Election{}, err
			}
		}
		groups = append(groups, entities.ExclusionGroup{
			Name:         row.Name,
			MaxElected:   row.MaxElected,
			CandidateIDs: members,
		})
	}
	return entities.Election{
		ElectionID:         m.ID,
		Name:               m.Name,
		Seats:              m.Seats,
		Status:             entities.ElectionStatus(m.Status),
		Candidates:         candidates,
		Groups:             groups,
		QuorumPercent:      m.QuorumPercent,
		EligibleVoterCount: m.EligibleVoterCount,
		EligibleVoteWeight: m.EligibleVoteWeight,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}, nil
}

type candidateModel struct {
	ElectionID  string `gorm:"column:election_id;primaryKey"`
	CandidateID string `gorm:"column:candidate_id;primaryKey"`
	DisplayName string `gorm:"column:display_name"`
	GroupName   string `gorm:"column:group_name"`
}

func (candidateModel) TableName() string {
	return "election_candidates"
}

type exclusionGroupModel struct {
	ElectionID   string `gorm:"column:election_id;primaryKey"`
	Name         string `gorm:"column:name;primaryKey"`
	MaxElected   int    `gorm:"column:max_elected"`
	CandidateIDs []byte `gorm:"column:candidate_ids"`
}

func (exclusionGroupModel) TableName() string {
	return "election_exclusion_groups"
}

type ballotModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	ElectionID string    `gorm:"column:election_id"`
	Ranking    []byte    `gorm:"column:ranking"`
	Weight     int       `gorm:"column:weight"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (ballotModel) TableName() string {
	return "ballots"
}

func (m ballotModel) toEntity() (entities.Ballot, error) {
	var ranking []string
	if len(m.Ranking) > 0 {
		if err := json.Unmarshal(m.Ranking, &ranking); err != nil {
			return entities.Ballot{}, err
		}
	}
	return entities.Ballot{
		BallotID:   m.ID,
		ElectionID: m.ElectionID,
		Ranking:    ranking,
		Weight:     m.Weight,
		CreatedAt:  m.CreatedAt,
	}, nil
}

// tallyPayload is the JSON document persisted per tally. Keeping the full
// record in one column preserves the exact committed artifact, including
// the audit trail and transfer provenance.
type tallyPayload struct {
	Result    entities.Result        `json:"result"`
	Rounds    []entities.RoundRecord `json:"rounds"`
	Transfers []entities.Transfer    `json:"transfers"`
	Audit     []entities.AuditEvent  `json:"audit"`
}

type tallyModel struct {
	ElectionID       string    `gorm:"column:election_id;primaryKey"`
	TallyID          string    `gorm:"column:tally_id"`
	Quota            float64   `gorm:"column:quota"`
	BallotsCast      int       `gorm:"column:ballots_cast"`
	ValidVotes       float64   `gorm:"column:valid_votes"`
	ExhaustedOnEntry int       `gorm:"column:exhausted_on_entry"`
	ExhaustedWeight  float64   `gorm:"column:exhausted_weight"`
	Payload          []byte    `gorm:"column:payload"`
	CompletedAt      time.Time `gorm:"column:completed_at"`
}

func (tallyModel) TableName() string {
	return "election_tallies"
}

func tallyModelFromRecord(record entities.TallyRecord) (tallyModel, error) {
	payload, err := json.Marshal(tallyPayload{
		Result:    record.Result,
		Rounds:    record.Rounds,
		Transfers: record.Transfers,
		Audit:     record.Audit,
	})
	if err != nil {
		return tallyModel{}, err
	}
	return tallyModel{
		ElectionID:       record.ElectionID,
		TallyID:          record.TallyID,
		Quota:            record.Result.Quota,
		BallotsCast:      record.BallotsCast,
		ValidVotes:       record.ValidVotes,
		ExhaustedOnEntry: record.ExhaustedOnEntry,
		ExhaustedWeight:  record.ExhaustedWeight,
		Payload:          payload,
		CompletedAt:      record.CompletedAt,
	}, nil
}

func (m tallyModel) toRecord() (entities.TallyRecord, error) {
	var payload tallyPayload
	if err := json.Unmarshal(m.Payload, &payload); err != nil {
		return entities.TallyRecord{}, err
	}
	return entities.TallyRecord{
		TallyID:          m.TallyID,
		ElectionID:       m.ElectionID,
		Result:           payload.Result,
		Rounds:           payload.Rounds,
		Transfers:        payload.Transfers,
		Audit:            payload.Audit,
		BallotsCast:      m.BallotsCast,
		ValidVotes:       m.ValidVotes,
		ExhaustedOnEntry: m.ExhaustedOnEntry,
		ExhaustedWeight:  m.ExhaustedWeight,
		CompletedAt:      m.CompletedAt,
	}, nil
}

type outboxModel struct {
	OutboxID    string     `gorm:"column:outbox_id;primaryKey"`
	EventType   string     `gorm:"column:event_type"`
	Payload     []byte     `gorm:"column:payload"`
	Status      string     `gorm:"column:status"`
	RetryCount  int        `gorm:"column:retry_count"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	PublishedAt *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "tally_outbox"
}

var (
	_ ports.ElectionRepository = (*Repository)(nil)
	_ ports.TallyRepository    = (*Repository)(nil)
	_ ports.OutboxRepository   = (*Repository)(nil)
)
