package ports

import (
	"context"
	"time"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	"github.com/AlmaLinux/astra/internal/shared/events"
	"github.com/AlmaLinux/astra/internal/shared/outbox"
)

type ElectionRepository interface {
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error)
}

// TallyRepository persists completed tallies. CommitTally writes the record,
// flips the election to tallied, and appends the outbox message in one
// transaction; a concurrent commit for the same election must fail with
// ErrAlreadyTallied and leave nothing behind.
type TallyRepository interface {
	CommitTally(ctx context.Context, record entities.TallyRecord, message outbox.Message) error
	GetTally(ctx context.Context, electionID string) (entities.TallyRecord, error)
}

// TallyLock serializes tally runs per election within a process. Acquire is
// non-blocking: ok is false when another run holds the election.
type TallyLock interface {
	Acquire(electionID string) (release func(), ok bool)
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]outbox.Message, error)
	MarkOutboxPublished(ctx context.Context, messageID string, publishedAt time.Time) error
	MarkOutboxFailed(ctx context.Context, messageID string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

type Metrics interface {
	TallyCompleted(outcome string, rounds int, duration time.Duration)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
