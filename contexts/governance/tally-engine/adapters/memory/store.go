package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	domainerrors "github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/errors"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/ports"
	"github.com/AlmaLinux/astra/internal/shared/outbox"
)

// Store is the in-memory adapter backing tests and local runs. CommitTally
// holds the write lock across record, status flip, and outbox append, so
// readers never observe a half-committed tally.
type Store struct {
	mu sync.RWMutex

	elections map[string]entities.Election
	ballots   map[string][]entities.Ballot
	tallies   map[string]entities.TallyRecord
	outbox    []outbox.Message
}

func NewStore(seed []entities.Election) *Store {
	elections := make(map[string]entities.Election, len(seed))
	for _, election := range seed {
		elections[election.ElectionID] = election
	}
	return &Store{
		elections: elections,
		ballots:   make(map[string][]entities.Ballot),
		tallies:   make(map[string]entities.TallyRecord),
	}
}

func (s *Store) SetElection(election entities.Election) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elections[strings.TrimSpace(election.ElectionID)] = election
}

func (s *Store) SetBallots(electionID string, ballots []entities.Ballot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ballots[strings.TrimSpace(electionID)] = append([]entities.Ballot(nil), ballots...)
}

func (s *Store) GetElection(_ context.Context, electionID string) (entities.Election, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	election, ok := s.elections[electionID]
	if !ok {
		return entities.Election{}, domainerrors.ErrElectionNotFound
	}
	return election, nil
}

func (s *Store) ListBallots(_ context.Context, electionID string) ([]entities.Ballot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.elections[electionID]; !ok {
		return nil, domainerrors.ErrElectionNotFound
	}
	items := append([]entities.Ballot(nil), s.ballots[electionID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].BallotID < items[j].BallotID })
	return items, nil
}

func (s *Store) CommitTally(_ context.Context, record entities.TallyRecord, message outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.elections[record.ElectionID]
	if !ok {
		return domainerrors.ErrElectionNotFound
	}
	if _, exists := s.tallies[record.ElectionID]; exists || election.Status == entities.ElectionStatusTallied {
		return domainerrors.ErrAlreadyTallied
	}

	s.tallies[record.ElectionID] = record
	election.Status = entities.ElectionStatusTallied
	election.UpdatedAt = record.CompletedAt
	s.elections[record.ElectionID] = election
	message.Status = outbox.StatusPending
	s.outbox = append(s.outbox, message)
	return nil
}

func (s *Store) GetTally(_ context.Context, electionID string) (entities.TallyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.tallies[electionID]
	if !ok {
		return entities.TallyRecord{}, domainerrors.ErrTallyNotFound
	}
	return record, nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var pending []outbox.Message
	for _, message := range s.outbox {
		if message.Status != outbox.StatusPending {
			continue
		}
		pending = append(pending, message)
		if limit > 0 && len(pending) >= limit {
			break
		}
	}
	return pending, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, messageID string, _ time.Time) error {
	return s.setOutboxStatus(messageID, outbox.StatusPublished)
}

func (s *Store) MarkOutboxFailed(_ context.Context, messageID string) error {
	return s.setOutboxStatus(messageID, outbox.StatusFailed)
}

func (s *Store) setOutboxStatus(messageID string, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.outbox {
		if s.outbox[i].ID == messageID {
			s.outbox[i].Status = status
			return nil
		}
	}
	return domainerrors.ErrConflict
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var (
	_ ports.ElectionRepository = (*Store)(nil)
	_ ports.TallyRepository    = (*Store)(nil)
	_ ports.OutboxRepository   = (*Store)(nil)
	_ ports.Clock              = (*Store)(nil)
	_ ports.IDGenerator        = (*Store)(nil)
)
