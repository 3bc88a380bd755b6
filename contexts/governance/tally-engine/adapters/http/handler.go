package httpadapter

import (
	"context"
	"log/slog"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/application/commands"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/application/queries"
	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
	httptransport "github.com/AlmaLinux/astra/contexts/governance/tally-engine/transport/http"
)

type Handler struct {
	Tallies commands.TallyUseCase
	Results queries.ResultsQuery
	Audit   queries.AuditQuery
	Flows   queries.FlowsQuery
	Quorum  queries.QuorumQuery
	Logger  *slog.Logger
}

func (h Handler) RunTallyHandler(ctx context.Context, electionID string, actorID string) (httptransport.TallyResultResponse, error) {
	result, err := h.Tallies.RunTally(ctx, commands.RunTallyCommand{
		ElectionID: electionID,
		ActorID:    actorID,
	})
	if err != nil {
		return httptransport.TallyResultResponse{}, err
	}
	resp := tallyResultResponse(result.Record)
	resp.Replayed = result.Replayed
	return resp, nil
}

func (h Handler) ResultsHandler(ctx context.Context, electionID string) (httptransport.TallyResultResponse, error) {
	record, err := h.Results.GetResults(ctx, electionID)
	if err != nil {
		return httptransport.TallyResultResponse{}, err
	}
	return tallyResultResponse(record), nil
}

func (h Handler) AuditHandler(ctx context.Context, electionID string) (httptransport.AuditExportResponse, error) {
	export, err := h.Audit.Export(ctx, electionID)
	if err != nil {
		return httptransport.AuditExportResponse{}, err
	}
	events := make([]httptransport.AuditEventItem, 0, len(export.Events))
	for _, event := range export.Events {
		events = append(events, httptransport.AuditEventItem{
			Seq:       event.Seq,
			Kind:      string(event.Kind),
			Timestamp: event.Timestamp,
			Payload:   event.Payload,
		})
	}
	return httptransport.AuditExportResponse{
		ElectionID: export.ElectionID,
		TallyID:    export.TallyID,
		Algorithm: httptransport.AlgorithmItem{
			Name:    export.Algorithm.Name,
			Variant: export.Algorithm.Variant,
			Version: export.Algorithm.Version,
		},
		Events: events,
	}, nil
}

func (h Handler) FlowsHandler(ctx context.Context, electionID string) (httptransport.FlowGraphResponse, error) {
	graph, err := h.Flows.GetFlows(ctx, electionID)
	if err != nil {
		return httptransport.FlowGraphResponse{}, err
	}
	flows := make([]httptransport.FlowItem, 0, len(graph.Flows))
	for _, flow := range graph.Flows {
		flows = append(flows, httptransport.FlowItem{From: flow.From, To: flow.To, Value: flow.Value})
	}
	return httptransport.FlowGraphResponse{
		Flows:      flows,
		Elected:    graph.Elected,
		Eliminated: graph.Eliminated,
		Labels:     graph.Labels,
	}, nil
}

func (h Handler) QuorumHandler(ctx context.Context, electionID string) (httptransport.QuorumStatusResponse, error) {
	status, err := h.Quorum.Status(ctx, electionID)
	if err != nil {
		return httptransport.QuorumStatusResponse{}, err
	}
	return httptransport.QuorumStatusResponse{
		QuorumPercent:                   status.QuorumPercent,
		QuorumRequired:                  status.QuorumRequired,
		QuorumMet:                       status.QuorumMet,
		RequiredParticipatingVoterCount: status.RequiredParticipatingVoterCount,
		RequiredParticipatingVoteWeight: status.RequiredParticipatingVoteWeight,
		EligibleVoterCount:              status.EligibleVoterCount,
		EligibleVoteWeightTotal:         status.EligibleVoteWeightTotal,
		ParticipatingVoterCount:         status.ParticipatingVoterCount,
		ParticipatingVoteWeightTotal:    status.ParticipatingVoteWeightTotal,
	}, nil
}

func tallyResultResponse(record entities.TallyRecord) httptransport.TallyResultResponse {
	elected := make([]httptransport.SeatResultItem, 0, len(record.Result.Elected))
	for _, seat := range record.Result.Elected {
		elected = append(elected, httptransport.SeatResultItem{CandidateID: seat.CandidateID, Round: seat.Round})
	}
	eliminated := make([]httptransport.SeatResultItem, 0, len(record.Result.Eliminated))
	for _, seat := range record.Result.Eliminated {
		eliminated = append(eliminated, httptransport.SeatResultItem{CandidateID: seat.CandidateID, Round: seat.Round})
	}
	rounds := make([]httptransport.RoundItem, 0, len(record.Rounds))
	for _, round := range record.Rounds {
		rounds = append(rounds, httptransport.RoundItem{
			Number:     round.Number,
			Totals:     round.Totals,
			Action:     string(round.Action),
			Elected:    round.Elected,
			Eliminated: round.Eliminated,
		})
	}
	return httptransport.TallyResultResponse{
		ElectionID:       record.ElectionID,
		TallyID:          record.TallyID,
		Quota:            record.Result.Quota,
		Elected:          elected,
		Eliminated:       eliminated,
		Rounds:           rounds,
		BallotsCast:      record.BallotsCast,
		ValidVotes:       record.ValidVotes,
		ExhaustedOnEntry: record.ExhaustedOnEntry,
		ExhaustedWeight:  record.ExhaustedWeight,
		CompletedAt:      record.CompletedAt,
	}
}
