package tally

import (
	"fmt"
	"sort"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
)

// FlowSourceNode is the synthetic origin node feeding first preferences into
// round 1.
const FlowSourceNode = "Voters"

// FlowExhaustedNode is the terminal sink for weight that left circulation.
const FlowExhaustedNode = entities.TransferExhausted

// NodeID renders the graph node for a candidate at a given round.
func NodeID(round int, label string) string {
	return fmt.Sprintf("Round %d · %s", round, label)
}

// BuildFlowGraph projects a committed tally's transfer set into a
// renderable vote-flow graph. names maps candidate identifiers to display
// labels; candidates missing from it keep their identifier. The function is
// pure: the same record always produces the same graph.
func BuildFlowGraph(record *entities.TallyRecord, names map[string]string) *entities.FlowGraph {
	graph := &entities.FlowGraph{Labels: make(map[string]string)}
	if record == nil || len(record.Rounds) == 0 {
		return graph
	}
	lastRound := record.Rounds[len(record.Rounds)-1].Number

	label := func(candidateID string) string {
		if name, ok := names[candidateID]; ok && name != "" {
			return name
		}
		return candidateID
	}
	node := func(round int, candidateID string) string {
		return NodeID(round, label(candidateID))
	}

	type edgeKey struct{ from, to string }
	sums := make(map[edgeKey]float64)
	var order []edgeKey
	for _, transfer := range record.Transfers {
		from := FlowSourceNode
		if transfer.From != "" {
			from = node(transfer.FromRound, transfer.From)
		}
		to := FlowExhaustedNode
		if transfer.To != entities.TransferExhausted {
			to = node(transfer.ToRound, transfer.To)
		}
		key := edgeKey{from: from, to: to}
		if _, seen := sums[key]; !seen {
			order = append(order, key)
		}
		sums[key] += transfer.Weight
	}
	for _, key := range order {
		value := round4(sums[key])
		if value <= 0 {
			continue
		}
		graph.Flows = append(graph.Flows, entities.Flow{From: key.from, To: key.to, Value: value})
	}

	// Elected candidates stay visible from their winning round through the
	// final round; eliminated candidates appear once, at the round that
	// dropped them.
	electedRound := make(map[string]int, len(record.Result.Elected))
	for _, seat := range record.Result.Elected {
		electedRound[seat.CandidateID] = seat.Round
	}
	for round := 1; round <= lastRound; round++ {
		var ids []string
		for id, won := range electedRound {
			if won <= round {
				ids = append(ids, id)
			}
		}
		sort.Strings(ids)
		for _, id := range ids {
			graph.Elected = append(graph.Elected, node(round, id))
		}
	}
	for _, seat := range record.Result.Eliminated {
		graph.Eliminated = append(graph.Eliminated, node(seat.Round, seat.CandidateID))
	}

	graph.Labels[FlowSourceNode] = FlowSourceNode
	graph.Labels[FlowExhaustedNode] = FlowExhaustedNode
	labelRounds := labeledRounds(record, lastRound)
	for candidateID, rounds := range labelRounds {
		for round := range rounds {
			graph.Labels[node(round, candidateID)] = label(candidateID)
		}
	}
	for _, flow := range graph.Flows {
		if _, ok := graph.Labels[flow.From]; !ok {
			graph.Labels[flow.From] = ""
		}
		if _, ok := graph.Labels[flow.To]; !ok {
			graph.Labels[flow.To] = ""
		}
	}
	return graph
}

// labeledRounds picks, per candidate, the rounds whose node carries a
// visible label: first and last appearance, rounds where weight actually
// moved in or out, and the round that elected or eliminated the candidate.
// Unchanged carry-over nodes in between stay unlabeled so long runs do not
// clutter the rendering.
func labeledRounds(record *entities.TallyRecord, lastRound int) map[string]map[int]bool {
	rounds := make(map[string]map[int]bool)
	mark := func(candidateID string, round int) {
		if candidateID == "" || candidateID == entities.TransferExhausted {
			return
		}
		if rounds[candidateID] == nil {
			rounds[candidateID] = make(map[int]bool)
		}
		rounds[candidateID][round] = true
	}

	first := make(map[string]int)
	last := make(map[string]int)
	seen := func(candidateID string, round int) {
		if candidateID == "" || candidateID == entities.TransferExhausted {
			return
		}
		if _, ok := first[candidateID]; !ok || round < first[candidateID] {
			first[candidateID] = round
		}
		if round > last[candidateID] {
			last[candidateID] = round
		}
	}
	for _, transfer := range record.Transfers {
		seen(transfer.From, transfer.FromRound)
		seen(transfer.To, transfer.ToRound)
		if transfer.From != transfer.To {
			mark(transfer.From, transfer.FromRound)
			mark(transfer.To, transfer.ToRound)
		}
	}
	for id := range first {
		mark(id, first[id])
		mark(id, last[id])
	}
	for _, seat := range record.Result.Elected {
		mark(seat.CandidateID, seat.Round)
		mark(seat.CandidateID, lastRound)
	}
	for _, seat := range record.Result.Eliminated {
		mark(seat.CandidateID, seat.Round)
	}
	return rounds
}
