package tally

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
)

func recordFromOutcome(t *testing.T, outcome *Outcome) *entities.TallyRecord {
	t.Helper()
	return &entities.TallyRecord{
		TallyID:     "tally-1",
		ElectionID:  "election-1",
		Result:      outcome.Result,
		Rounds:      outcome.Rounds,
		Transfers:   outcome.Transfers,
		Audit:       outcome.Events,
		CompletedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFlowGraphSourcesAndSinks(t *testing.T) {
	cfg := Config{Seats: 1, Candidates: candidates("A", "B", "C")}
	outcome := runEngine(t, cfg, []RawBallot{
		bullet("A"), bullet("A"), bullet("B"), bullet("C"),
	})
	graph := BuildFlowGraph(recordFromOutcome(t, outcome), nil)

	var fromVoters, toExhausted float64
	for _, flow := range graph.Flows {
		if flow.From == FlowSourceNode {
			fromVoters += flow.Value
		}
		if flow.To == FlowExhaustedNode {
			toExhausted += flow.Value
		}
	}
	if math.Abs(fromVoters-4) > 1e-9 {
		t.Fatalf("expected 4 votes out of Voters, got %v", fromVoters)
	}
	// Bullet ballots for B and C exhaust when their candidates drop.
	if math.Abs(toExhausted-2) > 1e-9 {
		t.Fatalf("expected 2 votes into Exhausted, got %v", toExhausted)
	}
}

func TestFlowGraphNamesNodesByRoundAndLabel(t *testing.T) {
	cfg := Config{Seats: 2, Candidates: candidates("alice", "bob", "carol")}
	outcome := runEngine(t, cfg, []RawBallot{
		bullet("alice", "bob"), bullet("alice", "bob"), bullet("alice", "bob"),
		bullet("alice", "bob"), bullet("alice", "bob"),
		bullet("bob"), bullet("carol"),
	})
	graph := BuildFlowGraph(recordFromOutcome(t, outcome), map[string]string{
		"alice": "Alice",
		"bob":   "Bob",
	})

	found := false
	for _, flow := range graph.Flows {
		if flow.From == "Round 1 · Alice" && flow.To == "Round 2 · Bob" {
			found = true
			if math.Abs(flow.Value-2) > 1e-9 {
				t.Fatalf("expected surplus flow 2, got %v", flow.Value)
			}
		}
		if flow.From == FlowSourceNode && flow.To == "Round 1 · carol" {
			// carol has no display name and keeps her identifier
			continue
		}
	}
	if !found {
		t.Fatalf("missing surplus edge from Alice to Bob: %+v", graph.Flows)
	}
}

func TestFlowGraphElectedNodesPersistThroughFinalRound(t *testing.T) {
	cfg := Config{Seats: 2, Candidates: candidates("A", "B", "C")}
	outcome := runEngine(t, cfg, []RawBallot{
		bullet("A", "B"), bullet("A", "B"), bullet("A", "B"), bullet("A", "B"), bullet("A", "B"),
		bullet("B"), bullet("C"),
	})
	graph := BuildFlowGraph(recordFromOutcome(t, outcome), nil)

	// A wins in round 1 and must stay marked elected in round 2 as well.
	wantNodes := map[string]bool{"Round 1 · A": true, "Round 2 · A": true, "Round 2 · B": true}
	got := map[string]bool{}
	for _, node := range graph.Elected {
		got[node] = true
	}
	for node := range wantNodes {
		if !got[node] {
			t.Fatalf("missing elected node %q in %v", node, graph.Elected)
		}
	}
}

func TestFlowGraphEliminatedNodeAtDropRound(t *testing.T) {
	cfg := Config{Seats: 1, Candidates: candidates("A", "B", "C")}
	outcome := runEngine(t, cfg, []RawBallot{
		bullet("A"), bullet("A"), bullet("B"), bullet("C"),
	})
	graph := BuildFlowGraph(recordFromOutcome(t, outcome), nil)

	want := []string{"Round 1 · C", "Round 2 · B"}
	if !reflect.DeepEqual(graph.Eliminated, want) {
		t.Fatalf("expected eliminated nodes %v, got %v", want, graph.Eliminated)
	}
}

func TestFlowGraphIsIdempotent(t *testing.T) {
	cfg := Config{Seats: 2, Candidates: candidates("A", "B", "C", "D")}
	outcome := runEngine(t, cfg, []RawBallot{
		bullet("A", "B", "C"), bullet("B", "A"), bullet("C", "D"), bullet("D", "C"),
		bullet("A", "D"), bullet("B", "C"),
	})
	record := recordFromOutcome(t, outcome)

	first := BuildFlowGraph(record, nil)
	second := BuildFlowGraph(record, nil)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("flow graph differs between identical builds")
	}
}

func TestFlowGraphHandlesEmptyRecord(t *testing.T) {
	graph := BuildFlowGraph(nil, nil)
	if len(graph.Flows) != 0 || len(graph.Elected) != 0 || len(graph.Eliminated) != 0 {
		t.Fatalf("expected empty graph, got %+v", graph)
	}
}
