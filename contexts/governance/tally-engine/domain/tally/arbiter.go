package tally

import (
	"sort"

	"github.com/AlmaLinux/astra/contexts/governance/tally-engine/domain/entities"
)

// arbiter enforces per-group caps on simultaneously elected candidates. It is
// consulted before every election decision; it never blocks vote transfers,
// so capped candidates keep receiving and holding votes until eliminated
// normally.
type arbiter struct {
	groupOf    map[string]string
	maxElected map[string]int
	members    map[string][]string
	elected    map[string]int
	capped     map[string]bool
}

func newArbiter(groups []entities.ExclusionGroup) *arbiter {
	a := &arbiter{
		groupOf:    make(map[string]string),
		maxElected: make(map[string]int),
		members:    make(map[string][]string),
		elected:    make(map[string]int),
		capped:     make(map[string]bool),
	}
	for _, group := range groups {
		a.maxElected[group.Name] = group.MaxElected
		members := append([]string(nil), group.CandidateIDs...)
		sort.Strings(members)
		a.members[group.Name] = members
		for _, id := range group.CandidateIDs {
			a.groupOf[id] = group.Name
		}
	}
	return a
}

// blocked reports whether electing the candidate would exceed its group cap.
func (a *arbiter) blocked(candidateID string) bool {
	group, ok := a.groupOf[candidateID]
	if !ok {
		return false
	}
	return a.elected[group] >= a.maxElected[group]
}

// inCappedGroup reports whether the candidate belongs to a group that has
// already reached its cap.
func (a *arbiter) inCappedGroup(candidateID string) bool {
	group, ok := a.groupOf[candidateID]
	if !ok {
		return false
	}
	return a.capped[group]
}

// onElected records a seat for the candidate's group. It returns the group
// name and its remaining members the first time the group reaches its cap,
// so the engine can emit GROUP_CAP_REACHED exactly once.
func (a *arbiter) onElected(candidateID string) (group string, cappedMembers []string, reachedCap bool) {
	name, ok := a.groupOf[candidateID]
	if !ok {
		return "", nil, false
	}
	a.elected[name]++
	if a.elected[name] < a.maxElected[name] || a.capped[name] {
		return "", nil, false
	}
	a.capped[name] = true
	return name, a.members[name], true
}
