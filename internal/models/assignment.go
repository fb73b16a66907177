// internal/models/assignment.go
package models

import "sort"

// AssignmentState distinguishes "not decided" from "let the client choose".
type AssignmentState int

const (
	Unassigned AssignmentState = iota
	Assigned
	ClientChooses
)

func (s AssignmentState) String() string {
	switch s {
	case Assigned:
		return "assigned"
	case ClientChooses:
		return "client_chooses"
	default:
		return "unassigned"
	}
}

// Assignment is the expert decision for one product.
type Assignment struct {
	State    AssignmentState `json:"state"`
	ExpertID string          `json:"expertId,omitempty"`
}

// AssignTo returns an assignment to the given expert. An empty id means unassigned.
func AssignTo(expertID string) Assignment {
	if expertID == "" {
		return Assignment{State: Unassigned}
	}
	return Assignment{State: Assigned, ExpertID: expertID}
}

// LetClientChoose returns the explicit client-chooses assignment.
func LetClientChoose() Assignment {
	return Assignment{State: ClientChooses}
}

// AssignmentMap maps product identifiers to their expert decision.
type AssignmentMap map[string]Assignment

// ExpertAssignmentEntry is one line of the batch sent to persistence.
// ExpertID is empty when the client chooses.
type ExpertAssignmentEntry struct {
	ProductID string `json:"product_id"`
	ExpertID  string `json:"expert_id,omitempty"`
}

// Entries returns the decided assignments, sorted by product id.
// Unassigned products are omitted.
func (m AssignmentMap) Entries() []ExpertAssignmentEntry {
	out := make([]ExpertAssignmentEntry, 0, len(m))
	for productID, a := range m {
		switch a.State {
		case Assigned:
			out = append(out, ExpertAssignmentEntry{ProductID: productID, ExpertID: a.ExpertID})
		case ClientChooses:
			out = append(out, ExpertAssignmentEntry{ProductID: productID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// ProductsByExpert groups product ids by assigned expert. Product lists are sorted.
func (m AssignmentMap) ProductsByExpert() map[string][]string {
	out := make(map[string][]string)
	for productID, a := range m {
		if a.State != Assigned {
			continue
		}
		out[a.ExpertID] = append(out[a.ExpertID], productID)
	}
	for _, ids := range out {
		sort.Strings(ids)
	}
	return out
}

// Retain drops the products not listed in productIDs.
func (m AssignmentMap) Retain(productIDs []string) {
	keep := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		keep[id] = true
	}
	for productID := range m {
		if !keep[productID] {
			delete(m, productID)
		}
	}
}

// Clone returns a copy that can be mutated independently.
func (m AssignmentMap) Clone() AssignmentMap {
	out := make(AssignmentMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
