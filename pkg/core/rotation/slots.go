package rotation

import (
	"sort"

	"github.com/jakechorley/mass-rota/pkg/core/model"
)

// SlotInput contains the data needed to fill the remaining slots of one role
type SlotInput struct {
	// Candidates in fairness order (see BuildCandidatePool)
	Candidates []model.ScoredCandidate

	// Required is the number of slots the role needs on this mass
	Required int

	// Existing are the assignments already held for this role on this mass
	Existing []model.Assignment

	// PairBySex applies the same-sex pairing rule to the role
	PairBySex bool

	// Members is used to look up the sex of already assigned members
	Members map[string]model.Member
}

// SlotSelection is the result of filling a role's remaining slots
type SlotSelection struct {
	// Needed is the number of slots that were vacant before selection
	Needed int

	// Selected are the chosen candidates, in the order of the vacant slots they fill
	Selected []model.ScoredCandidate

	// Slots are the vacant slot numbers filled by Selected, pairwise
	Slots []int

	// Shortfall is the number of slots that remain vacant after selection
	Shortfall int

	// PairedSex is the sex candidates were restricted to (empty if unrestricted)
	PairedSex model.Sex

	// MemberIDs is the complete role set in slot order, existing and selected
	// members interleaved by slot number, ready for a replace write
	MemberIDs []string
}

// SelectForSlots greedily takes the best ranked candidates for the vacant slots,
// lowest slot first. Existing members keep their slots, including slots beyond
// Required. The selection does not backtrack and does not consider other roles.
func SelectForSlots(in SlotInput) SlotSelection {
	existing := SortBySlot(in.Existing)
	slots := make(model.RoleSlots, len(existing))
	held := make(MemberSet)
	for _, a := range existing {
		slots[a.Slot] = a.MemberID
		held.Add(a.MemberID)
	}

	vacant := slots.Vacant(in.Required)
	selection := SlotSelection{Needed: len(vacant)}

	if selection.Needed > 0 {
		if in.PairBySex && len(existing) > 0 {
			if first, ok := in.Members[existing[0].MemberID]; ok && first.Sex.Known() {
				selection.PairedSex = first.Sex
			}
		}

		for _, candidate := range in.Candidates {
			if len(selection.Selected) == selection.Needed {
				break
			}
			if held.Has(candidate.ID) {
				continue
			}
			if selection.PairedSex != "" && candidate.Sex != selection.PairedSex {
				continue
			}
			slot := vacant[len(selection.Selected)]
			slots[slot] = candidate.ID
			selection.Selected = append(selection.Selected, candidate)
			selection.Slots = append(selection.Slots, slot)
			held.Add(candidate.ID)
		}
	}

	selection.Shortfall = selection.Needed - len(selection.Selected)
	selection.MemberIDs = slots.Ordered()

	return selection
}

// SortBySlot returns a copy of the assignments ordered by slot number
func SortBySlot(assignments []model.Assignment) []model.Assignment {
	sorted := make([]model.Assignment, len(assignments))
	copy(sorted, assignments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Slot < sorted[j].Slot
	})
	return sorted
}

// RoleAssignments filters assignments to one role on one mass, ordered by slot
func RoleAssignments(assignments []model.Assignment, massLabel string, role model.RoleKey) []model.Assignment {
	var filtered []model.Assignment
	for _, a := range assignments {
		if a.MassLabel == massLabel && a.Role == role {
			filtered = append(filtered, a)
		}
	}
	return SortBySlot(filtered)
}

// MembersByID indexes members by ID
func MembersByID(members []model.Member) map[string]model.Member {
	byID := make(map[string]model.Member, len(members))
	for _, m := range members {
		byID[m.ID] = m
	}
	return byID
}
