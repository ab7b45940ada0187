package domain

import (
	"reflect"
)

// StateDiff represents the tab-level changes between two states.
// It is designed to be serialized to JSON for partial updates on a client.
type StateDiff struct {
	// SelectedTabID is set when the selection changed. An empty string means the
	// selection was cleared.
	SelectedTabID *string `json:"selected_tab_id,omitempty"`

	// Added holds tabs that were not present before, in their new order.
	Added []TabSessionState `json:"added,omitempty"`

	// Updated holds tabs present in both states whose value changed.
	Updated []TabSessionState `json:"updated,omitempty"`

	// Removed holds the ids of tabs that are gone.
	Removed []string `json:"removed,omitempty"`

	// Order is the full list of tab ids when tabs were added, removed or moved.
	Order []string `json:"order,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// It returns nil when nothing changed.
func Diff(oldState *BrowserState, newState BrowserState) *StateDiff {
	diff := &StateDiff{}

	if oldState == nil {
		diff.Added = newState.Tabs
		if newState.SelectedTabID != "" {
			diff.SelectedTabID = &newState.SelectedTabID
		}
		diff.Order = newState.TabIDs()
		if diff.IsEmpty() {
			return nil
		}
		return diff
	}

	if oldState.SelectedTabID != newState.SelectedTabID {
		diff.SelectedTabID = &newState.SelectedTabID
	}

	previous := make(map[string]TabSessionState, len(oldState.Tabs))
	for _, t := range oldState.Tabs {
		previous[t.ID] = t
	}
	current := make(map[string]struct{}, len(newState.Tabs))
	for _, t := range newState.Tabs {
		current[t.ID] = struct{}{}
		old, exists := previous[t.ID]
		if !exists {
			diff.Added = append(diff.Added, t)
			continue
		}
		if !reflect.DeepEqual(old, t) {
			diff.Updated = append(diff.Updated, t)
		}
	}
	for _, t := range oldState.Tabs {
		if _, exists := current[t.ID]; !exists {
			diff.Removed = append(diff.Removed, t.ID)
		}
	}

	if !reflect.DeepEqual(oldState.TabIDs(), newState.TabIDs()) {
		diff.Order = newState.TabIDs()
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.SelectedTabID == nil &&
		len(d.Added) == 0 &&
		len(d.Updated) == 0 &&
		len(d.Removed) == 0 &&
		len(d.Order) == 0
}
