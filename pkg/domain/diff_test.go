package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func tab(id, url string) TabSessionState {
	return TabSessionState{ID: id, Content: ContentState{URL: url}}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		old      *BrowserState
		new      BrowserState
		wantDiff *StateDiff // nil means no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: BrowserState{
				Tabs:          []TabSessionState{tab("a", "https://a.test")},
				SelectedTabID: "a",
			},
			wantDiff: &StateDiff{
				SelectedTabID: &[]string{"a"}[0],
				Added:         []TabSessionState{tab("a", "https://a.test")},
				Order:         []string{"a"},
			},
		},
		{
			name:     "Initial Load of Empty State",
			old:      nil,
			new:      BrowserState{},
			wantDiff: nil,
		},
		{
			name: "No Changes",
			old: &BrowserState{
				Tabs:          []TabSessionState{tab("a", "https://a.test")},
				SelectedTabID: "a",
			},
			new: BrowserState{
				Tabs:          []TabSessionState{tab("a", "https://a.test")},
				SelectedTabID: "a",
			},
			wantDiff: nil,
		},
		{
			name: "Tab Added and Selected",
			old: &BrowserState{
				Tabs: []TabSessionState{tab("a", "https://a.test")},
			},
			new: BrowserState{
				Tabs:          []TabSessionState{tab("a", "https://a.test"), tab("b", "https://b.test")},
				SelectedTabID: "b",
			},
			wantDiff: &StateDiff{
				SelectedTabID: &[]string{"b"}[0],
				Added:         []TabSessionState{tab("b", "https://b.test")},
				Order:         []string{"a", "b"},
			},
		},
		{
			name: "Content Updated",
			old: &BrowserState{
				Tabs: []TabSessionState{tab("a", "https://a.test"), tab("b", "https://b.test")},
			},
			new: BrowserState{
				Tabs: []TabSessionState{tab("a", "https://a.test/next"), tab("b", "https://b.test")},
			},
			wantDiff: &StateDiff{
				Updated: []TabSessionState{tab("a", "https://a.test/next")},
			},
		},
		{
			name: "Selected Tab Removed",
			old: &BrowserState{
				Tabs:          []TabSessionState{tab("a", "https://a.test"), tab("b", "https://b.test")},
				SelectedTabID: "b",
			},
			new: BrowserState{
				Tabs: []TabSessionState{tab("a", "https://a.test")},
			},
			wantDiff: &StateDiff{
				SelectedTabID: &[]string{""}[0],
				Removed:       []string{"b"},
				Order:         []string{"a"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %+v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %+v", tt.wantDiff)
			}

			if !equalPtr(got.SelectedTabID, tt.wantDiff.SelectedTabID) {
				t.Errorf("Diff().SelectedTabID = %v, want %v", got.SelectedTabID, tt.wantDiff.SelectedTabID)
			}
			if !reflect.DeepEqual(got.Added, tt.wantDiff.Added) {
				t.Errorf("Diff().Added = %v, want %v", got.Added, tt.wantDiff.Added)
			}
			if !reflect.DeepEqual(got.Updated, tt.wantDiff.Updated) {
				t.Errorf("Diff().Updated = %v, want %v", got.Updated, tt.wantDiff.Updated)
			}
			if !reflect.DeepEqual(got.Removed, tt.wantDiff.Removed) {
				t.Errorf("Diff().Removed = %v, want %v", got.Removed, tt.wantDiff.Removed)
			}
			if !reflect.DeepEqual(got.Order, tt.wantDiff.Order) {
				t.Errorf("Diff().Order = %v, want %v", got.Order, tt.wantDiff.Order)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Unchanged Sections Omitted", func(t *testing.T) {
		s1 := &BrowserState{Tabs: []TabSessionState{tab("a", "https://a.test")}}
		s2 := BrowserState{Tabs: []TabSessionState{tab("a", "https://a.test/2")}}
		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		for _, key := range []string{`"added"`, `"removed"`, `"order"`, `"selected_tab_id"`} {
			if strings.Contains(string(bytes), key) {
				t.Errorf("JSON should not contain %s, got: %s", key, string(bytes))
			}
		}
	})

	t.Run("Cleared Selection as Empty String", func(t *testing.T) {
		s1 := &BrowserState{Tabs: []TabSessionState{tab("a", "https://a.test")}, SelectedTabID: "a"}
		s2 := BrowserState{}
		diff := Diff(s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"selected_tab_id":""`) {
			t.Errorf("JSON should contain an empty selected_tab_id, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
