package browser

import (
	"slices"

	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/store"
)

// Reducer is a reducer over browser state and actions.
type Reducer = store.Reducer[domain.BrowserState, domain.Action]

// Reducers returns the browser reducers in application order: tab list, content,
// engine.
func Reducers() []Reducer {
	return []Reducer{ReduceTabList, ReduceContent, ReduceEngine}
}

// ReduceTabList handles adding, selecting and removing tabs.
func ReduceTabList(state domain.BrowserState, action domain.Action) domain.BrowserState {
	switch a := action.(type) {
	case domain.AddTab:
		if a.Tab.ID == "" || state.IndexOf(a.Tab.ID) >= 0 {
			return state
		}
		state.Tabs = append(slices.Clone(state.Tabs), a.Tab)
		if a.Select || state.SelectedTabID == "" {
			state.SelectedTabID = a.Tab.ID
		}
		return state

	case domain.SelectTab:
		if state.IndexOf(a.TabID) < 0 {
			return state
		}
		state.SelectedTabID = a.TabID
		return state

	case domain.RemoveTab:
		i := state.IndexOf(a.TabID)
		if i < 0 {
			return state
		}
		state.Tabs = slices.Delete(slices.Clone(state.Tabs), i, i+1)
		if state.SelectedTabID == a.TabID {
			state.SelectedTabID = neighbour(state.Tabs, i)
		}
		return state

	case domain.RemoveAllTabs:
		if len(state.Tabs) == 0 && state.SelectedTabID == "" {
			return state
		}
		return domain.BrowserState{}
	}
	return state
}

// neighbour picks the tab now at index, else the one before it.
func neighbour(tabs []domain.TabSessionState, index int) string {
	switch {
	case index < len(tabs):
		return tabs[index].ID
	case len(tabs) > 0:
		return tabs[len(tabs)-1].ID
	default:
		return ""
	}
}

// ReduceContent handles updates reported while a page loads and is used.
func ReduceContent(state domain.BrowserState, action domain.Action) domain.BrowserState {
	switch a := action.(type) {
	case domain.UpdateURL:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.URL = a.URL })
	case domain.UpdateProgress:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.Progress = min(max(a.Progress, 0), 100) })
	case domain.UpdateTitle:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.Title = a.Title })
	case domain.UpdateLoading:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.Loading = a.Loading })
	case domain.UpdateSearchTerms:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.SearchTerms = a.SearchTerms })
	case domain.UpdateSecurityInfo:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.SecurityInfo = a.SecurityInfo })
	case domain.UpdateBackNavigation:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.CanGoBack = a.CanGoBack })
	case domain.UpdateForwardNavigation:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.CanGoForward = a.CanGoForward })
	case domain.AddHitResult:
		hit := a.HitResult
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.HitResult = &hit })
	case domain.ConsumeHitResult:
		return updateContent(state, a.TabID, func(c *domain.ContentState) { c.HitResult = nil })
	}
	return state
}

// ReduceEngine tracks the engine session linked to each tab. Engine commands such
// as LoadURL are side effects and leave the state alone.
func ReduceEngine(state domain.BrowserState, action domain.Action) domain.BrowserState {
	switch a := action.(type) {
	case domain.LinkEngineSession:
		return updateEngine(state, a.TabID, func(e *domain.EngineState) {
			e.SessionID = a.SessionID
			e.SkipLoading = a.SkipLoading
			e.LastError = ""
		})
	case domain.UnlinkEngineSession:
		return updateEngine(state, a.TabID, func(e *domain.EngineState) { e.SessionID = "" })
	case domain.EngineError:
		return updateEngine(state, a.TabID, func(e *domain.EngineState) { e.LastError = a.Message })
	case domain.Crash:
		return updateEngine(state, a.TabID, func(e *domain.EngineState) {
			e.Crashed = true
			e.SessionID = ""
		})
	case domain.RestoreCrashed:
		return updateEngine(state, a.TabID, func(e *domain.EngineState) { e.Crashed = false })
	}
	return state
}

func updateContent(state domain.BrowserState, tabID string, update func(*domain.ContentState)) domain.BrowserState {
	return updateTab(state, tabID, func(t *domain.TabSessionState) { update(&t.Content) })
}

func updateEngine(state domain.BrowserState, tabID string, update func(*domain.EngineState)) domain.BrowserState {
	return updateTab(state, tabID, func(t *domain.TabSessionState) { update(&t.Engine) })
}

// updateTab applies update to a copy of the tab with tabID. The tab slice is
// copied so earlier snapshots keep their values.
func updateTab(state domain.BrowserState, tabID string, update func(*domain.TabSessionState)) domain.BrowserState {
	i := state.IndexOf(tabID)
	if i < 0 {
		return state
	}
	state.Tabs = slices.Clone(state.Tabs)
	update(&state.Tabs[i])
	return state
}
