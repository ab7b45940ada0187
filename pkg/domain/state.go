package domain

import (
	"slices"

	"github.com/google/uuid"
)

// BrowserState is the complete state of one browser window.
type BrowserState struct {
	Tabs []TabSessionState `json:"tabs"`
	// SelectedTabID is empty when no tab is selected.
	SelectedTabID string `json:"selected_tab_id,omitempty"`
}

// TabSessionState is a single tab.
type TabSessionState struct {
	ID      string       `json:"id"`
	Content ContentState `json:"content"`
	Engine  EngineState  `json:"engine"`
}

// ContentState is what the tab displays.
type ContentState struct {
	URL          string       `json:"url"`
	Private      bool         `json:"private,omitempty"`
	Title        string       `json:"title,omitempty"`
	Progress     int          `json:"progress"`
	Loading      bool         `json:"loading,omitempty"`
	SearchTerms  string       `json:"search_terms,omitempty"`
	SecurityInfo SecurityInfo `json:"security_info"`
	CanGoBack    bool         `json:"can_go_back,omitempty"`
	CanGoForward bool         `json:"can_go_forward,omitempty"`
	// HitResult is set after a long press until a consumer handles it.
	HitResult *HitResult `json:"hit_result,omitempty"`
}

// EngineState links a tab to its engine session.
type EngineState struct {
	SessionID   string `json:"session_id,omitempty"`
	SkipLoading bool   `json:"skip_loading,omitempty"`
	Crashed     bool   `json:"crashed,omitempty"`
	LastError   string `json:"last_error,omitempty"`
}

type SecurityInfo struct {
	Secure bool   `json:"secure"`
	Host   string `json:"host,omitempty"`
	Issuer string `json:"issuer,omitempty"`
}

// HitResultType names what a long press landed on.
type HitResultType string

const (
	HitUnknown HitResultType = "unknown"
	HitImage   HitResultType = "image"
	HitVideo   HitResultType = "video"
	HitAudio   HitResultType = "audio"
	HitPhone   HitResultType = "phone"
	HitEmail   HitResultType = "email"
	HitGeo     HitResultType = "geo"
)

type HitResult struct {
	Type HitResultType `json:"type"`
	Src  string        `json:"src"`
	URI  string        `json:"uri,omitempty"`
}

// TabOption customises NewTab.
type TabOption func(*TabSessionState)

// WithTabID replaces the generated id.
func WithTabID(id string) TabOption {
	return func(t *TabSessionState) { t.ID = id }
}

// WithPrivate marks the tab as private.
func WithPrivate() TabOption {
	return func(t *TabSessionState) { t.Content.Private = true }
}

func WithTitle(title string) TabOption {
	return func(t *TabSessionState) { t.Content.Title = title }
}

// WithSkipLoading creates a tab whose URL is not loaded when its engine session
// is linked.
func WithSkipLoading() TabOption {
	return func(t *TabSessionState) { t.Engine.SkipLoading = true }
}

// NewTab returns a tab for url with a random id.
func NewTab(url string, opts ...TabOption) TabSessionState {
	tab := TabSessionState{
		ID:      uuid.NewString(),
		Content: ContentState{URL: url},
	}
	for _, opt := range opts {
		opt(&tab)
	}
	return tab
}

// NewAddTab builds an AddTab action for a new tab on url.
func NewAddTab(url string, selectTab bool, opts ...TabOption) AddTab {
	return AddTab{Tab: NewTab(url, opts...), Select: selectTab}
}

// IndexOf returns the position of the tab with id, or -1.
func (s BrowserState) IndexOf(id string) int {
	return slices.IndexFunc(s.Tabs, func(t TabSessionState) bool { return t.ID == id })
}

// FindTab returns the tab with id.
func (s BrowserState) FindTab(id string) (TabSessionState, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.Tabs[i], true
	}
	return TabSessionState{}, false
}

// SelectedTab returns the selected tab, if any.
func (s BrowserState) SelectedTab() (TabSessionState, bool) {
	if s.SelectedTabID == "" {
		return TabSessionState{}, false
	}
	return s.FindTab(s.SelectedTabID)
}

// TabIDs returns the ids of all tabs in order.
func (s BrowserState) TabIDs() []string {
	ids := make([]string, len(s.Tabs))
	for i, t := range s.Tabs {
		ids[i] = t.ID
	}
	return ids
}

func (s BrowserState) PrivateTabs() []TabSessionState {
	return s.filter(true)
}

func (s BrowserState) NormalTabs() []TabSessionState {
	return s.filter(false)
}

func (s BrowserState) filter(private bool) []TabSessionState {
	var out []TabSessionState
	for _, t := range s.Tabs {
		if t.Content.Private == private {
			out = append(out, t)
		}
	}
	return out
}
