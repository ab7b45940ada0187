package domain

// Action is a request to change BrowserState. The set of actions is closed: only
// types in this package implement it.
type Action interface {
	// Kind returns the stable snake_case name of the action, used by logs,
	// metrics, the debug protocol and the codec.
	Kind() string
	isAction()
}

// TabAction is an action that targets a single tab.
type TabAction interface {
	Action
	Target() string
}

// Action kinds.
const (
	KindAddTab        = "add_tab"
	KindSelectTab     = "select_tab"
	KindRemoveTab     = "remove_tab"
	KindRemoveAllTabs = "remove_all_tabs"

	KindUpdateURL               = "update_url"
	KindUpdateProgress          = "update_progress"
	KindUpdateTitle             = "update_title"
	KindUpdateLoading           = "update_loading"
	KindUpdateSearchTerms       = "update_search_terms"
	KindUpdateSecurityInfo      = "update_security_info"
	KindUpdateBackNavigation    = "update_back_navigation"
	KindUpdateForwardNavigation = "update_forward_navigation"
	KindAddHitResult            = "add_hit_result"
	KindConsumeHitResult        = "consume_hit_result"

	KindLinkEngineSession   = "link_engine_session"
	KindUnlinkEngineSession = "unlink_engine_session"
	KindEngineError         = "engine_error"
	KindCrash               = "crash"
	KindRestoreCrashed      = "restore_crashed"
	KindLoadURL             = "load_url"
	KindGoBack              = "go_back"
	KindGoForward           = "go_forward"
	KindReload              = "reload"
)

// Tab list actions.

// AddTab appends Tab. It is ignored when Tab.ID is empty or already present.
type AddTab struct {
	Tab    TabSessionState `json:"tab"`
	Select bool            `json:"select,omitempty"`
}

// SelectTab selects an open tab. Unknown ids are ignored.
type SelectTab struct {
	TabID string `json:"tab_id"`
}

// RemoveTab closes a tab. When it was selected, the tab that takes its position is
// selected, else the one before it.
type RemoveTab struct {
	TabID string `json:"tab_id"`
}

type RemoveAllTabs struct{}

// Content actions.

type UpdateURL struct {
	TabID string `json:"tab_id"`
	URL   string `json:"url"`
}

type UpdateProgress struct {
	TabID    string `json:"tab_id"`
	Progress int    `json:"progress"`
}

type UpdateTitle struct {
	TabID string `json:"tab_id"`
	Title string `json:"title"`
}

type UpdateLoading struct {
	TabID   string `json:"tab_id"`
	Loading bool   `json:"loading"`
}

type UpdateSearchTerms struct {
	TabID       string `json:"tab_id"`
	SearchTerms string `json:"search_terms"`
}

type UpdateSecurityInfo struct {
	TabID        string       `json:"tab_id"`
	SecurityInfo SecurityInfo `json:"security_info"`
}

type UpdateBackNavigation struct {
	TabID     string `json:"tab_id"`
	CanGoBack bool   `json:"can_go_back"`
}

type UpdateForwardNavigation struct {
	TabID        string `json:"tab_id"`
	CanGoForward bool   `json:"can_go_forward"`
}

type AddHitResult struct {
	TabID     string    `json:"tab_id"`
	HitResult HitResult `json:"hit_result"`
}

type ConsumeHitResult struct {
	TabID string `json:"tab_id"`
}

// Engine actions.

// LinkEngineSession records the engine session created for a tab.
type LinkEngineSession struct {
	TabID       string `json:"tab_id"`
	SessionID   string `json:"session_id"`
	SkipLoading bool   `json:"skip_loading,omitempty"`
}

type UnlinkEngineSession struct {
	TabID string `json:"tab_id"`
}

// EngineError reports a failed engine call for a tab.
type EngineError struct {
	TabID   string `json:"tab_id"`
	Message string `json:"message"`
}

// Crash marks the engine session of a tab as lost.
type Crash struct {
	TabID string `json:"tab_id"`
}

// RestoreCrashed clears the crash flag and asks for a new engine session.
type RestoreCrashed struct {
	TabID string `json:"tab_id"`
}

// LoadURL asks the engine to navigate. It does not change state by itself; the
// engine reports progress through content actions.
type LoadURL struct {
	TabID string `json:"tab_id"`
	URL   string `json:"url"`
}

type GoBack struct {
	TabID string `json:"tab_id"`
}

type GoForward struct {
	TabID string `json:"tab_id"`
}

type Reload struct {
	TabID string `json:"tab_id"`
}

func (AddTab) Kind() string                  { return KindAddTab }
func (SelectTab) Kind() string               { return KindSelectTab }
func (RemoveTab) Kind() string               { return KindRemoveTab }
func (RemoveAllTabs) Kind() string           { return KindRemoveAllTabs }
func (UpdateURL) Kind() string               { return KindUpdateURL }
func (UpdateProgress) Kind() string          { return KindUpdateProgress }
func (UpdateTitle) Kind() string             { return KindUpdateTitle }
func (UpdateLoading) Kind() string           { return KindUpdateLoading }
func (UpdateSearchTerms) Kind() string       { return KindUpdateSearchTerms }
func (UpdateSecurityInfo) Kind() string      { return KindUpdateSecurityInfo }
func (UpdateBackNavigation) Kind() string    { return KindUpdateBackNavigation }
func (UpdateForwardNavigation) Kind() string { return KindUpdateForwardNavigation }
func (AddHitResult) Kind() string            { return KindAddHitResult }
func (ConsumeHitResult) Kind() string        { return KindConsumeHitResult }
func (LinkEngineSession) Kind() string       { return KindLinkEngineSession }
func (UnlinkEngineSession) Kind() string     { return KindUnlinkEngineSession }
func (EngineError) Kind() string             { return KindEngineError }
func (Crash) Kind() string                   { return KindCrash }
func (RestoreCrashed) Kind() string          { return KindRestoreCrashed }
func (LoadURL) Kind() string                 { return KindLoadURL }
func (GoBack) Kind() string                  { return KindGoBack }
func (GoForward) Kind() string               { return KindGoForward }
func (Reload) Kind() string                  { return KindReload }

func (AddTab) isAction()                  {}
func (SelectTab) isAction()               {}
func (RemoveTab) isAction()               {}
func (RemoveAllTabs) isAction()           {}
func (UpdateURL) isAction()               {}
func (UpdateProgress) isAction()          {}
func (UpdateTitle) isAction()             {}
func (UpdateLoading) isAction()           {}
func (UpdateSearchTerms) isAction()       {}
func (UpdateSecurityInfo) isAction()      {}
func (UpdateBackNavigation) isAction()    {}
func (UpdateForwardNavigation) isAction() {}
func (AddHitResult) isAction()            {}
func (ConsumeHitResult) isAction()        {}
func (LinkEngineSession) isAction()       {}
func (UnlinkEngineSession) isAction()     {}
func (EngineError) isAction()             {}
func (Crash) isAction()                   {}
func (RestoreCrashed) isAction()          {}
func (LoadURL) isAction()                 {}
func (GoBack) isAction()                  {}
func (GoForward) isAction()               {}
func (Reload) isAction()                  {}

func (a AddTab) Target() string                  { return a.Tab.ID }
func (a SelectTab) Target() string               { return a.TabID }
func (a RemoveTab) Target() string               { return a.TabID }
func (a UpdateURL) Target() string               { return a.TabID }
func (a UpdateProgress) Target() string          { return a.TabID }
func (a UpdateTitle) Target() string             { return a.TabID }
func (a UpdateLoading) Target() string           { return a.TabID }
func (a UpdateSearchTerms) Target() string       { return a.TabID }
func (a UpdateSecurityInfo) Target() string      { return a.TabID }
func (a UpdateBackNavigation) Target() string    { return a.TabID }
func (a UpdateForwardNavigation) Target() string { return a.TabID }
func (a AddHitResult) Target() string            { return a.TabID }
func (a ConsumeHitResult) Target() string        { return a.TabID }
func (a LinkEngineSession) Target() string       { return a.TabID }
func (a UnlinkEngineSession) Target() string     { return a.TabID }
func (a EngineError) Target() string             { return a.TabID }
func (a Crash) Target() string                   { return a.TabID }
func (a RestoreCrashed) Target() string          { return a.TabID }
func (a LoadURL) Target() string                 { return a.TabID }
func (a GoBack) Target() string                  { return a.TabID }
func (a GoForward) Target() string               { return a.TabID }
func (a Reload) Target() string                  { return a.TabID }
