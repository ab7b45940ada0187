package browser

import (
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/aretw0/tabstate/pkg/ports"
)

// ActionProducer translates the callbacks of one engine session into actions for
// the tab it backs.
type ActionProducer struct {
	tabID      string
	dispatcher ports.ActionDispatcher
}

var _ ports.SessionObserver = (*ActionProducer)(nil)

// NewActionProducer returns a producer dispatching actions for tabID.
func NewActionProducer(tabID string, dispatcher ports.ActionDispatcher) *ActionProducer {
	return &ActionProducer{tabID: tabID, dispatcher: dispatcher}
}

func (p *ActionProducer) OnLocationChange(url string) {
	p.dispatcher.Dispatch(domain.UpdateURL{TabID: p.tabID, URL: url})
}

func (p *ActionProducer) OnProgress(progress int) {
	p.dispatcher.Dispatch(domain.UpdateProgress{TabID: p.tabID, Progress: progress})
}

func (p *ActionProducer) OnLoadingStateChange(loading bool) {
	p.dispatcher.Dispatch(domain.UpdateLoading{TabID: p.tabID, Loading: loading})
}

func (p *ActionProducer) OnTitleChange(title string) {
	p.dispatcher.Dispatch(domain.UpdateTitle{TabID: p.tabID, Title: title})
}

func (p *ActionProducer) OnNavigationStateChange(canGoBack, canGoForward bool) {
	p.dispatcher.Dispatch(domain.UpdateBackNavigation{TabID: p.tabID, CanGoBack: canGoBack})
	p.dispatcher.Dispatch(domain.UpdateForwardNavigation{TabID: p.tabID, CanGoForward: canGoForward})
}

func (p *ActionProducer) OnSecurityChange(info domain.SecurityInfo) {
	p.dispatcher.Dispatch(domain.UpdateSecurityInfo{TabID: p.tabID, SecurityInfo: info})
}

func (p *ActionProducer) OnLongPress(hit domain.HitResult) {
	p.dispatcher.Dispatch(domain.AddHitResult{TabID: p.tabID, HitResult: hit})
}

func (p *ActionProducer) OnCrash() {
	p.dispatcher.Dispatch(domain.Crash{TabID: p.tabID})
}
