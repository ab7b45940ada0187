package codec

import (
	"fmt"

	"github.com/aretw0/tabstate/pkg/domain"
)

// addTabShorthand is the flat form of add_tab:
//
//	{kind: add_tab, payload: {url: https://example.com, select: true}}
type addTabShorthand struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Private     bool   `json:"private"`
	SkipLoading bool   `json:"skip_loading"`
	Select      bool   `json:"select"`
}

// decodeAddTab accepts either the full form with a nested tab or the flat
// shorthand. A missing id is generated.
func decodeAddTab(payload map[string]any) (domain.Action, error) {
	if _, full := payload["tab"]; full {
		var a domain.AddTab
		if err := decodeInto(payload, &a); err != nil {
			return nil, err
		}
		if a.Tab.ID == "" {
			a.Tab.ID = domain.NewTab("").ID
		}
		return a, nil
	}

	var s addTabShorthand
	if err := decodeInto(payload, &s); err != nil {
		return nil, err
	}
	if s.URL == "" && s.ID == "" {
		return nil, fmt.Errorf("%w: url is required", ErrInvalidPayload)
	}

	var opts []domain.TabOption
	if s.ID != "" {
		opts = append(opts, domain.WithTabID(s.ID))
	}
	if s.Title != "" {
		opts = append(opts, domain.WithTitle(s.Title))
	}
	if s.Private {
		opts = append(opts, domain.WithPrivate())
	}
	if s.SkipLoading {
		opts = append(opts, domain.WithSkipLoading())
	}
	return domain.NewAddTab(s.URL, s.Select, opts...), nil
}
