package tabstate_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/tabstate"
	"github.com/aretw0/tabstate/pkg/adapters/memory"
	"github.com/aretw0/tabstate/pkg/domain"
)

// ExampleNew opens two tabs backed by the in-memory engine and waits for them to
// load.
func ExampleNew() {
	ctx := context.Background()
	b, err := tabstate.New(ctx, tabstate.WithEngine(memory.NewEngine()))
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close(ctx)

	b.Dispatch(domain.NewAddTab("https://example.com/", true, domain.WithTabID("home")))
	b.Dispatch(domain.NewAddTab("https://example.org/docs", false, domain.WithTabID("docs")))
	if err := b.Wait(ctx); err != nil {
		log.Fatal(err)
	}

	state := b.State()
	for _, tab := range state.Tabs {
		fmt.Printf("%s %q %d%%\n", tab.ID, tab.Content.Title, tab.Content.Progress)
	}
	fmt.Println("selected:", state.SelectedTabID)

	// Output:
	// home "example.com" 100%
	// docs "example.org - docs" 100%
	// selected: home
}

// ExampleBrowser_Store observes the store directly. Selecting the tab that is
// already selected commits nothing, so no notification follows it.
func ExampleBrowser_Store() {
	ctx := context.Background()
	b, err := tabstate.New(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close(ctx)

	sub := b.Store().Observe(false, func(state domain.BrowserState) {
		fmt.Println("selected:", state.SelectedTabID)
	})
	defer sub.Unsubscribe()

	b.Dispatch(domain.NewAddTab("https://a.test/", true, domain.WithTabID("a")))
	b.Dispatch(domain.SelectTab{TabID: "a"})
	b.Dispatch(domain.NewAddTab("https://b.test/", true, domain.WithTabID("b")))
	if err := b.Flush(ctx); err != nil {
		log.Fatal(err)
	}

	// Output:
	// selected: a
	// selected: b
}
