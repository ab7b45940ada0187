/*
Package tabstate is a browser state container: a single-writer store of tabs,
reduced by pure functions, observed through subscriptions and extended with
middleware.

# Concept

Every window owns one store. Actions are dispatched from any goroutine and
processed in order on the store's writer goroutine: they pass through the
middleware chain, are folded by the reducers, and the resulting state is
committed and delivered to subscribers when it differs from the previous one.

Side effects live in middleware. The engine middleware links every tab to an
engine session and turns engine callbacks back into actions; the debug
middleware writes a START/END line per dispatch to a TCP or Redis sink.

# Usage

	ctx := context.Background()
	b, err := tabstate.New(ctx,
		tabstate.WithEngine(memory.NewEngine()),
		tabstate.WithDebugServer(":6701"),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer b.Close(ctx)

	sub := b.Store().Observe(true, func(state domain.BrowserState) {
		log.Println("tabs:", state.TabIDs())
	})
	defer sub.Unsubscribe()

	b.Dispatch(domain.NewAddTab("https://example.com/", true))
	_ = b.Wait(ctx)

The packages under pkg/ can also be used directly: pkg/store is the generic
runtime, pkg/browser the browser reducers, pkg/session a registry of windows,
and pkg/adapters the HTTP, MCP, Redis and in-memory integrations.
*/
package tabstate
