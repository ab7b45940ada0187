package store_test

import (
	"testing"

	"github.com/aretw0/tabstate/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBinding struct{ unbinds int }

func (b *countingBinding) Unbind() { b.unbinds++ }

func TestSubscription_PausedReceivesNothing(t *testing.T) {
	s := newCounterStore(t, nil)
	rec := &recorder[counter]{}
	sub := s.Observe(false, rec.observe)

	sub.Pause()
	sub.Pause()
	assert.Equal(t, store.SubscriptionPaused, sub.State())

	for i := 0; i < 5; i++ {
		s.Dispatch(increment{By: 1})
	}
	flush(t, s)
	assert.Empty(t, rec.all())
}

func TestSubscription_ResumeSkipDeliversOnlyLaterCommits(t *testing.T) {
	s := newCounterStore(t, nil)
	rec := &recorder[counter]{}
	sub := s.Observe(false, rec.observe)

	sub.Pause()
	s.Dispatch(increment{By: 1})
	s.Dispatch(increment{By: 1})
	flush(t, s)

	sub.Resume()
	flush(t, s)
	assert.Empty(t, rec.all(), "missed states are not replayed")

	s.Dispatch(increment{By: 1})
	flush(t, s)
	assert.Equal(t, []int{3}, counts(rec.all()))
	assert.Equal(t, store.SubscriptionActive, sub.State())
}

func TestSubscription_ResumeRedeliverDeliversCurrentStateOnce(t *testing.T) {
	s := newCounterStore(t, nil, store.WithResumePolicy(store.ResumeRedeliver))
	rec := &recorder[counter]{}
	sub := s.Observe(false, rec.observe)

	sub.Pause()
	s.Dispatch(increment{By: 1})
	s.Dispatch(increment{By: 1})
	flush(t, s)
	assert.Empty(t, rec.all())

	sub.Resume()
	sub.Resume()
	flush(t, s)
	assert.Equal(t, []int{2}, counts(rec.all()))

	s.Dispatch(increment{By: 1})
	flush(t, s)
	assert.Equal(t, []int{2, 3}, counts(rec.all()))
}

func TestSubscription_RedeliveryIsPerSubscription(t *testing.T) {
	s := newCounterStore(t, nil)
	skip, redeliver := &recorder[counter]{}, &recorder[counter]{}
	a := s.Observe(false, skip.observe)
	b := s.ObserveWith(redeliver.observe, store.ReceiveInitialState(false), store.WithRedelivery(true))

	a.Pause()
	b.Pause()
	s.Dispatch(increment{By: 1})
	flush(t, s)
	a.Resume()
	b.Resume()
	flush(t, s)

	assert.Empty(t, skip.all())
	assert.Equal(t, []int{1}, counts(redeliver.all()))
}

func TestSubscription_RedeliveryIsSkippedWhenNewerCommitArrivedFirst(t *testing.T) {
	s := newCounterStore(t, nil, store.WithResumePolicy(store.ResumeRedeliver))
	rec := &recorder[counter]{}
	sub := s.Observe(false, rec.observe)
	sub.Pause()

	// Queue the commit ahead of the redelivery task.
	gate := make(chan struct{})
	s.Observe(false, func(st counter) {
		if st.Count == 1 {
			<-gate
		}
	})
	s.Dispatch(increment{By: 1})
	s.Dispatch(increment{By: 1})
	sub.Resume()
	close(gate)
	flush(t, s)

	got := counts(rec.all())
	require.NotEmpty(t, got)
	assert.Equal(t, 2, got[len(got)-1])
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1], "states must never repeat or go back")
	}
}

func TestSubscription_StartPaused(t *testing.T) {
	s := newCounterStore(t, nil)
	s.Dispatch(increment{By: 1})
	flush(t, s)

	rec := &recorder[counter]{}
	sub := s.ObserveWith(rec.observe, store.StartPaused())
	assert.Equal(t, store.SubscriptionPaused, sub.State())
	assert.Empty(t, rec.all())

	s.Dispatch(increment{By: 1})
	flush(t, s)
	assert.Empty(t, rec.all())

	sub.Resume()
	s.Dispatch(increment{By: 1})
	flush(t, s)
	assert.Equal(t, []int{3}, counts(rec.all()))
}

func TestSubscription_UnsubscribeIsTerminalAndIdempotent(t *testing.T) {
	s := newCounterStore(t, nil)
	rec := &recorder[counter]{}
	sub := s.Observe(false, rec.observe)
	binding := &countingBinding{}
	sub.Bind(binding)
	require.Equal(t, 1, s.Subscriptions())

	sub.Unsubscribe()
	sub.Unsubscribe()
	sub.Pause()
	sub.Resume()

	assert.Equal(t, store.SubscriptionUnsubscribed, sub.State())
	assert.Equal(t, 1, binding.unbinds)
	assert.Equal(t, 0, s.Subscriptions())

	s.Dispatch(increment{By: 1})
	flush(t, s)
	assert.Empty(t, rec.all())
}

func TestSubscription_BindReplacesAndReleases(t *testing.T) {
	s := newCounterStore(t, nil)
	sub := s.Observe(false, func(counter) {})

	first, second := &countingBinding{}, &countingBinding{}
	sub.Bind(first)
	sub.Bind(second)
	assert.Equal(t, 1, first.unbinds)
	assert.Equal(t, 0, second.unbinds)

	sub.Unsubscribe()
	assert.Equal(t, 1, second.unbinds)

	late := &countingBinding{}
	sub.Bind(late)
	assert.Equal(t, 1, late.unbinds, "binding an unsubscribed subscription releases at once")
}

func TestSubscriptionState_String(t *testing.T) {
	assert.Equal(t, "active", store.SubscriptionActive.String())
	assert.Equal(t, "paused", store.SubscriptionPaused.String())
	assert.Equal(t, "unsubscribed", store.SubscriptionUnsubscribed.String())
	assert.Equal(t, "skip", store.ResumeSkip.String())
	assert.Equal(t, "redeliver", store.ResumeRedeliver.String())
}
