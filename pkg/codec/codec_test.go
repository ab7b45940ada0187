package codec_test

import (
	"testing"

	"github.com/aretw0/tabstate/pkg/codec"
	"github.com/aretw0/tabstate/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		payload map[string]any
		want    domain.Action
	}{
		{
			name:    "select tab",
			kind:    "select_tab",
			payload: map[string]any{"tab_id": "a"},
			want:    domain.SelectTab{TabID: "a"},
		},
		{
			name:    "progress from float",
			kind:    "update_progress",
			payload: map[string]any{"tab_id": "a", "progress": 42.0},
			want:    domain.UpdateProgress{TabID: "a", Progress: 42},
		},
		{
			name:    "weakly typed values",
			kind:    "update_loading",
			payload: map[string]any{"tab_id": "a", "loading": "true"},
			want:    domain.UpdateLoading{TabID: "a", Loading: true},
		},
		{
			name:    "nested security info",
			kind:    "update_security_info",
			payload: map[string]any{"tab_id": "a", "security_info": map[string]any{"secure": true, "host": "a.test"}},
			want:    domain.UpdateSecurityInfo{TabID: "a", SecurityInfo: domain.SecurityInfo{Secure: true, Host: "a.test"}},
		},
		{
			name:    "hit result",
			kind:    "add_hit_result",
			payload: map[string]any{"tab_id": "a", "hit_result": map[string]any{"type": "image", "src": "https://a.test/i.png"}},
			want:    domain.AddHitResult{TabID: "a", HitResult: domain.HitResult{Type: domain.HitImage, Src: "https://a.test/i.png"}},
		},
		{
			name: "remove all tabs without payload",
			kind: "remove_all_tabs",
			want: domain.RemoveAllTabs{},
		},
		{
			name:    "load url",
			kind:    "load_url",
			payload: map[string]any{"tab_id": "a", "url": "https://b.test/"},
			want:    domain.LoadURL{TabID: "a", URL: "https://b.test/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := codec.Decode(tt.kind, tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := codec.Decode("fly_away", nil)
	assert.ErrorIs(t, err, domain.ErrUnknownAction)

	_, err = codec.Decode("select_tab", map[string]any{"tab_id": "a", "extra": 1})
	assert.ErrorIs(t, err, codec.ErrInvalidPayload, "unknown fields are rejected")

	_, err = codec.Decode("update_progress", map[string]any{"tab_id": "a", "progress": "lots"})
	assert.ErrorIs(t, err, codec.ErrInvalidPayload)

	_, err = codec.Decode("reload", map[string]any{})
	assert.ErrorIs(t, err, codec.ErrInvalidPayload, "tab actions need a tab id")
}

func TestDecode_AddTabShorthand(t *testing.T) {
	action, err := codec.Decode("add_tab", map[string]any{
		"url":     "https://a.test/",
		"title":   "A",
		"private": true,
		"select":  "1",
	})
	require.NoError(t, err)

	add, ok := action.(domain.AddTab)
	require.True(t, ok)
	assert.NotEmpty(t, add.Tab.ID, "id is generated")
	assert.True(t, add.Select)
	assert.Equal(t, "https://a.test/", add.Tab.Content.URL)
	assert.Equal(t, "A", add.Tab.Content.Title)
	assert.True(t, add.Tab.Content.Private)

	action, err = codec.Decode("add_tab", map[string]any{"id": "fixed", "url": "https://a.test/", "skip_loading": true})
	require.NoError(t, err)
	add = action.(domain.AddTab)
	assert.Equal(t, "fixed", add.Tab.ID)
	assert.True(t, add.Tab.Engine.SkipLoading)

	_, err = codec.Decode("add_tab", map[string]any{"select": true})
	assert.ErrorIs(t, err, codec.ErrInvalidPayload)
}

func TestDecode_AddTabFullForm(t *testing.T) {
	action, err := codec.Decode("add_tab", map[string]any{
		"tab": map[string]any{
			"id":      "a",
			"content": map[string]any{"url": "https://a.test/"},
		},
		"select": true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.AddTab{
		Tab:    domain.TabSessionState{ID: "a", Content: domain.ContentState{URL: "https://a.test/"}},
		Select: true,
	}, action)
}

func TestEncode(t *testing.T) {
	env, err := codec.Encode(domain.UpdateTitle{TabID: "a", Title: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, codec.Envelope{
		Kind:    "update_title",
		Payload: map[string]any{"tab_id": "a", "title": "Hello"},
	}, env)

	env, err = codec.Encode(domain.RemoveAllTabs{})
	require.NoError(t, err)
	assert.Equal(t, codec.Envelope{Kind: "remove_all_tabs"}, env)

	_, err = codec.Encode(nil)
	assert.Error(t, err)
}

func TestEncodeThenDecode(t *testing.T) {
	actions := []domain.Action{
		domain.NewAddTab("https://a.test/", true, domain.WithTabID("a"), domain.WithPrivate()),
		domain.UpdateProgress{TabID: "a", Progress: 55},
		domain.LinkEngineSession{TabID: "a", SessionID: "mem-1", SkipLoading: true},
		domain.AddHitResult{TabID: "a", HitResult: domain.HitResult{Type: domain.HitEmail, Src: "x", URI: "mailto:x@a.test"}},
	}
	for _, a := range actions {
		env, err := codec.Encode(a)
		require.NoError(t, err, a.Kind())
		got, err := codec.DecodeEnvelope(env)
		require.NoError(t, err, a.Kind())
		assert.Equal(t, a, got, a.Kind())
	}
}

func TestRegistry(t *testing.T) {
	r := codec.NewRegistry()
	codec.Register[domain.Reload](r)

	assert.Equal(t, []string{"reload"}, r.Kinds())

	action, err := r.Decode("reload", map[string]any{"tab_id": "a"})
	require.NoError(t, err)
	assert.Equal(t, domain.Reload{TabID: "a"}, action)

	_, err = r.Decode("select_tab", map[string]any{"tab_id": "a"})
	assert.ErrorIs(t, err, domain.ErrUnknownAction)

	assert.Contains(t, codec.Kinds(), "add_tab")
	assert.Len(t, codec.Kinds(), 23)
}
