package event_test

import (
	"testing"

	"github.com/reglet-dev/reglet-addon-host/event"
	"github.com/stretchr/testify/assert"
)

func TestModifier_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mods event.Modifier
		want string
	}{
		{event.NoModifiers, "none"},
		{event.Ctrl, "ctrl"},
		{event.Shift | event.Alt, "shift+alt"},
		{event.Shift | event.Ctrl | event.Alt | event.OSKey, "shift+ctrl+alt+oskey"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.mods.String())
		})
	}
}

func TestModifier_Has(t *testing.T) {
	t.Parallel()

	mods := event.Ctrl | event.Shift
	assert.True(t, mods.Has(event.Ctrl))
	assert.True(t, mods.Has(event.Ctrl|event.Shift))
	assert.False(t, mods.Has(event.Alt))
}

func TestEvent_String(t *testing.T) {
	t.Parallel()

	ev := event.New(event.Key("d"), event.Press, event.Ctrl).At(10, 20)
	assert.Equal(t, event.Type("D"), ev.Type)
	assert.Equal(t, "D PRESS [ctrl] @(10,20)", ev.String())
}
