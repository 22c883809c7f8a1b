package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.events = append(r.events, ev)
}

func TestProvider_StartsAbsent(t *testing.T) {
	p := NewProvider()
	id, ok := p.Current()
	assert.False(t, ok)
	assert.Empty(t, id)
}

func TestProvider_SignInSignOut(t *testing.T) {
	p := NewProvider()
	rec := &recorder{}
	p.Subscribe(rec.handle)

	require.NoError(t, p.SignIn("a@x.com"))
	id, ok := p.Current()
	assert.True(t, ok)
	assert.Equal(t, "a@x.com", id)

	p.SignOut()
	_, ok = p.Current()
	assert.False(t, ok)

	assert.Equal(t, []Event{
		{Kind: EventSignIn, Identity: "a@x.com", Active: true},
		{Kind: EventSignOut, Identity: "a@x.com", Active: false},
	}, rec.events)
}

func TestProvider_SwitchIdentityDeactivatesFirst(t *testing.T) {
	p := NewProvider()
	rec := &recorder{}
	p.Subscribe(rec.handle)

	require.NoError(t, p.SignIn("a@x.com"))
	require.NoError(t, p.SignIn("b@x.com"))

	assert.Equal(t, []Event{
		{Kind: EventSignIn, Identity: "a@x.com", Active: true},
		{Kind: EventSignOut, Identity: "a@x.com", Active: false},
		{Kind: EventSignIn, Identity: "b@x.com", Active: true},
	}, rec.events)
}

func TestProvider_RepeatedSignInIsSilent(t *testing.T) {
	p := NewProvider()
	rec := &recorder{}
	p.Subscribe(rec.handle)

	require.NoError(t, p.SignIn("a@x.com"))
	require.NoError(t, p.Restore("a@x.com"))

	assert.Len(t, rec.events, 1)
}

func TestProvider_SignOutWhenAbsentIsSilent(t *testing.T) {
	p := NewProvider()
	rec := &recorder{}
	p.Subscribe(rec.handle)

	p.SignOut()
	assert.Empty(t, rec.events)
}

func TestProvider_RestoreEmitsRestoreKind(t *testing.T) {
	p := NewProvider()
	rec := &recorder{}
	p.Subscribe(rec.handle)

	require.NoError(t, p.Restore("a@x.com"))
	require.Len(t, rec.events, 1)
	assert.Equal(t, EventRestore, rec.events[0].Kind)
}

func TestProvider_RejectsEmptyIdentity(t *testing.T) {
	p := NewProvider()
	assert.ErrorIs(t, p.SignIn(""), ErrEmptyIdentity)
	assert.ErrorIs(t, p.Restore(""), ErrEmptyIdentity)
}

func TestProvider_Unsubscribe(t *testing.T) {
	p := NewProvider()
	first, second := &recorder{}, &recorder{}
	unsubscribe := p.Subscribe(first.handle)
	p.Subscribe(second.handle)

	require.NoError(t, p.SignIn("a@x.com"))
	unsubscribe()
	unsubscribe()
	p.SignOut()

	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 2)
}

func TestProvider_SubscribersSeeNewStateDuringDelivery(t *testing.T) {
	p := NewProvider()
	var seen []bool
	p.Subscribe(func(Event) {
		_, ok := p.Current()
		seen = append(seen, ok)
	})

	require.NoError(t, p.SignIn("a@x.com"))
	p.SignOut()

	assert.Equal(t, []bool{true, false}, seen)
}
