package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmitra/backend/internal/errs"
	"github.com/civicmitra/backend/internal/realtime"
)

func TestNotifyPersistsAndPushes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	n, err := f.notifier.Notify(ctx, f.citizen.ID, "Hello", "World", nil)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.False(t, n.IsRead)
	assert.Equal(t, fixedNow, n.CreatedAt)

	require.Len(t, f.hub.events, 1)
	assert.Equal(t, realtime.UserChannel(f.citizen.ID), f.hub.events[0].Channel)
	assert.Equal(t, realtime.EventNewNotification, f.hub.events[0].Event)
}

func TestNotifyWithoutUserIsNoop(t *testing.T) {
	f := newFixture()
	n, err := f.notifier.Notify(context.Background(), "", "Hello", "World", nil)
	assert.NoError(t, err)
	assert.Nil(t, n)
	assert.Zero(t, f.store.NotificationCount())
	assert.Empty(t, f.hub.events)
}

func TestNotifySurvivesPushFailure(t *testing.T) {
	f := newFixture()
	f.hub.err = errors.New("socket gone")

	n, err := f.notifier.Notify(context.Background(), f.citizen.ID, "Hello", "World", nil)
	require.NoError(t, err)
	_, stored := f.store.Notification(n.ID)
	assert.True(t, stored)
}

func TestMarkReadIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	n, err := f.notifier.Notify(ctx, f.citizen.ID, "Hello", "World", nil)
	require.NoError(t, err)

	first, err := f.notifier.MarkRead(ctx, f.citizen, n.ID)
	require.NoError(t, err)
	assert.True(t, first.IsRead)

	second, err := f.notifier.MarkRead(ctx, f.citizen, n.ID)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
}

func TestMarkReadRequiresOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	n, err := f.notifier.Notify(ctx, f.citizen.ID, "Hello", "World", nil)
	require.NoError(t, err)

	_, err = f.notifier.MarkRead(ctx, f.other, n.ID)
	assert.True(t, errs.Is(err, errs.KindAuthorization))
	stored, _ := f.store.Notification(n.ID)
	assert.False(t, stored.IsRead)

	_, err = f.notifier.MarkRead(ctx, f.citizen, "missing")
	assert.True(t, errs.Is(err, errs.KindNotFound))
}

func TestListNewestFirstAndUnread(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, title := range []string{"one", "two", "three"} {
		_, err := f.notifier.Notify(ctx, f.citizen.ID, title, "", nil)
		require.NoError(t, err)
	}
	_, err := f.notifier.Notify(ctx, f.other.ID, "theirs", "", nil)
	require.NoError(t, err)

	list, total, err := f.notifier.List(ctx, f.citizen, pageAll)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, "three", list[0].Title)
	assert.Equal(t, "one", list[2].Title)

	unread, err := f.notifier.UnreadCount(ctx, f.citizen)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	marked, err := f.notifier.MarkAllRead(ctx, f.citizen)
	require.NoError(t, err)
	assert.Equal(t, 3, marked)
	unread, _ = f.notifier.UnreadCount(ctx, f.citizen)
	assert.Equal(t, 0, unread)
	theirs, _ := f.notifier.UnreadCount(ctx, f.other)
	assert.Equal(t, 1, theirs)
}
