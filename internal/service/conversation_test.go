package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/apperror"
)

func TestCreateConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.addUser(t, "alice"), f.addUser(t, "bob"), f.addUser(t, "carol")

	t.Run("participants keep invite order then requester", func(t *testing.T) {
		conv, err := f.convs.Create(ctx, alice.ID, &model.CreateConversationRequest{
			ParticipantIDs: []string{carol.ID, bob.ID, strings.ToUpper(carol.ID), alice.ID},
			Title:          "weekend",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{carol.ID, bob.ID, alice.ID}, conv.Participants)
		assert.Equal(t, "weekend", conv.Title)
		assert.Empty(t, conv.MessageIDs)
		assert.Empty(t, conv.Seen)

		last := f.notifier.last()
		assert.Equal(t, "created", last.Kind)
		assert.Equal(t, conv.ID, last.ConversationID)
		assert.Equal(t, conv.Participants, last.Participants)
	})

	t.Run("title defaults to creation time", func(t *testing.T) {
		conv, err := f.convs.Create(ctx, alice.ID, &model.CreateConversationRequest{ParticipantIDs: []string{bob.ID}})
		require.NoError(t, err)
		assert.NotEmpty(t, conv.Title)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for _, ids := range [][]string{
			nil,
			{"fauxId"},
			{bob.ID, store.NewID()},
		} {
			_, err := f.convs.Create(ctx, alice.ID, &model.CreateConversationRequest{ParticipantIDs: ids})
			assert.True(t, apperror.Is(err, apperror.KindValidation), "ids %v", ids)
		}
	})
}

func TestListConversations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.addUser(t, "alice"), f.addUser(t, "bob"), f.addUser(t, "carol")

	conv := f.conversation(t, alice, bob)
	f.conversation(t, carol, bob)
	kept := f.post(t, alice, conv, "hi")
	gone := f.post(t, alice, conv, "oops")
	_, err := f.messages.Delete(ctx, alice.ID, gone.ID)
	require.NoError(t, err)

	views, err := f.convs.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, conv.ID, v.ID)
	require.Len(t, v.Participants, 2)
	assert.Equal(t, "bob", v.Participants[0].Username)
	assert.Equal(t, "alice", v.Participants[1].Username)

	require.Len(t, v.Messages, 2)
	assert.Equal(t, kept.ID, v.Messages[0].ID)
	assert.Equal(t, "hi", v.Messages[0].Content)
	assert.True(t, v.Messages[1].Deleted)
	assert.Empty(t, v.Messages[1].Content)

	views, err = f.convs.List(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestDeleteConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.addUser(t, "alice"), f.addUser(t, "bob"), f.addUser(t, "carol")
	conv := f.conversation(t, alice, bob)

	err := f.convs.Delete(ctx, carol.ID, conv.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	err = f.convs.Delete(ctx, alice.ID, store.NewID())
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	err = f.convs.Delete(ctx, alice.ID, "fauxId")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	before := f.notifier.count()
	require.NoError(t, f.convs.Delete(ctx, bob.ID, conv.ID))

	require.Equal(t, before+2, f.notifier.count())
	f.notifier.mu.Lock()
	deleted, closed := f.notifier.calls[before], f.notifier.calls[before+1]
	f.notifier.mu.Unlock()
	assert.Equal(t, model.EventConversationDeleted, deleted.Event)
	assert.Equal(t, "close", closed.Kind)
	assert.Equal(t, conv.ID, closed.ConversationID)

	err = f.convs.Delete(ctx, alice.ID, conv.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestSendMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.addUser(t, "alice"), f.addUser(t, "bob"), f.addUser(t, "carol")
	conv := f.conversation(t, alice, bob)
	other := f.conversation(t, carol, bob)

	msg := f.post(t, alice, conv, "hi")
	assert.Equal(t, conv.ID, msg.ConversationID)
	assert.Equal(t, alice.ID, msg.AuthorID)
	assert.False(t, msg.Edited)
	assert.False(t, msg.Deleted)
	assert.Empty(t, msg.Reactions)

	stored, err := f.store.Conversations().GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{msg.ID}, stored.MessageIDs)
	assert.False(t, stored.LastActivity.Before(msg.PostedAt))

	last := f.notifier.last()
	assert.Equal(t, model.EventMessageCreated, last.Event)
	assert.Equal(t, conv.ID, last.ConversationID)

	t.Run("non-participant", func(t *testing.T) {
		_, err := f.convs.SendMessage(ctx, carol.ID, conv.ID, &model.SendMessageRequest{Content: "let me in"})
		assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
	})

	t.Run("missing conversation", func(t *testing.T) {
		_, err := f.convs.SendMessage(ctx, alice.ID, store.NewID(), &model.SendMessageRequest{Content: "hi"})
		assert.True(t, apperror.Is(err, apperror.KindNotFound))
	})

	t.Run("empty content", func(t *testing.T) {
		_, err := f.convs.SendMessage(ctx, alice.ID, conv.ID, &model.SendMessageRequest{Content: "  "})
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})

	t.Run("reply in same conversation", func(t *testing.T) {
		reply, err := f.convs.SendMessage(ctx, bob.ID, conv.ID, &model.SendMessageRequest{Content: "hey", ReplyToID: msg.ID})
		require.NoError(t, err)
		assert.Equal(t, msg.ID, reply.ReplyToID)
	})

	t.Run("reply across conversations", func(t *testing.T) {
		foreign := f.post(t, carol, other, "elsewhere")
		_, err := f.convs.SendMessage(ctx, bob.ID, conv.ID, &model.SendMessageRequest{Content: "hey", ReplyToID: foreign.ID})
		assert.True(t, apperror.Is(err, apperror.KindValidation))

		_, err = f.convs.SendMessage(ctx, bob.ID, conv.ID, &model.SendMessageRequest{Content: "hey", ReplyToID: store.NewID()})
		assert.True(t, apperror.Is(err, apperror.KindValidation))
	})
}

func TestMarkSeen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.addUser(t, "alice"), f.addUser(t, "bob"), f.addUser(t, "carol")
	conv := f.conversation(t, alice, bob)
	other := f.conversation(t, carol, alice)
	msg := f.post(t, alice, conv, "hi")
	foreign := f.post(t, carol, other, "elsewhere")

	require.NoError(t, f.convs.MarkSeen(ctx, bob.ID, conv.ID, msg.ID))
	last := f.notifier.last()
	assert.Equal(t, model.EventConversationSeenUpdated, last.Event)
	assert.Equal(t, model.SeenEvent{ConversationID: conv.ID, UserID: bob.ID, MessageID: msg.ID}, last.Payload)

	err := f.convs.MarkSeen(ctx, carol.ID, conv.ID, msg.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))

	err = f.convs.MarkSeen(ctx, bob.ID, conv.ID, "fauxId")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	err = f.convs.MarkSeen(ctx, bob.ID, conv.ID, store.NewID())
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	err = f.convs.MarkSeen(ctx, alice.ID, conv.ID, foreign.ID)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	stored, err := f.store.Conversations().GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{bob.ID: msg.ID}, stored.Seen)
	for userID := range stored.Seen {
		assert.Contains(t, stored.Participants, userID)
	}
}

func TestGetConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.addUser(t, "alice"), f.addUser(t, "bob"), f.addUser(t, "carol")
	conv := f.conversation(t, alice, bob)

	v, err := f.convs.Get(ctx, bob.ID, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, v.ID)

	_, err = f.convs.Get(ctx, carol.ID, conv.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnauthorized))
}
