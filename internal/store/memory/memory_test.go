package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
)

func newUser(name string) *model.User {
	return &model.User{ID: store.NewID(), Username: name, PasswordHash: "hash", ProfilePicID: "pic"}
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	s := New()

	alice, bob := newUser("alice"), newUser("bob")
	require.NoError(t, s.Users().CreateUser(ctx, alice))
	require.NoError(t, s.Users().CreateUser(ctx, bob))

	t.Run("duplicate username", func(t *testing.T) {
		err := s.Users().CreateUser(ctx, newUser("alice"))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("lookup", func(t *testing.T) {
		got, err := s.Users().GetUserByName(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, got.ID)

		got, err = s.Users().GetUserByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)

		_, err = s.Users().GetUserByID(ctx, store.NewID())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("batch keeps order and skips unknown", func(t *testing.T) {
		got, err := s.Users().GetUsersByIDs(ctx, []string{bob.ID, store.NewID(), alice.ID})
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "bob", got[0].Username)
		assert.Equal(t, "alice", got[1].Username)
	})

	t.Run("list in registration order", func(t *testing.T) {
		got, err := s.Users().ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, alice.ID, got[0].ID)
	})
}

func TestConversationStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	convs := s.Conversations()

	alice, bob, carol := store.NewID(), store.NewID(), store.NewID()
	c1 := &model.Conversation{ID: store.NewID(), Participants: []string{bob, alice}, Seen: map[string]string{}}
	c2 := &model.Conversation{ID: store.NewID(), Participants: []string{carol, alice}, Seen: map[string]string{}}
	require.NoError(t, convs.CreateConversation(ctx, c1))
	require.NoError(t, convs.CreateConversation(ctx, c2))

	t.Run("list by participant", func(t *testing.T) {
		got, err := convs.ListConversationsForUser(ctx, alice)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, c1.ID, got[0].ID)
		assert.Equal(t, c2.ID, got[1].ID)

		got, err = convs.ListConversationsForUser(ctx, bob)
		require.NoError(t, err)
		require.Len(t, got, 1)
	})

	t.Run("append message bumps activity", func(t *testing.T) {
		at := time.Now().Add(time.Minute)
		msgID := store.NewID()
		require.NoError(t, convs.AppendMessage(ctx, c1.ID, msgID, at))

		got, err := convs.GetConversation(ctx, c1.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{msgID}, got.MessageIDs)
		assert.True(t, got.LastActivity.Equal(at))
	})

	t.Run("seen pointer upsert", func(t *testing.T) {
		first, second := store.NewID(), store.NewID()
		require.NoError(t, convs.SetSeen(ctx, c1.ID, bob, first))
		require.NoError(t, convs.SetSeen(ctx, c1.ID, bob, second))

		got, err := convs.GetConversation(ctx, c1.ID)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{bob: second}, got.Seen)
	})

	t.Run("returned copies are isolated", func(t *testing.T) {
		got, err := convs.GetConversation(ctx, c1.ID)
		require.NoError(t, err)
		got.Participants[0] = "tampered"

		again, err := convs.GetConversation(ctx, c1.ID)
		require.NoError(t, err)
		assert.Equal(t, bob, again.Participants[0])
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, convs.DeleteConversation(ctx, c1.ID))
		_, err := convs.GetConversation(ctx, c1.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, convs.DeleteConversation(ctx, c1.ID), store.ErrNotFound)
		assert.ErrorIs(t, convs.Touch(ctx, c1.ID, time.Now()), store.ErrNotFound)

		got, err := convs.ListConversationsForUser(ctx, alice)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, c2.ID, got[0].ID)
	})
}

func TestMessageStore(t *testing.T) {
	ctx := context.Background()
	s := New()
	msgs := s.Messages()

	author, reader := store.NewID(), store.NewID()
	msg := &model.Message{
		ID:             store.NewID(),
		ConversationID: store.NewID(),
		AuthorID:       author,
		Content:        "hello",
		PostedAt:       time.Now(),
	}
	require.NoError(t, msgs.CreateMessage(ctx, msg))
	assert.ErrorIs(t, msgs.CreateMessage(ctx, msg), store.ErrDuplicate)

	t.Run("update content", func(t *testing.T) {
		got, err := msgs.UpdateContent(ctx, msg.ID, "hello, world")
		require.NoError(t, err)
		assert.Equal(t, "hello, world", got.Content)
		assert.True(t, got.Edited)
	})

	t.Run("reactions upsert and clear", func(t *testing.T) {
		got, err := msgs.SetReaction(ctx, msg.ID, reader, model.ReactionHappy)
		require.NoError(t, err)
		assert.Equal(t, model.ReactionHappy, got.Reactions[reader])

		got, err = msgs.SetReaction(ctx, msg.ID, reader, model.ReactionLove)
		require.NoError(t, err)
		assert.Len(t, got.Reactions, 1)
		assert.Equal(t, model.ReactionLove, got.Reactions[reader])

		got, err = msgs.SetReaction(ctx, msg.ID, reader, "")
		require.NoError(t, err)
		assert.Empty(t, got.Reactions)
	})

	t.Run("soft delete keeps content", func(t *testing.T) {
		got, err := msgs.MarkDeleted(ctx, msg.ID)
		require.NoError(t, err)
		assert.True(t, got.Deleted)
		assert.Equal(t, "hello, world", got.Content)
	})

	t.Run("batch and missing", func(t *testing.T) {
		got, err := msgs.GetMessages(ctx, []string{store.NewID(), msg.ID})
		require.NoError(t, err)
		require.Len(t, got, 1)

		_, err = msgs.UpdateContent(ctx, store.NewID(), "x")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
