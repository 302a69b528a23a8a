// Package mongo implements the store contracts on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/capitalize-ai/messaging-platform/internal/model"
	"github.com/capitalize-ai/messaging-platform/internal/store"
	"github.com/capitalize-ai/messaging-platform/pkg/logger"
)

const (
	usersCollection         = "users"
	conversationsCollection = "conversations"
	messagesCollection      = "messages"

	opTimeout = 3 * time.Second
)

// Store is a MongoDB-backed store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *logger.Logger

	users         *mongo.Collection
	conversations *mongo.Collection
	messages      *mongo.Collection
}

var _ store.Store = (*Store)(nil)

// Connect dials uri, verifies the connection and ensures indexes exist.
func Connect(ctx context.Context, uri, database string, log *logger.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	s := New(client, client.Database(database), log)
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("Connected to MongoDB", zap.String("database", database))
	return s, nil
}

// New wraps an existing database handle.
func New(client *mongo.Client, db *mongo.Database, log *logger.Logger) *Store {
	return &Store{
		client:        client,
		db:            db,
		logger:        log,
		users:         db.Collection(usersCollection),
		conversations: db.Collection(conversationsCollection),
		messages:      db.Collection(messagesCollection),
	}
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	if _, err := s.conversations.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create conversations index: %w", err)
	}
	if _, err := s.messages.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "posted_at", Value: 1}},
	}); err != nil {
		return fmt.Errorf("failed to create messages index: %w", err)
	}
	return nil
}

func (s *Store) Users() store.UserStore                 { return (*userStore)(s) }
func (s *Store) Conversations() store.ConversationStore { return (*conversationStore)(s) }
func (s *Store) Messages() store.MessageStore           { return (*messageStore)(s) }

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}

type userStore Store

func (s *userStore) CreateUser(ctx context.Context, user *model.User) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.users.InsertOne(ctx, user)
	return translate(err)
}

func (s *userStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"_id": store.CanonicalID(id)})
}

func (s *userStore) GetUserByName(ctx context.Context, username string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *userStore) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var u model.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *userStore) GetUsersByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	canonical := canonicalIDs(ids)
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": canonical}})
	if err != nil {
		return nil, err
	}
	var found []model.User
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}

	byID := make(map[string]model.User, len(found))
	for _, u := range found {
		byID[u.ID] = u
	}
	out := make([]model.User, 0, len(found))
	for _, id := range canonical {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *userStore) ListUsers(ctx context.Context) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := []model.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type conversationStore Store

func (s *conversationStore) CreateConversation(ctx context.Context, conv *model.Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Array and map fields must exist as empty values so $push and dotted
	// $set updates work later.
	doc := conv.Clone()
	if doc.Participants == nil {
		doc.Participants = []string{}
	}
	if doc.MessageIDs == nil {
		doc.MessageIDs = []string{}
	}

	_, err := s.conversations.InsertOne(ctx, doc)
	return translate(err)
}

func (s *conversationStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var conv model.Conversation
	if err := s.conversations.FindOne(ctx, bson.M{"_id": store.CanonicalID(id)}).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	normalizeConversation(&conv)
	return &conv, nil
}

func (s *conversationStore) ListConversationsForUser(ctx context.Context, userID string) ([]model.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := s.conversations.Find(ctx,
		bson.M{"participants": store.CanonicalID(userID)},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var out []model.Conversation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		normalizeConversation(&out[i])
	}
	return out, nil
}

func (s *conversationStore) DeleteConversation(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.conversations.DeleteOne(ctx, bson.M{"_id": store.CanonicalID(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *conversationStore) AppendMessage(ctx context.Context, conversationID, messageID string, at time.Time) error {
	return s.update(ctx, conversationID, bson.M{
		"$push": bson.M{"message_ids": messageID},
		"$set":  bson.M{"last_activity": at},
	})
}

func (s *conversationStore) Touch(ctx context.Context, conversationID string, at time.Time) error {
	return s.update(ctx, conversationID, bson.M{"$set": bson.M{"last_activity": at}})
}

func (s *conversationStore) SetSeen(ctx context.Context, conversationID, userID, messageID string) error {
	return s.update(ctx, conversationID, bson.M{"$set": bson.M{"seen." + userID: messageID}})
}

func (s *conversationStore) update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.conversations.UpdateByID(ctx, store.CanonicalID(id), update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

type messageStore Store

func (s *messageStore) CreateMessage(ctx context.Context, msg *model.Message) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.messages.InsertOne(ctx, msg.Clone())
	return translate(err)
}

func (s *messageStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var msg model.Message
	if err := s.messages.FindOne(ctx, bson.M{"_id": store.CanonicalID(id)}).Decode(&msg); err != nil {
		return nil, translate(err)
	}
	normalizeMessage(&msg)
	return &msg, nil
}

func (s *messageStore) GetMessages(ctx context.Context, ids []string) ([]model.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	canonical := canonicalIDs(ids)
	cur, err := s.messages.Find(ctx, bson.M{"_id": bson.M{"$in": canonical}})
	if err != nil {
		return nil, err
	}
	var found []model.Message
	if err := cur.All(ctx, &found); err != nil {
		return nil, err
	}

	byID := make(map[string]model.Message, len(found))
	for _, m := range found {
		normalizeMessage(&m)
		byID[m.ID] = m
	}
	out := make([]model.Message, 0, len(found))
	for _, id := range canonical {
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *messageStore) UpdateContent(ctx context.Context, id, content string) (*model.Message, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{"content": content, "edited": true}})
}

func (s *messageStore) MarkDeleted(ctx context.Context, id string) (*model.Message, error) {
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{"deleted": true}})
}

func (s *messageStore) SetReaction(ctx context.Context, id, userID string, reaction model.Reaction) (*model.Message, error) {
	field := "reactions." + userID
	if reaction == "" {
		return s.findAndUpdate(ctx, id, bson.M{"$unset": bson.M{field: ""}})
	}
	return s.findAndUpdate(ctx, id, bson.M{"$set": bson.M{field: reaction}})
}

func (s *messageStore) findAndUpdate(ctx context.Context, id string, update bson.M) (*model.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var msg model.Message
	err := s.messages.FindOneAndUpdate(ctx,
		bson.M{"_id": store.CanonicalID(id)},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&msg)
	if err != nil {
		return nil, translate(err)
	}
	normalizeMessage(&msg)
	return &msg, nil
}

func canonicalIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = store.CanonicalID(id)
	}
	return out
}

func normalizeConversation(c *model.Conversation) {
	if c.Participants == nil {
		c.Participants = []string{}
	}
	if c.MessageIDs == nil {
		c.MessageIDs = []string{}
	}
	if c.Seen == nil {
		c.Seen = map[string]string{}
	}
}

func normalizeMessage(m *model.Message) {
	if m.Reactions == nil {
		m.Reactions = map[string]model.Reaction{}
	}
}
