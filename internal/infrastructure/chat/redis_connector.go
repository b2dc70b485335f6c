package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix      = "chat:session:"
	messageKeyPrefix      = "chat:message:"
	conversationKeyPrefix = "chat:conversation:"
	membersKeySuffix      = ":members"

	maxStatusUpdateRetries = 3
)

type redisConnector struct {
	client     *redis.Client
	sessionTTL time.Duration
	messageTTL time.Duration
}

// NewRedisConnector stores sessions, messages and conversation indexes in Redis.
func NewRedisConnector(client *redis.Client, sessionTTL, messageTTL time.Duration) Connector {
	return &redisConnector{
		client:     client,
		sessionTTL: sessionTTL,
		messageTTL: messageTTL,
	}
}

func (c *redisConnector) Connect(ctx context.Context, userID uuid.UUID) (Handle, error) {
	key := sessionKeyPrefix + userID.String()
	if err := c.client.Set(ctx, key, time.Now().UTC().Format(time.RFC3339), c.sessionTTL).Err(); err != nil {
		return nil, fmt.Errorf("open chat session: %w", err)
	}
	return &redisHandle{conn: c, userID: userID}, nil
}

func (c *redisConnector) Session(ctx context.Context, userID uuid.UUID) (Handle, error) {
	n, err := c.client.Exists(ctx, sessionKeyPrefix+userID.String()).Result()
	if err != nil {
		return nil, fmt.Errorf("check chat session: %w", err)
	}
	if n == 0 {
		return nil, ErrNotConnected
	}
	return &redisHandle{conn: c, userID: userID}, nil
}

func (c *redisConnector) Disconnect(ctx context.Context, userID uuid.UUID) error {
	return c.client.Del(ctx, sessionKeyPrefix+userID.String()).Err()
}

type redisHandle struct {
	conn   *redisConnector
	userID uuid.UUID
}

func (h *redisHandle) UserID() uuid.UUID {
	return h.userID
}

func (h *redisHandle) Send(ctx context.Context, msg *Message) (*Message, error) {
	out := *msg
	out.ID = uuid.NewString()
	out.SenderID = h.userID
	out.CreatedAt = time.Now().UTC()
	out.UpdatedAt = out.CreatedAt

	payload, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("encode chat message: %w", err)
	}

	convKey := conversationKeyPrefix + out.ConversationID
	memberKey := membersKey(out.ConversationID)
	members := make([]interface{}, 0, len(out.Recipients)+1)
	members = append(members, h.userID.String())
	for _, id := range out.Recipients {
		members = append(members, id.String())
	}

	_, err = h.conn.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, messageKeyPrefix+out.ID, payload, h.conn.messageTTL)
		pipe.RPush(ctx, convKey, out.ID)
		pipe.Expire(ctx, convKey, h.conn.messageTTL)
		pipe.SAdd(ctx, memberKey, members...)
		pipe.Expire(ctx, memberKey, h.conn.messageTTL)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("send chat message: %w", err)
	}
	return &out, nil
}

func (h *redisHandle) Get(ctx context.Context, messageID string) (*Message, error) {
	raw, err := h.conn.client.Get(ctx, messageKeyPrefix+messageID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("get chat message: %w", err)
	}
	return decodeMessage(raw)
}

// SetAppointmentStatus is an optimistic read-modify-write guarded by WATCH.
func (h *redisHandle) SetAppointmentStatus(ctx context.Context, messageID, status string) (*Message, error) {
	key := messageKeyPrefix + messageID
	var updated *Message

	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrMessageNotFound
			}
			return err
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			return err
		}
		req, err := msg.Appointment()
		if err != nil {
			return err
		}
		req.Status = status
		msg.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, payload, redis.SetArgs{KeepTTL: true})
			return nil
		})
		if err == nil {
			updated = msg
		}
		return err
	}

	for i := 0; i < maxStatusUpdateRetries; i++ {
		err := h.conn.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			if errors.Is(err, ErrMessageNotFound) || errors.Is(err, ErrNotAppointment) {
				return nil, err
			}
			return nil, fmt.Errorf("update chat message: %w", err)
		}
	}
	return nil, fmt.Errorf("update chat message: %w", redis.TxFailedErr)
}

func (h *redisHandle) History(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 50
	}

	ids, err := h.conn.client.LRange(ctx, conversationKeyPrefix+conversationID, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversation: %w", err)
	}
	if len(ids) == 0 {
		return []Message{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = messageKeyPrefix + id
	}
	values, err := h.conn.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}

	messages := make([]Message, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// expired
			continue
		}
		msg, err := decodeMessage([]byte(s))
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, nil
}

func (h *redisHandle) Members(ctx context.Context, conversationID string) ([]uuid.UUID, error) {
	raw, err := h.conn.client.SMembers(ctx, membersKey(conversationID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list conversation members: %w", err)
	}

	members := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		members = append(members, id)
	}
	return members, nil
}

func membersKey(conversationID string) string {
	return conversationKeyPrefix + conversationID + membersKeySuffix
}

func decodeMessage(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("decode chat message: %w", err)
	}
	return &msg, nil
}
