package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/matheus3301/chatdock/internal/chat"
)

const conversationColumns = `
	c.id, c.last_message_at, c.last_message_text, c.unread_count,
	c.participant_a, COALESCE(a.name, ''), COALESCE(a.image, ''),
	c.participant_b, COALESCE(b.name, ''), COALESCE(b.image, '')`

const conversationJoins = `
	FROM conversations c
	LEFT JOIN users a ON a.id = c.participant_a
	LEFT JOIN users b ON b.id = c.participant_b`

// UpsertConversations stores conversations and their participants in one transaction.
func (db *DB) UpsertConversations(convs []chat.Conversation) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UnixMilli()
	for _, c := range convs {
		if err := upsertUser(tx, c.ParticipantA); err != nil {
			return fmt.Errorf("upsert participant %s: %w", c.ParticipantA.ID, err)
		}
		if err := upsertUser(tx, c.ParticipantB); err != nil {
			return fmt.Errorf("upsert participant %s: %w", c.ParticipantB.ID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO conversations (id, participant_a, participant_b, last_message_at, last_message_text, unread_count, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				last_message_at = MAX(conversations.last_message_at, excluded.last_message_at),
				last_message_text = CASE WHEN excluded.last_message_at >= conversations.last_message_at
					THEN excluded.last_message_text ELSE conversations.last_message_text END,
				unread_count = excluded.unread_count,
				updated_at = excluded.updated_at`,
			c.ID, c.ParticipantA.ID, c.ParticipantB.ID, millis(c.LastMessageAt), c.LastMessageText, c.UnreadCount, now); err != nil {
			return fmt.Errorf("upsert conversation %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// TouchConversation records a newer last message on a known conversation.
func (db *DB) TouchConversation(id string, at time.Time, text string) error {
	_, err := db.Exec(`
		UPDATE conversations
		SET last_message_at = ?, last_message_text = ?, updated_at = ?
		WHERE id = ? AND last_message_at <= ?`,
		millis(at), text, time.Now().UnixMilli(), id, millis(at))
	return err
}

// ListConversations returns conversations by last message, newest first.
func (db *DB) ListConversations(limit, offset int) ([]chat.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT`+conversationColumns+conversationJoins+`
		ORDER BY c.last_message_at DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []chat.Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// GetConversation returns a conversation by id, or nil when unknown.
func (db *DB) GetConversation(id string) (*chat.Conversation, error) {
	row := db.QueryRow(`SELECT`+conversationColumns+conversationJoins+` WHERE c.id = ?`, id)
	c, err := scanConversation(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(s scanner) (chat.Conversation, error) {
	var c chat.Conversation
	var at int64
	err := s.Scan(&c.ID, &at, &c.LastMessageText, &c.UnreadCount,
		&c.ParticipantA.ID, &c.ParticipantA.Name, &c.ParticipantA.Image,
		&c.ParticipantB.ID, &c.ParticipantB.Name, &c.ParticipantB.Image)
	if err != nil {
		return c, err
	}
	c.LastMessageAt = fromMillis(at)
	return c, nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
