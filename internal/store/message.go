package store

import (
	"fmt"
	"time"

	"github.com/matheus3301/chatdock/internal/chat"
)

const messageColumns = `
	m.msg_id, m.conversation_id, m.sender_id, COALESCE(u.name, ''), COALESCE(u.image, ''),
	m.content, m.is_read, m.created_at`

// UpsertMessage inserts or updates a message (idempotent on conversation_id + msg_id).
// The sender is recorded in users. Reports whether the row was new.
func (db *DB) UpsertMessage(m chat.Message) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sender := m.Sender
	if sender.ID == "" {
		sender.ID = m.SenderID
	}
	if err := upsertUser(tx, sender); err != nil {
		return false, fmt.Errorf("upsert sender: %w", err)
	}

	var existing int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ? AND msg_id = ?`,
		m.ConversationID, m.ID).Scan(&existing); err != nil {
		return false, err
	}
	if _, err := tx.Exec(`
		INSERT INTO messages (conversation_id, msg_id, sender_id, content, is_read, created_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, msg_id) DO UPDATE SET
			content = excluded.content,
			is_read = MAX(messages.is_read, excluded.is_read)`,
		m.ConversationID, m.ID, m.SenderID, m.Content, m.IsRead, millis(m.CreatedAt), time.Now().UnixMilli()); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return existing == 0, nil
}

// MarkConversationRead flags every archived message in a conversation as read.
func (db *DB) MarkConversationRead(conversationID string) error {
	_, err := db.Exec(`UPDATE messages SET is_read = 1 WHERE conversation_id = ? AND is_read = 0`, conversationID)
	return err
}

// ListMessages returns messages for a conversation using keyset pagination by
// creation time, newest first.
func (db *DB) ListMessages(conversationID string, before time.Time, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	beforeMs := millis(before)
	if beforeMs <= 0 {
		beforeMs = time.Now().UnixMilli() + 1
	}
	rows, err := db.Query(`SELECT`+messageColumns+`
		FROM messages m
		LEFT JOIN users u ON u.id = m.sender_id
		WHERE m.conversation_id = ? AND m.created_at < ?
		ORDER BY m.created_at DESC, m.id DESC
		LIMIT ?`, conversationID, beforeMs, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []chat.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanMessage(s scanner, extra ...any) (chat.Message, error) {
	var m chat.Message
	var at int64
	dest := []any{&m.ID, &m.ConversationID, &m.SenderID, &m.Sender.Name, &m.Sender.Image,
		&m.Content, &m.IsRead, &at}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return m, err
	}
	m.Sender.ID = m.SenderID
	m.CreatedAt = fromMillis(at)
	return m, nil
}
