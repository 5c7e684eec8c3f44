package store

import (
	"context"
	"database/sql"
	"fmt"

	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// ListEmotions returns the predefined emotions followed by the user's own.
func (s *SQLiteStore) ListEmotions(ctx context.Context, userID string) ([]models.Emotion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, sentiment, predefined FROM emotions
		WHERE predefined = 1 OR user_id = ?
		ORDER BY predefined DESC, name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query emotions: %w", err)
	}
	defer rows.Close()

	emotions := []models.Emotion{}
	for rows.Next() {
		e, err := scanEmotion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emotion: %w", err)
		}
		emotions = append(emotions, *e)
	}
	return emotions, rows.Err()
}

func scanEmotion(row interface{ Scan(...interface{}) error }) (*models.Emotion, error) {
	var e models.Emotion
	var owner sql.NullString
	var predefined int
	if err := row.Scan(&e.ID, &owner, &e.Name, &e.Sentiment, &predefined); err != nil {
		return nil, err
	}
	e.UserID = owner.String
	e.Predefined = predefined == 1
	return &e, nil
}

// GetEmotion returns a predefined emotion or one owned by userID.
func (s *SQLiteStore) GetEmotion(ctx context.Context, userID, id string) (*models.Emotion, error) {
	e, err := scanEmotion(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, sentiment, predefined FROM emotions
		WHERE id = ? AND (predefined = 1 OR user_id = ?)
	`, id, userID))
	if err == sql.ErrNoRows {
		return nil, apperrors.NotFound("emotion", id)
	}
	if err != nil {
		return nil, translate(err, "emotion", id)
	}
	return e, nil
}

// CreateEmotion inserts a user-defined emotion.
func (s *SQLiteStore) CreateEmotion(ctx context.Context, e *models.Emotion) error {
	e.Predefined = false
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emotions (id, user_id, name, sentiment, predefined) VALUES (?, ?, ?, ?, 0)
	`, e.ID, e.UserID, e.Name, e.Sentiment)
	return translate(err, "emotion", e.Name)
}

// DeleteEmotion removes a user-defined emotion. Predefined emotions cannot be
// deleted.
func (s *SQLiteStore) DeleteEmotion(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM emotions WHERE id = ? AND user_id = ? AND predefined = 0
	`, id, userID)
	if err != nil {
		return translate(err, "emotion", id)
	}
	return expectOne(res, "emotion", id)
}

// CreateEmotionLog inserts an emotion log entry.
func (s *SQLiteStore) CreateEmotionLog(ctx context.Context, l *models.EmotionLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO emotion_logs (id, user_id, trade_id, emotion_id, intensity, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.UserID, nullString(l.TradeID), l.EmotionID, l.Intensity, nullString(l.Note), l.CreatedAt.UTC())
	return translate(err, "emotion_log", l.ID)
}

// ListEmotionLogs returns emotion logs joined with their emotion, oldest first.
func (s *SQLiteStore) ListEmotionLogs(ctx context.Context, filter models.EmotionLogFilter) ([]models.EmotionLog, error) {
	query := `
		SELECT l.id, l.user_id, l.trade_id, l.emotion_id, e.name, e.sentiment, l.intensity, l.note, l.created_at
		FROM emotion_logs l JOIN emotions e ON e.id = l.emotion_id
		WHERE 1=1`
	args := []interface{}{}

	if filter.UserID != "" {
		query += " AND l.user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.TradeID != "" {
		query += " AND l.trade_id = ?"
		args = append(args, filter.TradeID)
	}
	if !filter.StartDate.IsZero() {
		query += " AND l.created_at >= ?"
		args = append(args, filter.StartDate.UTC())
	}
	if !filter.EndDate.IsZero() {
		query += " AND l.created_at <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY l.created_at ASC, l.id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query emotion logs: %w", err)
	}
	defer rows.Close()

	logs := []models.EmotionLog{}
	for rows.Next() {
		var l models.EmotionLog
		var tradeID, note sql.NullString
		if err := rows.Scan(&l.ID, &l.UserID, &tradeID, &l.EmotionID, &l.EmotionName, &l.Sentiment, &l.Intensity, &note, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan emotion log: %w", err)
		}
		l.TradeID = tradeID.String
		l.Note = note.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// DeleteEmotionLog removes an emotion log entry.
func (s *SQLiteStore) DeleteEmotionLog(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM emotion_logs WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return translate(err, "emotion_log", id)
	}
	return expectOne(res, "emotion_log", id)
}
