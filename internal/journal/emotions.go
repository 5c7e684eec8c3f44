package journal

import (
	"context"
	"strings"

	"trade-journal/internal/billing"
	apperrors "trade-journal/internal/errors"
	"trade-journal/internal/models"
	"trade-journal/internal/security"
)

// EmotionInput defines a custom emotion.
type EmotionInput struct {
	Name      string           `json:"name" binding:"required"`
	Sentiment models.Sentiment `json:"sentiment" binding:"required"`
}

// EmotionLogInput records how the user felt, optionally about a trade.
type EmotionLogInput struct {
	EmotionID string `json:"emotion_id" binding:"required"`
	TradeID   string `json:"trade_id"`
	Intensity int    `json:"intensity" binding:"required"`
	Note      string `json:"note"`
}

// Emotions lists predefined emotions followed by the user's own.
func (s *Service) Emotions(ctx context.Context, userID string) ([]models.Emotion, error) {
	return s.store.ListEmotions(ctx, userID)
}

// CreateEmotion adds a custom emotion on plans that allow it.
func (s *Service) CreateEmotion(ctx context.Context, userID string, in EmotionInput) (*models.Emotion, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.billing.CheckFeature(user, billing.FeatureCustomEmotions); err != nil {
		return nil, err
	}
	if err := s.validator.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	if !in.Sentiment.Valid() {
		return nil, apperrors.NewValidationError("sentiment", in.Sentiment, "must be positive, negative or neutral")
	}

	emotion := &models.Emotion{
		ID:        newID(),
		UserID:    userID,
		Name:      strings.TrimSpace(in.Name),
		Sentiment: in.Sentiment,
	}
	if err := s.store.CreateEmotion(ctx, emotion); err != nil {
		return nil, err
	}
	return emotion, nil
}

// DeleteEmotion removes a custom emotion. Predefined emotions cannot be removed.
func (s *Service) DeleteEmotion(ctx context.Context, userID, id string) error {
	emotion, err := s.store.GetEmotion(ctx, userID, id)
	if err != nil {
		return err
	}
	if emotion.Predefined {
		return apperrors.NewDataError("emotion", id, "predefined emotions cannot be deleted", apperrors.ErrForbidden)
	}
	return s.store.DeleteEmotion(ctx, userID, id)
}

// LogEmotion records an emotion log entry.
func (s *Service) LogEmotion(ctx context.Context, userID string, in EmotionLogInput) (*models.EmotionLog, error) {
	if err := s.validator.ValidateIntensity(in.Intensity); err != nil {
		return nil, err
	}
	note := security.SanitizeText(in.Note)
	if err := s.validator.ValidateText("note", note, security.MaxNotesLength); err != nil {
		return nil, err
	}
	emotion, err := s.store.GetEmotion(ctx, userID, in.EmotionID)
	if err != nil {
		return nil, err
	}
	if in.TradeID != "" {
		if _, err := s.store.GetTrade(ctx, userID, in.TradeID); err != nil {
			return nil, err
		}
	}

	log := &models.EmotionLog{
		ID:          newID(),
		UserID:      userID,
		TradeID:     in.TradeID,
		EmotionID:   emotion.ID,
		EmotionName: emotion.Name,
		Sentiment:   emotion.Sentiment,
		Intensity:   in.Intensity,
		Note:        note,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateEmotionLog(ctx, log); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("user_id", userID).
		Str("emotion", emotion.Name).
		Int("intensity", in.Intensity).
		Msg("Emotion logged")
	return log, nil
}

// EmotionLogs lists the user's emotion logs matching filter.
func (s *Service) EmotionLogs(ctx context.Context, userID string, filter models.EmotionLogFilter) ([]models.EmotionLog, error) {
	filter.UserID = userID
	return s.store.ListEmotionLogs(ctx, filter)
}

// DeleteEmotionLog removes an emotion log entry.
func (s *Service) DeleteEmotionLog(ctx context.Context, userID, id string) error {
	return s.store.DeleteEmotionLog(ctx, userID, id)
}
