package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"moneta/internal/shared/messages"
)

// Service contains the business logic for push notification operations
type Service struct {
	repo      Repository
	messenger Messenger
	texts     *messages.Messages
	logger    zerolog.Logger
}

// NewService creates a new notification service. messenger may be nil when
// push delivery is not configured; sends then become no-ops.
func NewService(repo Repository, messenger Messenger, texts *messages.Messages, logger zerolog.Logger) *Service {
	return &Service{repo: repo, messenger: messenger, texts: texts, logger: logger}
}

// RegisterDevice registers a device token for the authenticated user.
// A token already registered to another user is reassigned.
func (s *Service) RegisterDevice(ctx context.Context, params CreateDeviceTokenParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return s.repo.UpsertDeviceToken(ctx, params)
}

// NotifySyncComplete pushes the sync-complete message to all of the user's
// active devices.
func (s *Service) NotifySyncComplete(ctx context.Context, userID int64, bankName string) error {
	body := fmt.Sprintf(s.texts.SyncComplete.Body, bankName)
	return s.sendToUser(ctx, userID, s.texts.SyncComplete.Title, body, map[string]string{
		"type": "sync_complete",
	})
}

// NotifyConsentExpired tells the user a bank needs to be re-authorized.
func (s *Service) NotifyConsentExpired(ctx context.Context, userID int64, bankName string) error {
	body := fmt.Sprintf(s.texts.ConsentExpired.Body, bankName)
	return s.sendToUser(ctx, userID, s.texts.ConsentExpired.Title, body, map[string]string{
		"type": "consent_expired",
	})
}

func (s *Service) sendToUser(ctx context.Context, userID int64, title, body string, data map[string]string) error {
	if s.messenger == nil {
		return nil
	}

	tokens, err := s.repo.GetActiveTokensByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}

	if err := s.messenger.SendMulticast(ctx, values, title, body, data); err != nil {
		return fmt.Errorf("sending push notification: %w", err)
	}

	s.logger.Debug().
		Int64("user_id", userID).
		Int("devices", len(values)).
		Msg("push notification sent")
	return nil
}
