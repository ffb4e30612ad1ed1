package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"eco-loop-rewards-go/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// CreateMessage stores a contact form submission.
func (s *Store) CreateMessage(ctx context.Context, msg models.ContactMessage) (*models.ContactMessage, error) {
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	if msg.Name == "" || msg.Email == "" || strings.TrimSpace(msg.Message) == "" {
		return nil, invalid("Missing required fields")
	}
	if !emailPattern.MatchString(msg.Email) {
		return nil, invalid("Invalid email format")
	}

	msg.ID = 0
	msg.IsRead = false
	msg.CreatedAt = s.now()
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("failed to save contact message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns every message newest first, plus the unread count.
func (s *Store) ListMessages(ctx context.Context) ([]models.ContactMessage, int64, error) {
	messages := []models.ContactMessage{}
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&messages).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}

	var unread int64
	if err := s.db.WithContext(ctx).Model(&models.ContactMessage{}).Where("is_read = ?", false).Count(&unread).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return messages, unread, nil
}

func (s *Store) MarkMessageRead(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.ContactMessage{}).Where("id = ?", id).Update("is_read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark message read: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrMessageNotFound, id)
	}
	return nil
}
