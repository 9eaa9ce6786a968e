package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"farm-store/internal/docstore"
	"farm-store/internal/models"
)

const settingsKey = "settings"

// SettingsUpdate carries the settings form. Nil fields keep their current
// value.
type SettingsUpdate struct {
	OwnerWhatsApp *string
	OwnerEmail    *string
	BankAccount   *string
	UPI           *string
	Note          *string
}

// SettingsService keeps the singleton settings record in the document store.
type SettingsService struct {
	docs     docstore.Store
	defaults models.Settings
	mu       sync.Mutex
}

// NewSettingsService seeds from defaults the first time settings are read.
func NewSettingsService(docs docstore.Store, defaults models.Settings) *SettingsService {
	return &SettingsService{docs: docs, defaults: defaults}
}

func (s *SettingsService) GetSettings(ctx context.Context) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

func (s *SettingsService) load(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	err := s.docs.Get(ctx, settingsKey, &settings)
	if errors.Is(err, docstore.ErrNotFound) {
		settings = s.defaults
		if err := s.docs.Put(ctx, settingsKey, settings); err != nil {
			return nil, fmt.Errorf("failed to seed settings: %w", err)
		}
		return &settings, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &settings, nil
}

// UpdateSettings applies the non-nil fields of u and saves the result.
func (s *SettingsService) UpdateSettings(ctx context.Context, u SettingsUpdate) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	apply(&settings.OwnerWhatsApp, u.OwnerWhatsApp)
	apply(&settings.OwnerEmail, u.OwnerEmail)
	apply(&settings.PaymentInstructions.BankAccount, u.BankAccount)
	apply(&settings.PaymentInstructions.UPI, u.UPI)
	apply(&settings.PaymentInstructions.Note, u.Note)

	if err := s.docs.Put(ctx, settingsKey, settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}

func apply(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
