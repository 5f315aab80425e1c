package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/NeroQue/onboarding-flow-backend/internal/logger"
	"github.com/NeroQue/onboarding-flow-backend/internal/models"
	"github.com/NeroQue/onboarding-flow-backend/internal/storage"
)

// SettingsService handles the global branding record and the device identity
type SettingsService struct {
	Store    *storage.CourseStore
	Identity *storage.DeviceIdentity
	log      *logger.Logger
}

func NewSettingsService(store *storage.CourseStore, identity *storage.DeviceIdentity, log *logger.Logger) *SettingsService {
	return &SettingsService{Store: store, Identity: identity, log: log.With("component", "SettingsService")}
}

// GetSettings returns the stored settings or the defaults
func (s *SettingsService) GetSettings(ctx context.Context) (models.GlobalSettings, error) {
	settings, err := s.Store.LoadSettings(ctx)
	if err != nil {
		return models.GlobalSettings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings validates and overwrites the settings
func (s *SettingsService) UpdateSettings(ctx context.Context, settings models.GlobalSettings) (models.GlobalSettings, error) {
	settings.PlatformName = strings.TrimSpace(settings.PlatformName)
	settings.LogoURL = strings.TrimSpace(settings.LogoURL)
	if err := settings.Validate(); err != nil {
		return models.GlobalSettings{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := s.Store.SaveSettings(ctx, settings); err != nil {
		return models.GlobalSettings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	s.log.Info("Settings updated", "platform_name", settings.PlatformName)
	return settings, nil
}

// DeviceUserID returns the stable user id of this installation
func (s *SettingsService) DeviceUserID(ctx context.Context) (string, error) {
	id, err := s.Identity.UserID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve device user id: %w", err)
	}
	return id, nil
}
