package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"EnergyMonitorAPI/internal/auth"
	"EnergyMonitorAPI/internal/config"
	"EnergyMonitorAPI/internal/logger"
	"EnergyMonitorAPI/internal/models"
	"EnergyMonitorAPI/internal/repository"

	"github.com/google/uuid"
)

type DeviceStore interface {
	Create(ctx context.Context, device *models.Device) error
	GetByID(ctx context.Context, id string) (*models.Device, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.Device, error)
	List(ctx context.Context) ([]models.Device, error)
	Deactivate(ctx context.Context, id string) error
	UpdateLastSeen(ctx context.Context, id string, at time.Time) error
}

type RegisterDeviceRequest struct {
	Name     string  `json:"name"`
	Location *string `json:"location"`
}

// RegisteredDevice carries the raw token. It is returned once, at registration.
type RegisteredDevice struct {
	Device models.Device `json:"device"`
	Token  string        `json:"token"`
}

type DeviceService struct {
	repo   DeviceStore
	hasher *auth.TokenHasher
	log    *logger.Logger
}

func NewDeviceService(repo DeviceStore, hasher *auth.TokenHasher, log *logger.Logger) *DeviceService {
	return &DeviceService{
		repo:   repo,
		hasher: hasher,
		log:    log,
	}
}

func (s *DeviceService) Register(ctx context.Context, req RegisterDeviceRequest) (*RegisteredDevice, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalidInput("name is required")
	}

	var location *string
	if req.Location != nil {
		if loc := strings.TrimSpace(*req.Location); loc != "" {
			location = &loc
		}
	}

	token, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}

	device := &models.Device{
		Name:      name,
		Location:  location,
		TokenHash: s.hasher.Hash(token),
		IsActive:  true,
	}

	if err := s.repo.Create(ctx, device); err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}

	s.log.Info("Device registered: id=%s, name=%s", device.ID, device.Name)

	return &RegisteredDevice{Device: *device, Token: token}, nil
}

func (s *DeviceService) List(ctx context.Context) ([]models.Device, error) {
	return s.repo.List(ctx)
}

func (s *DeviceService) Get(ctx context.Context, id string) (*models.Device, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrDeviceNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *DeviceService) Deactivate(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrDeviceNotFound
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.log.Info("Device deactivated: id=%s", id)
	return nil
}

// Resolve maps a raw token to its device, active or not.
func (s *DeviceService) Resolve(ctx context.Context, token string) (*models.Device, error) {
	return s.repo.GetByTokenHash(ctx, s.hasher.Hash(token))
}

func (s *DeviceService) Touch(ctx context.Context, deviceID string, at time.Time) error {
	return s.repo.UpdateLastSeen(ctx, deviceID, at)
}

// SeedDevices registers devices with preset tokens, skipping known tokens.
func (s *DeviceService) SeedDevices(ctx context.Context, seeds []config.SeedDevice) error {
	for _, seed := range seeds {
		hash := s.hasher.Hash(seed.Token)

		_, err := s.repo.GetByTokenHash(ctx, hash)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrDeviceNotFound) {
			return err
		}

		device := &models.Device{
			ID:        seed.ID,
			Name:      seed.Name,
			TokenHash: hash,
			IsActive:  true,
		}
		if seed.Location != "" {
			loc := seed.Location
			device.Location = &loc
		}

		if err := s.repo.Create(ctx, device); err != nil {
			return fmt.Errorf("failed to seed device %q: %w", seed.Name, err)
		}

		s.log.Info("Seeded device: id=%s, name=%s", device.ID, device.Name)
	}

	return nil
}
