package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const maxHandleLength = 64

// ProfileService stores the public profile fields of externally owned users.
type ProfileService struct {
	repo ProfileRepository
}

func NewProfileService(repo ProfileRepository) *ProfileService {
	return &ProfileService{repo: repo}
}

// UpsertProfile sets userID's own profile.
func (s *ProfileService) UpsertProfile(ctx context.Context, userID string, in ProfileInput) (*Profile, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	handle := strings.TrimPrefix(strings.TrimSpace(in.Handle), "@")
	if handle == "" {
		return nil, fmt.Errorf("%w: handle is required", ErrInvalidArgument)
	}
	if len(handle) > maxHandleLength {
		return nil, fmt.Errorf("%w: handle longer than %d bytes", ErrInvalidArgument, maxHandleLength)
	}

	p := &Profile{
		UserID:      userID,
		Handle:      handle,
		DisplayName: strings.TrimSpace(in.DisplayName),
		AvatarURL:   strings.TrimSpace(in.AvatarURL),
		UpdatedAt:   time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return p, nil
}

// GetProfile returns userID's profile or ErrNotFound.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile %s: %w", userID, err)
	}
	return p, nil
}
