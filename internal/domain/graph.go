package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// GraphService manages follow edges. Follow and Unfollow are idempotent.
type GraphService struct {
	repo   GraphRepository
	logger *slog.Logger
}

func NewGraphService(repo GraphRepository, logger *slog.Logger) *GraphService {
	return &GraphService{repo: repo, logger: logger}
}

// Follow makes viewerID follow targetID.
func (s *GraphService) Follow(ctx context.Context, viewerID, targetID string) error {
	if err := checkEdge(viewerID, targetID); err != nil {
		return err
	}
	if err := s.repo.Follow(ctx, viewerID, targetID, time.Now().UTC()); err != nil {
		return fmt.Errorf("follow %s: %w", targetID, err)
	}
	s.logger.Debug("followed", "follower", viewerID, "following", targetID)
	return nil
}

// Unfollow removes the edge from viewerID to targetID, if any.
func (s *GraphService) Unfollow(ctx context.Context, viewerID, targetID string) error {
	if err := checkEdge(viewerID, targetID); err != nil {
		return err
	}
	if err := s.repo.Unfollow(ctx, viewerID, targetID); err != nil {
		return fmt.Errorf("unfollow %s: %w", targetID, err)
	}
	s.logger.Debug("unfollowed", "follower", viewerID, "following", targetID)
	return nil
}

// IsFollowing reports whether viewerID follows targetID.
func (s *GraphService) IsFollowing(ctx context.Context, viewerID, targetID string) (bool, error) {
	if viewerID == "" {
		return false, ErrUnauthorized
	}
	ok, err := s.repo.IsFollowing(ctx, viewerID, targetID)
	if err != nil {
		return false, fmt.Errorf("check follow %s: %w", targetID, err)
	}
	return ok, nil
}

// Following lists the accounts userID follows.
func (s *GraphService) Following(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.repo.ListFollowing(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list following: %w", err)
	}
	return ids, nil
}

// Followers lists the accounts following userID.
func (s *GraphService) Followers(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.repo.ListFollowers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list followers: %w", err)
	}
	return ids, nil
}

func checkEdge(viewerID, targetID string) error {
	if viewerID == "" {
		return ErrUnauthorized
	}
	if targetID == "" {
		return fmt.Errorf("%w: target user is required", ErrInvalidArgument)
	}
	if viewerID == targetID {
		return fmt.Errorf("%w: cannot follow yourself", ErrInvalidArgument)
	}
	return nil
}
