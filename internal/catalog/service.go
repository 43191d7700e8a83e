package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

type Service interface {
	CreateGame(ctx context.Context, game *Game) error
	GetGameByKey(ctx context.Context, key string) (*Game, error)
	ListGames(ctx context.Context) ([]Game, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateGame(ctx context.Context, game *Game) error {
	if strings.TrimSpace(game.Key) == "" {
		return errors.New("service: game key is required")
	}
	if strings.TrimSpace(game.Name) == "" {
		return errors.New("service: game name is required")
	}
	if game.Price.IsNegative() {
		return fmt.Errorf("service: game price cannot be negative, got %s", game.Price)
	}
	if game.DiscountPercent < 0 || game.DiscountPercent > 100 {
		return fmt.Errorf("service: game discount must be between 0 and 100, got %d", game.DiscountPercent)
	}

	if err := s.repo.Create(ctx, game); err != nil {
		log.Error().Err(err).Str("game_key", game.Key).Msg("service: failed to create game")
		return fmt.Errorf("service: failed to create game: %w", err)
	}

	log.Info().Stringer("game_id", game.ID).Str("game_key", game.Key).Msg("service: game created")
	return nil
}

func (s *service) GetGameByKey(ctx context.Context, key string) (*Game, error) {
	game, err := s.repo.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("service: failed to get game by key: %w", err)
	}

	return game, nil
}

func (s *service) ListGames(ctx context.Context) ([]Game, error) {
	games, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: failed to list games: %w", err)
	}

	return games, nil
}
