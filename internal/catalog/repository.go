package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrGameNotFound = errors.New("game not found")

type Repository interface {
	Create(ctx context.Context, game *Game) error
	GetByKey(ctx context.Context, key string) (*Game, error)
	List(ctx context.Context) ([]Game, error)
}

type PostgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, game *Game) error {
	if game.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate game ID: %w", err)
		}
		game.ID = id
	}

	now := time.Now().UTC()
	game.CreatedAt = now
	game.UpdatedAt = now

	query := `INSERT INTO games (id, game_key, name, genre, price, discount_percent, created_at, updated_at)
              VALUES (:id, :game_key, :name, :genre, :price, :discount_percent, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, game)
	if err != nil {
		return fmt.Errorf("repository: failed to create game: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByKey(ctx context.Context, key string) (*Game, error) {
	var game Game
	query := `SELECT id, game_key, name, genre, price, discount_percent, created_at, updated_at FROM games WHERE game_key = $1`
	err := r.db.GetContext(ctx, &game, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("repository: failed to get game by key %s: %w", key, err)
	}

	return &game, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]Game, error) {
	games := make([]Game, 0)
	query := `SELECT id, game_key, name, genre, price, discount_percent, created_at, updated_at FROM games ORDER BY name`
	err := r.db.SelectContext(ctx, &games, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to list games: %w", err)
	}

	return games, nil
}
