package stores

import (
	"context"
	"fmt"
	"time"

	"result-verification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RankingRepository persists team ratings.
type RankingRepository interface {
	Get(ctx context.Context, teamID, gameID string) (*models.TeamRanking, error)
	// GetOrCreateForUpdate returns the row for (team, game), creating it at
	// defaultRating when missing, and locks it for the current transaction.
	GetOrCreateForUpdate(ctx context.Context, teamID, gameID string, defaultRating int) (*models.TeamRanking, error)
	Save(ctx context.Context, r *models.TeamRanking) error
}

type RankingStore struct {
	DB *gorm.DB
}

func NewRankingStore(db *gorm.DB) *RankingStore {
	return &RankingStore{DB: db}
}

func (s *RankingStore) Get(ctx context.Context, teamID, gameID string) (*models.TeamRanking, error) {
	var r models.TeamRanking
	if err := s.DB.WithContext(ctx).First(&r, "team_id = ? AND game_id = ?", teamID, gameID).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *RankingStore) GetOrCreateForUpdate(ctx context.Context, teamID, gameID string, defaultRating int) (*models.TeamRanking, error) {
	db := s.DB.WithContext(ctx)
	now := time.Now().UTC()
	seed := models.TeamRanking{
		ID:         uuid.NewString(),
		TeamID:     teamID,
		GameID:     gameID,
		EloRating:  defaultRating,
		Timestamps: models.Timestamps{CreatedAt: now, UpdatedAt: now},
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "team_id"}, {Name: "game_id"}},
		DoNothing: true,
	}).Create(&seed).Error; err != nil {
		return nil, fmt.Errorf("seed ranking %s/%s: %w", teamID, gameID, err)
	}

	var r models.TeamRanking
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&r, "team_id = ? AND game_id = ?", teamID, gameID).Error; err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (s *RankingStore) Save(ctx context.Context, r *models.TeamRanking) error {
	if err := s.DB.WithContext(ctx).Save(r).Error; err != nil {
		return fmt.Errorf("save ranking %s/%s: %w", r.TeamID, r.GameID, err)
	}
	return nil
}
