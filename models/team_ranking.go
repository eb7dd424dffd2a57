package models

// TeamRanking is a team's rating for one game. It is only changed when a
// submission is finalized.
type TeamRanking struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	TeamID      string `gorm:"not null;uniqueIndex:idx_team_game" json:"team_id"`
	GameID      string `gorm:"not null;uniqueIndex:idx_team_game" json:"game_id"`
	EloRating   int    `gorm:"not null" json:"elo_rating"`
	GamesPlayed int    `gorm:"default:0" json:"games_played"`
	Wins        int    `gorm:"default:0" json:"wins"`
	Losses      int    `gorm:"default:0" json:"losses"`
	Draws       int    `gorm:"default:0" json:"draws"`

	Timestamps
}
