package model

import "time"

// ScoreRecord is the best-score ledger row for one user.
//
// BestScore is monotonically non-decreasing over the row's lifetime: an
// incoming score only overwrites the stored value if strictly greater.
// UpdatedAt moves only when BestScore does, so leaderboard ties are broken
// in favour of whoever reached the score first.
type ScoreRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	BestScore int64     `json:"bestScore"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LeaderboardRow is a ScoreRecord joined with the owner's display metadata.
type LeaderboardRow struct {
	DisplayName      string    `json:"displayName"`
	Alias            string    `json:"alias,omitempty"`
	AvatarURL        string    `json:"avatarUrl,omitempty"`
	CustomAvatarPath string    `json:"customAvatarPath,omitempty"`
	BestScore        int64     `json:"bestScore"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
