package data

import (
	"github.com/anthropics/companion-backend/internal/biz/repo"
)

// Repositories contains all repositories.
type Repositories struct {
	History  repo.HistoryRepo
	Synth    repo.SynthesizerRepo
	Notifier *WSNotifier
}

// NewRepositories creates all repositories.
func NewRepositories(dbPath, apiKey, baseURL, textModel, visionModel string, synthRPM int) (*Repositories, error) {
	historyRepo, err := NewHistoryRepo(dbPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		History:  historyRepo,
		Synth:    NewGeminiRepo(apiKey, baseURL, textModel, visionModel, synthRPM),
		Notifier: NewWSNotifier(),
	}, nil
}
