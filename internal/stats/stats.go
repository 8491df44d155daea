package stats

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MatchRecord is one member's row for one finalized match. Rooms are
// ephemeral; this is the durable trace behind the stats page.
type MatchRecord struct {
	ID               uint   `gorm:"primaryKey"`
	RoomCode         string `gorm:"size:16;index"`
	Mode             string `gorm:"size:16"`
	Username         string `gorm:"size:64;index"`
	OpponentUsername string `gorm:"size:64"`
	Points           int
	Result           string `gorm:"size:8"` // win | loss | tie
	StartedAt        time.Time
	CreatedAt        time.Time
}

type Recorder interface {
	RecordMatch(ctx context.Context, records []MatchRecord) error
	MatchesFor(ctx context.Context, username string) ([]MatchRecord, error)
}

type Entry struct {
	Username string
	Points   int
	Result   string
}

// FromResults expands finalization entries into per-member records. In a
// two-member room each record names the other member as the opponent.
func FromResults(roomCode, mode string, startedAt time.Time, entries []Entry) []MatchRecord {
	records := make([]MatchRecord, len(entries))
	for i, e := range entries {
		opponent := ""
		if len(entries) == 2 {
			opponent = entries[1-i].Username
		}
		records[i] = MatchRecord{
			RoomCode:         roomCode,
			Mode:             mode,
			Username:         e.Username,
			OpponentUsername: opponent,
			Points:           e.Points,
			Result:           e.Result,
			StartedAt:        startedAt,
		}
	}
	return records
}

type GormStore struct {
	db *gorm.DB
}

func OpenGorm(dsn string, logger *zap.Logger) (*GormStore, error) {
	const maxRetries = 3
	var db *gorm.DB
	var err error
	for i := 0; i <= maxRetries; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		logger.Error("stats database connect retry", zap.Int("attempt", i), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&MatchRecord{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) RecordMatch(ctx context.Context, records []MatchRecord) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&records).Error
}

func (s *GormStore) MatchesFor(ctx context.Context, username string) ([]MatchRecord, error) {
	var records []MatchRecord
	err := s.db.WithContext(ctx).
		Where("username = ?", username).
		Order("started_at DESC").
		Find(&records).Error
	return records, err
}

// MemoryStore backs deployments without a database and the tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records []MatchRecord
	nextID  uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) RecordMatch(_ context.Context, records []MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		rec.ID = s.nextID
		rec.CreatedAt = time.Now()
		s.nextID++
		s.records = append(s.records, rec)
	}
	return nil
}

func (s *MemoryStore) MatchesFor(_ context.Context, username string) ([]MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []MatchRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].Username == username {
			out = append(out, s.records[i])
		}
	}
	return out, nil
}
