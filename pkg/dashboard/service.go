package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/cache"
	"github.com/aqarlink/crm/pkg/models"
)

const (
	summaryCacheKey = "dashboard:summary"
	summaryCacheTTL = 60 * time.Second
	monthsOfHistory = 12
)

// Service aggregates the numbers the dashboard screens render. Results
// are cached in Redis with a short TTL; the cache is best-effort and
// failures fall through to the database.
type Service struct {
	db    *gorm.DB
	cache *cache.Client
}

// NewService creates a new dashboard service. cache may be nil.
func NewService(db *gorm.DB, cacheClient *cache.Client) *Service {
	return &Service{db: db, cache: cacheClient}
}

// UserLoad is one user's share of the active assignments.
type UserLoad struct {
	UserID    uint   `json:"user_id"`
	Name      string `json:"name"`
	LeadCount int64  `json:"lead_count"`
}

// MonthlyConversions counts conversions in one calendar month.
type MonthlyConversions struct {
	Month string `json:"month"` // "2026-08"
	Count int64  `json:"count"`
}

// Summary is the full dashboard payload.
type Summary struct {
	TotalLeads        int64                `json:"total_leads"`
	TotalClients      int64                `json:"total_clients"`
	UnassignedLeads   int64                `json:"unassigned_leads"`
	StatusCounts      map[string]int64     `json:"status_counts"`
	ScoreDistribution map[string]int64     `json:"score_distribution"`
	UserLoads         []UserLoad           `json:"user_loads"`
	Conversions       []MonthlyConversions `json:"conversions_by_month"`
	GeneratedAt       time.Time            `json:"generated_at"`
}

// GetSummary returns the dashboard summary, from cache when fresh.
func (s *Service) GetSummary(ctx context.Context) (*Summary, error) {
	if s.cache != nil {
		var cached Summary
		err := s.cache.GetJSON(ctx, summaryCacheKey, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("⚠️  Dashboard cache read failed: %v", err)
		}
	}

	summary, err := s.buildSummary(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, summaryCacheKey, summary, summaryCacheTTL); err != nil {
			log.Printf("⚠️  Dashboard cache write failed: %v", err)
		}
	}

	return summary, nil
}

// Invalidate drops the cached summary. Mutating workflows call this so
// the next dashboard read is fresh.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, summaryCacheKey); err != nil {
		log.Printf("⚠️  Dashboard cache invalidation failed: %v", err)
	}
}

func (s *Service) buildSummary(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		StatusCounts:      make(map[string]int64),
		ScoreDistribution: make(map[string]int64),
		GeneratedAt:       time.Now(),
	}

	active := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Lead{}).Where("archived_at IS NULL")
	}

	if err := active().Count(&summary.TotalLeads).Error; err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.Client{}).
		Where("archived_at IS NULL").
		Count(&summary.TotalClients).Error; err != nil {
		return nil, fmt.Errorf("failed to count clients: %w", err)
	}
	if err := active().Where("assigned_to_id IS NULL").Count(&summary.UnassignedLeads).Error; err != nil {
		return nil, fmt.Errorf("failed to count unassigned leads: %w", err)
	}

	// Zero-filled so every status appears even when empty.
	for _, status := range models.ValidLeadStatuses {
		summary.StatusCounts[string(status)] = 0
	}
	var statusRows []struct {
		Status string
		Count  int64
	}
	if err := active().Select("status, COUNT(*) as count").Group("status").Scan(&statusRows).Error; err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	for _, row := range statusRows {
		summary.StatusCounts[row.Status] = row.Count
	}

	buckets := map[string]string{
		"excellent": "score >= 80",
		"good":      "score >= 60 AND score < 80",
		"fair":      "score >= 40 AND score < 60",
		"poor":      "score >= 20 AND score < 40",
		"critical":  "score < 20",
	}
	for name, cond := range buckets {
		var count int64
		if err := active().Where(cond).Count(&count).Error; err != nil {
			return nil, fmt.Errorf("failed to count score bucket %s: %w", name, err)
		}
		summary.ScoreDistribution[name] = count
	}

	if err := s.db.WithContext(ctx).Model(&models.Lead{}).
		Select("users.id as user_id, users.name, COUNT(leads.id) as lead_count").
		Joins("JOIN users ON users.id = leads.assigned_to_id").
		Where("leads.archived_at IS NULL").
		Group("users.id, users.name").
		Order("lead_count DESC").
		Scan(&summary.UserLoads).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate user loads: %w", err)
	}

	conversions, err := s.conversionsByMonth(ctx)
	if err != nil {
		return nil, err
	}
	summary.Conversions = conversions

	return summary, nil
}

func (s *Service) conversionsByMonth(ctx context.Context) ([]MonthlyConversions, error) {
	since := time.Now().AddDate(0, -monthsOfHistory, 0)

	var leads []models.Lead
	if err := s.db.WithContext(ctx).
		Select("converted_at").
		Where("converted_at IS NOT NULL AND converted_at >= ?", since).
		Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch conversions: %w", err)
	}

	// Grouped in Go rather than SQL: month truncation syntax differs
	// between postgres and sqlite.
	byMonth := make(map[string]int64)
	for _, l := range leads {
		byMonth[l.ConvertedAt.Format("2006-01")]++
	}

	months := make([]MonthlyConversions, 0, monthsOfHistory)
	cursor := time.Date(since.Year(), since.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i <= monthsOfHistory; i++ {
		key := cursor.Format("2006-01")
		months = append(months, MonthlyConversions{Month: key, Count: byMonth[key]})
		cursor = cursor.AddDate(0, 1, 0)
	}
	return months, nil
}
