package leadscoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

// ErrLeadNotFound is returned when the lead does not exist.
var ErrLeadNotFound = errors.New("lead not found")

// Service handles lead scoring operations.
type Service struct {
	db *gorm.DB
}

// NewService creates a new lead scoring service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Point tables. The score is the clamped sum of the applicable buckets.
const (
	ScoreInterestHigh   = 25
	ScoreInterestMedium = 15
	ScoreInterestLow    = 10

	ScoreTypeInstitution = 25
	ScoreTypeInvestor    = 20
	ScoreTypeIndividual  = 15

	ScoreSourceReferral    = 15
	ScoreSourceWebsite     = 10
	ScoreSourceAdvertising = 8
	ScoreSourceOther       = 5

	ScoreContactBoth   = 20
	ScoreContactEither = 10

	ScoreHasLocation = 15

	ScoreBudgetHigh = 15 // > 1,000,000
	ScoreBudgetMid  = 10 // 500,000 - 1,000,000
	ScoreBudgetLow  = 5

	// MaxScore bounds the persisted value. The raw table sum can reach
	// 115 for a perfect lead, so the total is clamped.
	MaxScore = 100
)

// Input carries the categorical fields the score derives from.
type Input struct {
	Interest string
	Type     models.ClientType
	Source   string
	Phone    string
	Email    string
	Location string
	Budget   *float64
}

// ScoreResponse represents a lead's calculated score.
type ScoreResponse struct {
	LeadID    uint           `json:"lead_id"`
	LeadName  string         `json:"lead_name"`
	Score     int            `json:"score"`
	MaxScore  int            `json:"max_score"`
	Breakdown map[string]int `json:"breakdown"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Compute is the single canonical scoring function. It returns the
// clamped total and the per-bucket breakdown. It never fails.
func Compute(in Input) (int, map[string]int) {
	breakdown := make(map[string]int)
	total := 0

	add := func(key string, points int) {
		breakdown[key] = points
		total += points
	}

	switch in.Interest {
	case "high":
		add("interest", ScoreInterestHigh)
	case "medium":
		add("interest", ScoreInterestMedium)
	case "low":
		add("interest", ScoreInterestLow)
	}

	switch in.Type {
	case models.ClientTypeInstitution:
		add("client_type", ScoreTypeInstitution)
	case models.ClientTypeInvestor:
		add("client_type", ScoreTypeInvestor)
	case models.ClientTypeIndividual:
		add("client_type", ScoreTypeIndividual)
	}

	switch in.Source {
	case "referral":
		add("source", ScoreSourceReferral)
	case "website":
		add("source", ScoreSourceWebsite)
	case "advertising":
		add("source", ScoreSourceAdvertising)
	default:
		if in.Source != "" {
			add("source", ScoreSourceOther)
		}
	}

	switch {
	case in.Phone != "" && in.Email != "":
		add("contact", ScoreContactBoth)
	case in.Phone != "" || in.Email != "":
		add("contact", ScoreContactEither)
	}

	if in.Location != "" {
		add("location", ScoreHasLocation)
	}

	if in.Budget != nil {
		switch {
		case *in.Budget > 1_000_000:
			add("budget", ScoreBudgetHigh)
		case *in.Budget >= 500_000:
			add("budget", ScoreBudgetMid)
		default:
			add("budget", ScoreBudgetLow)
		}
	}

	if total > MaxScore {
		total = MaxScore
	}

	return total, breakdown
}

// inputFromLead extracts the scoring input from a lead record.
func inputFromLead(l *models.Lead) Input {
	return Input{
		Interest: l.Interest,
		Type:     l.Type,
		Source:   l.Source,
		Phone:    l.Phone,
		Email:    l.Email,
		Location: l.Location,
		Budget:   l.Budget,
	}
}

// CalculateScore calculates the score for a lead without persisting it.
func (s *Service) CalculateScore(ctx context.Context, leadID uint) (*ScoreResponse, error) {
	var l models.Lead
	if err := s.db.WithContext(ctx).First(&l, leadID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("failed to fetch lead: %w", err)
	}

	score, breakdown := Compute(inputFromLead(&l))

	return &ScoreResponse{
		LeadID:    l.ID,
		LeadName:  l.Name,
		Score:     score,
		MaxScore:  MaxScore,
		Breakdown: breakdown,
		UpdatedAt: time.Now(),
	}, nil
}

// UpdateLeadScore recalculates and persists the score onto the lead.
// The score is always derived from current field values; the rating
// update flow writes the same derived value back.
func (s *Service) UpdateLeadScore(ctx context.Context, leadID uint) (*ScoreResponse, error) {
	resp, err := s.CalculateScore(ctx, leadID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ?", leadID).
		Update("score", resp.Score).Error; err != nil {
		return nil, fmt.Errorf("failed to update lead score: %w", err)
	}

	return resp, nil
}

// RecomputeAll recalculates scores for all non-archived leads. Used by
// the nightly job; per-lead update failures are skipped.
func (s *Service) RecomputeAll(ctx context.Context) (int, error) {
	var leads []models.Lead
	if err := s.db.WithContext(ctx).
		Where("archived_at IS NULL").
		Find(&leads).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch leads: %w", err)
	}

	updated := 0
	for i := range leads {
		score, _ := Compute(inputFromLead(&leads[i]))
		if score == leads[i].Score {
			continue
		}
		if err := s.db.WithContext(ctx).
			Model(&models.Lead{}).
			Where("id = ?", leads[i].ID).
			Update("score", score).Error; err != nil {
			continue
		}
		updated++
	}

	return updated, nil
}

// GetScoreDistribution returns the distribution of scores across all
// non-archived leads.
func (s *Service) GetScoreDistribution(ctx context.Context) (map[string]int, error) {
	var leads []models.Lead
	if err := s.db.WithContext(ctx).
		Select("score").
		Where("archived_at IS NULL").
		Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}

	distribution := map[string]int{
		"excellent": 0, // 80-100
		"good":      0, // 60-79
		"fair":      0, // 40-59
		"poor":      0, // 20-39
		"critical":  0, // 0-19
	}

	for _, l := range leads {
		switch {
		case l.Score >= 80:
			distribution["excellent"]++
		case l.Score >= 60:
			distribution["good"]++
		case l.Score >= 40:
			distribution["fair"]++
		case l.Score >= 20:
			distribution["poor"]++
		default:
			distribution["critical"]++
		}
	}

	return distribution, nil
}
