package leaddedup

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/phone"
)

// Service handles duplicate detection against existing leads.
type Service struct {
	db *gorm.DB
}

// NewService creates a new duplicate detection service.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// CheckResult is the outcome of a single phone/email duplicate check.
type CheckResult struct {
	HasDuplicates bool          `json:"has_duplicates"`
	Duplicates    []models.Lead `json:"duplicates"`
}

// BulkEntry describes one duplicated candidate from a bulk check.
type BulkEntry struct {
	Index          int    `json:"index"`
	Phone          string `json:"phone,omitempty"`
	Email          string `json:"email,omitempty"`
	MatchedLeadIDs []uint `json:"matched_lead_ids"`
}

// BulkResult summarizes a bulk duplicate check over parsed import rows.
type BulkResult struct {
	Duplicates      []BulkEntry `json:"duplicates"`
	DuplicateCount  int         `json:"duplicate_count"`
	NewCount        int         `json:"new_count"`
	TotalInputCount int         `json:"total_input_count"`
}

// Check queries existing leads for an exact match on phone or email.
// The phone is normalized to E.164 before comparison so that differing
// input formats of the same number still collide.
func (s *Service) Check(ctx context.Context, rawPhone, email string) (*CheckResult, error) {
	normalizedPhone := phone.Clean(rawPhone)
	email = strings.ToLower(strings.TrimSpace(email))

	if normalizedPhone == "" && email == "" {
		return &CheckResult{HasDuplicates: false, Duplicates: []models.Lead{}}, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Lead{}).Where("archived_at IS NULL")
	switch {
	case normalizedPhone != "" && email != "":
		query = query.Where("phone = ? OR LOWER(email) = ?", normalizedPhone, email)
	case normalizedPhone != "":
		query = query.Where("phone = ?", normalizedPhone)
	default:
		query = query.Where("LOWER(email) = ?", email)
	}

	var matches []models.Lead
	if err := query.Find(&matches).Error; err != nil {
		return nil, fmt.Errorf("failed to query duplicates: %w", err)
	}

	return &CheckResult{
		HasDuplicates: len(matches) > 0,
		Duplicates:    matches,
	}, nil
}

// BulkCheck performs a set-membership duplicate check for parallel
// arrays of candidate phones and emails, typically parsed from an
// import file. Candidate i is pairs (phones[i], emails[i]); a shorter
// array is treated as empty values.
func (s *Service) BulkCheck(ctx context.Context, phones, emails []string) (*BulkResult, error) {
	total := len(phones)
	if len(emails) > total {
		total = len(emails)
	}

	result := &BulkResult{
		Duplicates:      []BulkEntry{},
		TotalInputCount: total,
	}
	if total == 0 {
		return result, nil
	}

	// Normalize candidates up front.
	normPhones := make([]string, total)
	normEmails := make([]string, total)
	phoneSet := make([]string, 0, total)
	emailSet := make([]string, 0, total)
	for i := 0; i < total; i++ {
		if i < len(phones) {
			normPhones[i] = phone.Clean(phones[i])
		}
		if i < len(emails) {
			normEmails[i] = strings.ToLower(strings.TrimSpace(emails[i]))
		}
		if normPhones[i] != "" {
			phoneSet = append(phoneSet, normPhones[i])
		}
		if normEmails[i] != "" {
			emailSet = append(emailSet, normEmails[i])
		}
	}

	// One query for all candidates, then set membership in memory.
	query := s.db.WithContext(ctx).Model(&models.Lead{}).Where("archived_at IS NULL")
	switch {
	case len(phoneSet) > 0 && len(emailSet) > 0:
		query = query.Where("phone IN ? OR LOWER(email) IN ?", phoneSet, emailSet)
	case len(phoneSet) > 0:
		query = query.Where("phone IN ?", phoneSet)
	case len(emailSet) > 0:
		query = query.Where("LOWER(email) IN ?", emailSet)
	default:
		result.NewCount = total
		return result, nil
	}

	var existing []models.Lead
	if err := query.Find(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to query duplicates: %w", err)
	}

	byPhone := make(map[string][]uint)
	byEmail := make(map[string][]uint)
	for _, l := range existing {
		if l.Phone != "" {
			byPhone[l.Phone] = append(byPhone[l.Phone], l.ID)
		}
		if l.Email != "" {
			byEmail[strings.ToLower(l.Email)] = append(byEmail[strings.ToLower(l.Email)], l.ID)
		}
	}

	for i := 0; i < total; i++ {
		var matched []uint
		matched = append(matched, byPhone[normPhones[i]]...)
		for _, id := range byEmail[normEmails[i]] {
			if !containsID(matched, id) {
				matched = append(matched, id)
			}
		}
		if len(matched) > 0 {
			result.Duplicates = append(result.Duplicates, BulkEntry{
				Index:          i,
				Phone:          normPhones[i],
				Email:          normEmails[i],
				MatchedLeadIDs: matched,
			})
		}
	}

	result.DuplicateCount = len(result.Duplicates)
	result.NewCount = total - result.DuplicateCount

	return result, nil
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
