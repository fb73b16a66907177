// internal/repository/prospects.go
package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"prospect-onboarding/internal/common/database"
	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ProspectStore persists prospects, their expert assignments and meetings.
type ProspectStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
	newID  func() string
}

func NewProspectStore(db *sql.DB, log logger.Logger) *ProspectStore {
	return &ProspectStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "prospects"}),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

func (s *ProspectStore) CreateProspect(ctx context.Context, f models.ProspectFields) (string, error) {
	id := s.newID()
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prospects (
			id, company_name, registration_number, address, website,
			decision_maker_name, decision_maker_email, decision_maker_phone, decision_maker_role,
			interest_level, timeline, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`,
		id, f.CompanyName, nullable(f.RegistrationNumber), nullable(f.Address), nullable(f.Website),
		f.DecisionMakerName, f.DecisionMakerEmail, nullable(f.DecisionMakerPhone), nullable(f.DecisionMakerRole),
		nullable(f.InterestLevel), nullable(f.Timeline), "prospect", now,
	)
	if err != nil {
		return "", fmt.Errorf("insert prospect: %w", err)
	}

	s.logger.Info("prospect created", map[string]interface{}{
		"prospectId": id,
		"company":    f.CompanyName,
	})
	return id, nil
}

func (s *ProspectStore) UpdateProspect(ctx context.Context, id string, f models.ProspectFields) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE prospects SET
			company_name = $2, registration_number = $3, address = $4, website = $5,
			decision_maker_name = $6, decision_maker_email = $7, decision_maker_phone = $8,
			decision_maker_role = $9, interest_level = $10, timeline = $11, updated_at = $12
		WHERE id = $1`,
		id, f.CompanyName, nullable(f.RegistrationNumber), nullable(f.Address), nullable(f.Website),
		f.DecisionMakerName, f.DecisionMakerEmail, nullable(f.DecisionMakerPhone), nullable(f.DecisionMakerRole),
		nullable(f.InterestLevel), nullable(f.Timeline), s.now(),
	)
	if err != nil {
		return fmt.Errorf("update prospect: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewProspectNotFoundError(id)
	}
	return nil
}

func (s *ProspectStore) GetProspect(ctx context.Context, id string) (*models.ProspectDraft, error) {
	var (
		p                                        models.ProspectDraft
		regNumber, address, website, phone, role sql.NullString
		interest, timeline                       sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_name, registration_number, address, website,
			decision_maker_name, decision_maker_email, decision_maker_phone, decision_maker_role,
			interest_level, timeline
		FROM prospects WHERE id = $1`, id).Scan(
		&p.ID, &p.CompanyName, &regNumber, &address, &website,
		&p.DecisionMakerName, &p.DecisionMakerEmail, &phone, &role,
		&interest, &timeline,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewProspectNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("select prospect: %w", err)
	}

	p.RegistrationNumber = regNumber.String
	p.Address = address.String
	p.Website = website.String
	p.DecisionMakerPhone = phone.String
	p.DecisionMakerRole = role.String
	p.InterestLevel = interest.String
	p.Timeline = timeline.String
	return &p, nil
}

// AssignExperts upserts the whole batch in one transaction. A client-chooses
// entry is stored with a null expert.
func (s *ProspectStore) AssignExperts(ctx context.Context, prospectID string, entries []models.ExpertAssignmentEntry) error {
	now := s.now()
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for _, e := range entries {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO expert_assignments (prospect_id, product_id, expert_id, client_chooses, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $5)
				ON CONFLICT (prospect_id, product_id)
				DO UPDATE SET expert_id = EXCLUDED.expert_id, client_chooses = EXCLUDED.client_chooses, updated_at = EXCLUDED.updated_at`,
				prospectID, e.ProductID, nullable(e.ExpertID), e.ExpertID == "", now,
			)
			if err != nil {
				return fmt.Errorf("assign product %s: %w", e.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("expert assignments saved", map[string]interface{}{
		"prospectId": prospectID,
		"count":      len(entries),
	})
	return nil
}

// CreateMeetings inserts the batch in one transaction and returns how many
// meetings were created.
func (s *ProspectStore) CreateMeetings(ctx context.Context, prospectID string, meetings []models.MeetingRequest) (int, error) {
	now := s.now()
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		for i, m := range meetings {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO meetings (
					id, prospect_id, expert_id, referrer_id, meeting_type,
					scheduled_date, scheduled_time, location, meeting_url, phone_number,
					notes, estimated_duration, product_ids, status, created_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
				s.newID(), prospectID, nullable(m.ExpertID), nullable(m.ReferrerID), string(m.MeetingType),
				m.ScheduledDate, m.ScheduledTime, nullable(m.Location), nullable(m.MeetingURL), nullable(m.PhoneNumber),
				nullable(m.Notes), m.EstimatedDuration, pq.Array(m.ProductIDs), "scheduled", now,
			)
			if err != nil {
				return fmt.Errorf("insert meeting %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("meetings created", map[string]interface{}{
		"prospectId": prospectID,
		"count":      len(meetings),
	})
	return len(meetings), nil
}

// CRMLeadID returns the CRM lead mirrored from the prospect, or "".
func (s *ProspectStore) CRMLeadID(ctx context.Context, prospectID string) (string, error) {
	var leadID sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT crm_lead_id FROM prospects WHERE id = $1`, prospectID).Scan(&leadID)
	if err != nil && !stderrors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("select crm lead id: %w", err)
	}
	return leadID.String, nil
}

func (s *ProspectStore) SetCRMLeadID(ctx context.Context, prospectID, leadID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE prospects SET crm_lead_id = $2 WHERE id = $1`, prospectID, leadID)
	if err != nil {
		return fmt.Errorf("store crm lead id: %w", err)
	}
	return nil
}

func nullable(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
