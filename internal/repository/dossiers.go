// internal/repository/dossiers.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"prospect-onboarding/internal/common/errors"
	"prospect-onboarding/internal/common/logger"
)

// DossierStore reads and writes the shared dossier record. No row lock is
// taken; other writers may update the same dossier concurrently.
type DossierStore struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

func NewDossierStore(db *sql.DB, log logger.Logger) *DossierStore {
	return &DossierStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"store": "dossiers"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *DossierStore) CurrentStep(ctx context.Context, dossierID string) (int, error) {
	var step int
	err := s.db.QueryRowContext(ctx, `SELECT current_step FROM dossiers WHERE id = $1`, dossierID).Scan(&step)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, errors.NewResourceNotFoundError("dossier", fmt.Sprintf("dossierId: %s", dossierID))
	}
	if err != nil {
		return 0, fmt.Errorf("select dossier step: %w", err)
	}
	return step, nil
}

// UpdateStep writes the step and progress and merges metadata into the
// dossier's existing metadata.
func (s *DossierStore) UpdateStep(ctx context.Context, dossierID string, step, progress int, metadata map[string]interface{}) error {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal dossier metadata: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE dossiers
		SET current_step = $2, progress = $3,
			metadata = COALESCE(metadata, '{}'::jsonb) || $4::jsonb, updated_at = $5
		WHERE id = $1`,
		dossierID, step, progress, raw, s.now(),
	)
	if err != nil {
		return fmt.Errorf("update dossier step: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewResourceNotFoundError("dossier", fmt.Sprintf("dossierId: %s", dossierID))
	}
	return nil
}

func (s *DossierStore) exec(ctx context.Context, dossierID, what, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, append([]interface{}{dossierID}, args...)...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewResourceNotFoundError("dossier", fmt.Sprintf("dossierId: %s", dossierID))
	}
	s.logger.Info("dossier updated", map[string]interface{}{
		"dossierId": dossierID,
		"change":    what,
	})
	return nil
}

// SignCharter records the client's charter signature.
func (s *DossierStore) SignCharter(ctx context.Context, dossierID string) error {
	return s.exec(ctx, dossierID, "sign charter",
		`UPDATE dossiers SET charter_signed = TRUE, charter_signed_at = $2 WHERE id = $1`, s.now())
}

// ConfirmExpert records the expert who accepted the dossier.
func (s *DossierStore) ConfirmExpert(ctx context.Context, dossierID, expertID string) error {
	if expertID == "" {
		return errors.NewFieldValidationError("expertId", "expert is required to confirm an assignment")
	}
	return s.exec(ctx, dossierID, "confirm expert",
		`UPDATE dossiers SET expert_id = $2, expert_confirmed_at = $3 WHERE id = $1`, expertID, s.now())
}

// SetStatus moves the dossier's business status (completed, validated, finalized).
func (s *DossierStore) SetStatus(ctx context.Context, dossierID, status string) error {
	return s.exec(ctx, dossierID, "set status "+status,
		`UPDATE dossiers SET status = $2, status_changed_at = $3 WHERE id = $1`, status, s.now())
}
