package service

import (
	"context"

	"github.com/esusuhq/esusu-engine/internal/apperr"
	"github.com/esusuhq/esusu-engine/internal/models"
	"github.com/google/uuid"
)

func (s *Service) SuspendUser(ctx context.Context, adminID, targetID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	target, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return s.unexpected("SuspendUser: get target", err)
	}
	if target == nil {
		return apperr.New(apperr.NotFound, "User not found")
	}
	if target.IsAdmin {
		return apperr.New(apperr.PreconditionFailed, "Admin accounts cannot be suspended")
	}

	if err := s.repo.UpdateUserStatus(ctx, targetID, models.UserSuspended, nil); err != nil {
		return s.unexpected("SuspendUser: update status", err)
	}
	s.logger.Infof("Admin %s suspended user %s", adminID, targetID)
	return nil
}

func (s *Service) ActivateUser(ctx context.Context, adminID, targetID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	target, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return s.unexpected("ActivateUser: get target", err)
	}
	if target == nil {
		return apperr.New(apperr.NotFound, "User not found")
	}
	if target.Status == models.UserDeleted {
		return apperr.New(apperr.PreconditionFailed, "Deleted accounts cannot be reactivated")
	}

	if err := s.repo.UpdateUserStatus(ctx, targetID, models.UserActive, nil); err != nil {
		return s.unexpected("ActivateUser: update status", err)
	}
	s.logger.Infof("Admin %s activated user %s", adminID, targetID)
	return nil
}

func (s *Service) MakeUserAdmin(ctx context.Context, adminID, targetID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	target, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return s.unexpected("MakeUserAdmin: get target", err)
	}
	if target == nil {
		return apperr.New(apperr.NotFound, "User not found")
	}
	if target.Status != models.UserActive {
		return apperr.New(apperr.PreconditionFailed, "Only active users can be made admins")
	}

	if err := s.repo.SetUserAdmin(ctx, targetID, true); err != nil {
		return s.unexpected("MakeUserAdmin: set flag", err)
	}
	s.logger.Infof("Admin %s granted admin to user %s", adminID, targetID)
	return nil
}

func (s *Service) RemoveAdminPrivileges(ctx context.Context, adminID, targetID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if adminID == targetID {
		return apperr.New(apperr.PreconditionFailed, "You cannot remove your own admin privileges")
	}

	target, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return s.unexpected("RemoveAdminPrivileges: get target", err)
	}
	if target == nil {
		return apperr.New(apperr.NotFound, "User not found")
	}

	if err := s.repo.SetUserAdmin(ctx, targetID, false); err != nil {
		return s.unexpected("RemoveAdminPrivileges: set flag", err)
	}
	s.logger.Infof("Admin %s revoked admin from user %s", adminID, targetID)
	return nil
}

// DeleteUser soft-deletes an account. Enrollments in cycles that are still
// running are removed first, freeing their slots and picked numbers; both
// steps land in one transaction.
func (s *Service) DeleteUser(ctx context.Context, adminID, targetID uuid.UUID) error {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return err
	}

	target, err := s.repo.GetUser(ctx, targetID)
	if err != nil {
		return s.unexpected("DeleteUser: get target", err)
	}
	if target == nil {
		return apperr.New(apperr.NotFound, "User not found")
	}
	if target.IsAdmin {
		return apperr.New(apperr.PreconditionFailed, "Admin accounts cannot be deleted")
	}

	removable, err := s.repo.ListRemovableParticipations(ctx, targetID)
	if err != nil {
		return s.unexpected("DeleteUser: list participations", err)
	}

	tx, err := s.repo.BeginTransaction(ctx)
	if err != nil {
		return s.unexpected("DeleteUser: begin tx", err)
	}

	for _, participation := range removable {
		if err := s.repo.DeleteParticipation(ctx, participation.ID, tx); err != nil {
			s.repo.Rollback(tx)
			return s.unexpected("DeleteUser: delete participation", err)
		}
	}

	if err := s.repo.UpdateUserStatus(ctx, targetID, models.UserDeleted, tx); err != nil {
		s.repo.Rollback(tx)
		return s.unexpected("DeleteUser: update status", err)
	}

	if err := s.repo.Commit(tx); err != nil {
		return s.unexpected("DeleteUser: commit", err)
	}

	s.logger.Infof("Admin %s deleted user %s (%d participations removed)", adminID, targetID, len(removable))
	return nil
}

// ListUsers is the admin roster. Read path: empty on error.
func (s *Service) ListUsers(ctx context.Context, adminID uuid.UUID) ([]*models.User, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		s.logger.Errorf("ListUsers: %v", err)
		return []*models.User{}, nil
	}
	return users, nil
}

// UpdatePenaltyPercent changes the system-wide opt-out penalty rate.
func (s *Service) UpdatePenaltyPercent(ctx context.Context, adminID uuid.UUID, percent int) (*models.Settings, error) {
	if _, err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	if percent < 0 || percent > 100 {
		return nil, apperr.New(apperr.Validation, "Penalty percent must be between 0 and 100")
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, s.unexpected("UpdatePenaltyPercent: get settings", err)
	}
	settings.PenaltyPercent = percent
	if err := s.repo.UpdateSettings(ctx, settings); err != nil {
		return nil, s.unexpected("UpdatePenaltyPercent: update settings", err)
	}
	return settings, nil
}
