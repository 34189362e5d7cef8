package pairing

import (
	"fmt"

	"task-sync-backend/pkg/apperrors"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/models"
	"task-sync-backend/pkg/utils"
)

// codeAttempts bounds invite and pairing code generation retries when a
// freshly drawn code collides with an existing one.
const codeAttempts = 5

// Service implements pairing and space membership flows.
type Service struct {
	db database.DatabaseInterface
}

// NewService creates a pairing service
func NewService(db database.DatabaseInterface) *Service {
	return &Service{db: db}
}

// freshInviteCode draws codes until one is unused. Collisions past the
// attempt bound surface as a transport error; at 36^6 codes that means the
// generator is broken, not the caller unlucky.
func (s *Service) freshInviteCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return "", apperrors.Transport("failed to generate invite code", err)
		}
		_, err = s.db.GetSpaceByInviteCode(code)
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return code, nil
		}
		if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
			return "", err
		}
	}
	return "", apperrors.Transport("invite code space exhausted", fmt.Errorf("%d collisions in a row", codeAttempts))
}

func (s *Service) freshPairingCode() (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := utils.GenerateInviteCode()
		if err != nil {
			return "", apperrors.Transport("failed to generate pairing code", err)
		}
		_, err = s.db.GetUserByPairingCode(code)
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return code, nil
		}
		if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
			return "", err
		}
	}
	return "", apperrors.Transport("pairing code space exhausted", fmt.Errorf("%d collisions in a row", codeAttempts))
}

// CreateSpace creates a space owned by the user with a fresh invite code.
// The store's unique constraint is the real collision guard; the retry loop
// here keeps the happy path from ever hitting it.
func (s *Service) CreateSpace(userID, name string) (*models.Space, error) {
	if name == "" {
		return nil, apperrors.Invalid("name is required")
	}

	var lastErr error
	for i := 0; i < codeAttempts; i++ {
		code, err := s.freshInviteCode()
		if err != nil {
			return nil, err
		}
		space := &models.Space{
			Name:       name,
			MemberIDs:  []string{userID},
			InviteCode: code,
			Type:       models.SpacePersonal,
		}
		err = s.db.CreateSpace(space)
		if err == nil {
			return space, nil
		}
		if !apperrors.IsKind(err, apperrors.KindConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// EnsureDefaultSpace guarantees the user has at least one space, creating a
// personal one on first login.
func (s *Service) EnsureDefaultSpace(userID, userName string) (*models.Space, error) {
	spaces, err := s.db.ListUserSpaces(userID)
	if err != nil {
		return nil, err
	}
	if len(spaces) > 0 {
		return &spaces[0], nil
	}

	name := "My Tasks"
	if userName != "" {
		name = fmt.Sprintf("%s's Tasks", userName)
	}
	return s.CreateSpace(userID, name)
}

// ListSpaces lists the user's spaces.
func (s *Service) ListSpaces(userID string) ([]models.Space, error) {
	return s.db.ListUserSpaces(userID)
}

// GetSpace returns one space the user belongs to.
func (s *Service) GetSpace(userID, spaceID string) (*models.Space, error) {
	space, err := s.db.GetSpaceByID(spaceID)
	if err != nil {
		return nil, err
	}
	if !space.HasMember(userID) {
		return nil, apperrors.PermissionDenied("not a member of the space")
	}
	return space, nil
}

// JoinSpace adds the user to the space behind an invite code. The member
// ceiling is enforced transactionally, so two racing joins resolve to one
// winner and one Conflict.
func (s *Service) JoinSpace(userID, inviteCode string) (*models.Space, error) {
	if inviteCode == "" {
		return nil, apperrors.Invalid("inviteCode is required")
	}
	space, err := s.db.GetSpaceByInviteCode(inviteCode)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.NotFound("invalid invite code")
		}
		return nil, err
	}
	if err := s.db.AddSpaceMember(space.ID, userID); err != nil {
		return nil, err
	}
	return s.db.GetSpaceByID(space.ID)
}

// LeaveSpace removes the user from a space. The last member out deletes
// the space and its tasks.
func (s *Service) LeaveSpace(userID, spaceID string) error {
	return s.db.RemoveSpaceMember(spaceID, userID)
}

// DeleteSpace removes a member's space entirely, tasks included.
func (s *Service) DeleteSpace(userID, spaceID string) error {
	if _, err := s.GetSpace(userID, spaceID); err != nil {
		return err
	}
	return s.db.DeleteSpace(spaceID)
}

// RefreshPairingCode assigns the user a fresh pairing code and returns it.
func (s *Service) RefreshPairingCode(userID string) (string, error) {
	user, err := s.db.GetUserByID(userID)
	if err != nil {
		return "", err
	}
	code, err := s.freshPairingCode()
	if err != nil {
		return "", err
	}
	user.PairingCode = code
	if err := s.db.UpdateUser(user); err != nil {
		return "", err
	}
	return code, nil
}

// Pair links the user with the account behind the pairing code and creates
// the shared space both will work in. The account link is transactional;
// a failure creating the space rolls the link back.
func (s *Service) Pair(userID, pairingCode string) (*models.Space, error) {
	if pairingCode == "" {
		return nil, apperrors.Invalid("pairingCode is required")
	}
	partner, err := s.db.GetUserByPairingCode(pairingCode)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, apperrors.NotFound("invalid pairing code")
		}
		return nil, err
	}
	if partner.ID == userID {
		return nil, apperrors.Invalid("cannot pair with yourself")
	}

	if err := s.db.PairUsers(userID, partner.ID); err != nil {
		return nil, err
	}

	space := &models.Space{
		Name:      "Our Tasks",
		MemberIDs: []string{userID, partner.ID},
		Type:      models.SpaceShared,
	}
	if err := s.db.CreateSpace(space); err != nil {
		// Roll the link back so a retry starts clean
		if rbErr := s.db.UnpairUsers(userID, partner.ID); rbErr != nil {
			fmt.Printf("[error] failed to roll back pairing after space creation failure: %v\n", rbErr)
		}
		return nil, err
	}

	// The code is single-use
	partner.PairingCode = ""
	if err := s.db.UpdateUser(partner); err != nil {
		fmt.Printf("[warn] failed to clear consumed pairing code: %v\n", err)
	}

	return space, nil
}

// Unpair severs the user's pairing. Both account links clear and the
// pairing's shared tasks are deleted in one transaction.
func (s *Service) Unpair(userID string) error {
	user, err := s.db.GetUserByID(userID)
	if err != nil {
		return err
	}
	if user.PairedWithID == "" {
		return apperrors.Conflict("user is not paired")
	}
	return s.db.UnpairUsers(userID, user.PairedWithID)
}

// Partner returns the user's paired account, or NotFound when unpaired.
func (s *Service) Partner(userID string) (*models.User, error) {
	user, err := s.db.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user.PairedWithID == "" {
		return nil, apperrors.NotFound("user is not paired")
	}
	return s.db.GetUserByID(user.PairedWithID)
}
