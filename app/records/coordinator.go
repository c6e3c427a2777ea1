package records

import (
	"context"
	"strings"

	"github.com/Stromnimick/HQEinOne/app/enums"
)

// CoordinatorPatch lists coordinator fields to change, nil fields keep their values
type CoordinatorPatch struct {
	LongName  *string `json:"l_name,omitempty"`
	ShortName *string `json:"k_name,omitempty"`
	Login     *string `json:"itmz,omitempty"`
	Phone     *Number `json:"tel,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// CoordinatorFieldsOf returns input fields matching the stored coordinator
func CoordinatorFieldsOf(c Coordinator) CoordinatorFields {
	return CoordinatorFields{
		LongName:  c.LongName,
		ShortName: c.ShortName,
		Login:     c.Login,
		Phone:     NumberOf(c.Phone),
		Email:     c.Email,
	}
}

func (p CoordinatorPatch) apply(f *CoordinatorFields) {
	set(&f.LongName, p.LongName)
	set(&f.ShortName, p.ShortName)
	set(&f.Login, p.Login)
	set(&f.Phone, p.Phone)
	set(&f.Email, p.Email)
}

func (s *Service) coordinator(f CoordinatorFields) (Coordinator, error) {
	if err := s.check(f); err != nil {
		return Coordinator{}, err
	}
	phone, err := parseNumber("tel", f.Phone)
	if err != nil {
		return Coordinator{}, err
	}
	return Coordinator{
		LongName:  strings.TrimSpace(f.LongName),
		ShortName: strings.TrimSpace(f.ShortName),
		Login:     strings.TrimSpace(f.Login),
		Phone:     int(phone),
		Email:     strings.TrimSpace(f.Email),
	}, nil
}

// CreateCoordinator validates and stores a new coordinator
func (s *Service) CreateCoordinator(ctx context.Context, f CoordinatorFields) (Coordinator, error) {
	c, err := s.coordinator(f)
	if err != nil {
		return Coordinator{}, err
	}
	return create(ctx, s, c)
}

// UpdateCoordinator changes the patched fields of an existing coordinator
func (s *Service) UpdateCoordinator(ctx context.Context, id int64, patch CoordinatorPatch) (Coordinator, error) {
	current, err := s.GetCoordinator(ctx, id)
	if err != nil {
		return Coordinator{}, err
	}
	f := CoordinatorFieldsOf(current)
	patch.apply(&f)
	c, err := s.coordinator(f)
	if err != nil {
		return Coordinator{}, err
	}
	c.ID = id
	return replace(ctx, s, c)
}

// DeleteCoordinator removes a coordinator. Coordinators with reform procedures are rejected or
// deleted together with them, depending on the delete policy
func (s *Service) DeleteCoordinator(ctx context.Context, id int64) error {
	return s.remove(ctx, enums.EntityCoordinator, id)
}

// GetCoordinator returns a coordinator by id
func (s *Service) GetCoordinator(ctx context.Context, id int64) (Coordinator, error) {
	return get[Coordinator](ctx, s, enums.EntityCoordinator, id)
}

// ListCoordinators returns all coordinators ordered by id
func (s *Service) ListCoordinators(ctx context.Context) ([]Coordinator, error) {
	return list[Coordinator](ctx, s, enums.EntityCoordinator)
}
