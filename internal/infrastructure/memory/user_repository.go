package memory

import (
	"context"
	"strings"

	"github.com/jhoicas/backoffice-api/internal/domain"
	"github.com/jhoicas/backoffice-api/internal/domain/entity"
	"github.com/jhoicas/backoffice-api/internal/domain/repository"
)

// UserRepo implementa repository.UserRepository.
type UserRepo struct {
	a accessor
}

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) Create(_ context.Context, u *entity.User) error {
	return r.a.do(func(d *dataset) error {
		for _, existing := range d.users {
			if strings.EqualFold(existing.Email, u.Email) {
				return domain.ErrEmailAlreadyExists
			}
		}
		x := *u
		d.users[u.ID] = &x
		return nil
	})
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	var out *entity.User
	err := r.a.do(func(d *dataset) error {
		u, ok := d.users[id]
		if !ok {
			return domain.ErrUserNotFound
		}
		x := *u
		out = &x
		return nil
	})
	return out, err
}

// FindByEmail devuelve (nil, nil) si no existe.
func (r *UserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	var out *entity.User
	err := r.a.do(func(d *dataset) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				x := *u
				out = &x
				return nil
			}
		}
		return nil
	})
	return out, err
}
