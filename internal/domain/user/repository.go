package user

import "context"

type Repository interface {
	Create(ctx context.Context, params CreateUserParams) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdateProfile(ctx context.Context, id int64, params UpdateProfileParams) (*User, error)
	List(ctx context.Context) ([]*User, error)
}
