package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/service"
)

// UserSeeder creates accounts that do not exist yet.
type UserSeeder interface {
	EnsureUser(ctx context.Context, input *service.RegisterInput, role string) (bool, error)
}

type testUser struct {
	input service.RegisterInput
	role  string
}

var testUsers = []testUser{
	{
		input: service.RegisterInput{Email: "admin@test.com", Password: "admin123", FirstName: "Test", LastName: "Admin"},
		role:  domain.RoleAdmin,
	},
	{
		input: service.RegisterInput{Email: "super@test.com", Password: "super123", FirstName: "Test", LastName: "Super"},
		role:  domain.RoleSuperAdmin,
	},
}

// seedTestUsers makes sure the development back office accounts exist.
func seedTestUsers(ctx context.Context, seeder UserSeeder, logger *slog.Logger) error {
	for _, u := range testUsers {
		input := u.input
		created, err := seeder.EnsureUser(ctx, &input, u.role)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", input.Email, err)
		}
		if created {
			logger.Info("seeded test user",
				slog.String("email", input.Email),
				slog.String("role", u.role),
			)
		}
	}
	return nil
}
