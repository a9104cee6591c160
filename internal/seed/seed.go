package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/gigmarket/internal/hash"
	"github.com/Skotchmaster/gigmarket/internal/models"
	"github.com/Skotchmaster/gigmarket/internal/repo"
)

const DemoPassword = "password123"

// Run creates the demo accounts and jobs. Accounts that already exist are
// reused, so running it twice does not duplicate users.
func Run(ctx context.Context, r *repo.GormRepo) error {
	digest, err := hash.HashPassword(DemoPassword)
	if err != nil {
		return err
	}

	alice, err := ensureUser(ctx, r, &models.User{
		Name:         "Alice",
		Email:        "alice@demo.com",
		PasswordHash: digest,
		Role:         models.RoleEmployer,
	})
	if err != nil {
		return err
	}

	_, err = ensureUser(ctx, r, &models.User{
		Name:         "Bob",
		Email:        "bob@demo.com",
		PasswordHash: digest,
		Role:         models.RoleFreelancer,
		Title:        "Full-stack Developer",
		Skills:       "React,Node,Postgres",
		Bio:          "I build web apps.",
	})
	if err != nil {
		return err
	}

	_, total, err := r.ListJobs(ctx, 0, 1)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	jobs := []*models.Job{
		{
			Title:       "Build a React app",
			Category:    "Web Development",
			Type:        "Fixed",
			Location:    "Remote",
			Budget:      "$500",
			Skills:      "React,Node",
			Description: "Need a small React app with a Node backend.",
			OwnerID:     alice.ID,
		},
		{
			Title:       "Logo design",
			Category:    "Design",
			Type:        "Fixed",
			Location:    "Remote",
			Budget:      "$100",
			Skills:      "Illustrator",
			Description: "Design a logo for a startup.",
			OwnerID:     alice.ID,
		},
	}
	for _, j := range jobs {
		if err := r.CreateJob(ctx, j, nil); err != nil {
			return fmt.Errorf("seed job %q: %w", j.Title, err)
		}
	}
	return nil
}

func ensureUser(ctx context.Context, r *repo.GormRepo, u *models.User) (*models.User, error) {
	err := r.CreateUserIfNotExists(ctx, u)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repo.ErrEmailTaken) {
		return nil, fmt.Errorf("seed user %s: %w", u.Email, err)
	}
	return r.GetUserByEmail(ctx, u.Email)
}
