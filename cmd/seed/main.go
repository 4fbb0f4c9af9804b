package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/kilohana/platform/internal/core"
	"github.com/kilohana/platform/internal/db"
)

const (
	devAdminID = "a0000000-0000-4000-8000-000000000001"
	devUserID  = "a0000000-0000-4000-8000-000000000002"
)

type orgsFile struct {
	Orgs []orgEntry `yaml:"orgs"`
}

type orgEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

func main() {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	pepper := os.Getenv("PASSWORD_PEPPER")
	if pepper == "" {
		fmt.Fprintln(os.Stderr, "PASSWORD_PEPPER is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	executor := db.NewExecutor(pool, db.RetryConfig{
		MaxRetries: 3,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}, logger)

	hasher := core.NewPasswordHasher(pepper)

	fmt.Println("Seeding platform database...")

	fmt.Println("  Seeding orgs from YAML...")
	orgs, err := seedOrgs(ctx, executor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed orgs: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("  Inserting admin account...")
	adminHash, err := hasher.Hash("password")
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}
	_, err = executor.Exec(ctx,
		`INSERT INTO accounts (id, email, username, password_hash, system_role) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
		devAdminID, "admin@platform.test", "admin", adminHash, "sysadmin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert admin: %v\n", err)
		os.Exit(1)
	}

	// Account and membership land together or not at all.
	fmt.Println("  Inserting demo user with membership...")
	userHash, err := hasher.Hash("password")
	if err != nil {
		fmt.Fprintf(os.Stderr, "hash password: %v\n", err)
		os.Exit(1)
	}
	tx, err := executor.Begin(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "begin tx: %v\n", err)
		os.Exit(1)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO accounts (id, email, username, password_hash, system_role) VALUES ($1, $2, $3, $4, $5) ON CONFLICT DO NOTHING`,
		devUserID, "demo@platform.test", "demo", userHash, "user")
	if err != nil {
		fmt.Fprintf(os.Stderr, "insert demo user: %v\n", err)
		os.Exit(1)
	}
	if len(orgs) > 0 {
		_, err = tx.Exec(ctx,
			`INSERT INTO members (account_id, org_id, org_role) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			devUserID, orgs[0].ID, "admin")
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert membership: %v\n", err)
			os.Exit(1)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "commit: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Seed complete!")
	fmt.Println()
	fmt.Println("  Admin login: admin@platform.test / password")
	fmt.Println("  Demo login:  demo@platform.test / password")
}

// seedOrgs reads seeds/orgs.yaml and upserts rows into the orgs table.
func seedOrgs(ctx context.Context, executor *db.Executor) ([]orgEntry, error) {
	// Resolve path relative to this source file so it works regardless of cwd.
	_, thisFile, _, _ := runtime.Caller(0)
	yamlPath := filepath.Join(filepath.Dir(thisFile), "..", "..", "seeds", "orgs.yaml")

	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("read orgs.yaml: %w", err)
	}

	var of orgsFile
	if err := yaml.Unmarshal(data, &of); err != nil {
		return nil, fmt.Errorf("parse orgs.yaml: %w", err)
	}

	for i := range of.Orgs {
		o := &of.Orgs[i]
		if o.ID == "" {
			o.ID = uuid.New().String()
		}
		fmt.Printf("    Upserting org %s (%s)\n", o.Slug, o.Name)
		_, err := executor.Exec(ctx,
			`INSERT INTO orgs (id, name, slug)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name`,
			o.ID, o.Name, o.Slug)
		if err != nil {
			return nil, fmt.Errorf("upsert org %s: %w", o.Slug, err)
		}
	}

	return of.Orgs, nil
}
