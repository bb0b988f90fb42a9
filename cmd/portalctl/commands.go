package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/auth"
	"github.com/ong-aas/claims-portal/internal/models"
	"github.com/ong-aas/claims-portal/internal/session"
	"github.com/ong-aas/claims-portal/internal/storage"
	postgres "github.com/ong-aas/claims-portal/internal/storage/postgres"
)

// openStore is replaced in tests.
var openStore = func(ctx context.Context, databaseURL string) (storage.UserStore, func(), error) {
	store, err := postgres.NewStore(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

// identityRefresher rewrites the identity held by a user's live sessions.
type identityRefresher interface {
	Refresh(ctx context.Context, user models.User) error
}

// openSessions is replaced in tests.
var openSessions = func(ctx context.Context, users storage.UserStore, addr string, db int) (identityRefresher, func(), error) {
	rdb, err := session.NewRedisClient(ctx, addr, os.Getenv("REDIS_PASSWORD"), db)
	if err != nil {
		return nil, nil, err
	}
	return session.New(users, rdb, nil, session.Options{}, zap.NewNop()), func() { rdb.Close() }, nil
}

func newRootCmd() *cobra.Command {
	var (
		databaseURL string
		redisAddr   string
		redisDB     int
	)
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Operator tasks for the claims portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")
	root.PersistentFlags().StringVar(&redisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "Redis address holding live sessions")
	root.PersistentFlags().IntVar(&redisDB, "redis-db", envInt("REDIS_DB", 0), "Redis database number")

	withStore := func(cmd *cobra.Command, fn func(context.Context, storage.UserStore) error) error {
		if strings.TrimSpace(databaseURL) == "" {
			return errors.New("DATABASE_URL or --database-url is required")
		}
		ctx := cmd.Context()
		store, closeFn, err := openStore(ctx, databaseURL)
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, store)
	}

	// The database change is already committed when this runs.
	refresh := func(ctx context.Context, users storage.UserStore, user models.User) error {
		sessions, closeFn, err := openSessions(ctx, users, redisAddr, redisDB)
		if err == nil {
			defer closeFn()
			err = sessions.Refresh(ctx, user)
		}
		if err != nil {
			return fmt.Errorf("%s updated but live sessions keep the old identity until they expire: %w", user.FullName, err)
		}
		return nil
	}

	root.AddCommand(
		newMigrateCmd(withStore),
		newCreateAdminCmd(withStore),
		newVerifyUserCmd(withStore, refresh),
		newSetRoleCmd(withStore, refresh),
	)
	return root
}

type storeRunner func(*cobra.Command, func(context.Context, storage.UserStore) error) error

type sessionRefresh func(context.Context, storage.UserStore, models.User) error

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return n
}

// Opening the store applies migrations, so migrate only has to connect.
func newMigrateCmd(withStore storeRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(context.Context, storage.UserStore) error {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	}
}

func newCreateAdminCmd(withStore storeRunner) *cobra.Command {
	var name, phone, pin string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a verified staff account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(name) == "" {
				return errors.New("--name is required")
			}
			if err := auth.ValidatePhone(phone); err != nil {
				return err
			}
			if err := auth.ValidatePIN(pin); err != nil {
				return err
			}
			hash, err := auth.HashPIN(pin)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, users storage.UserStore) error {
				created, err := users.CreateUser(ctx, models.User{
					FullName:    strings.TrimSpace(name),
					PhoneNumber: phone,
					PINHash:     hash,
					Role:        models.RoleAdmin,
					Verified:    true,
				})
				if errors.Is(err, storage.ErrAlreadyExists) {
					return fmt.Errorf("phone number %s already registered", phone)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %s)\n", created.FullName, created.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&phone, "phone", "", "8-digit phone number")
	cmd.Flags().StringVar(&pin, "pin", "", "4-digit PIN")
	return cmd
}

func newVerifyUserCmd(withStore storeRunner, refresh sessionRefresh) *cobra.Command {
	var phone string
	cmd := &cobra.Command{
		Use:   "verify-user",
		Short: "Mark a registered member as verified",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := auth.ValidatePhone(phone); err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, users storage.UserStore) error {
				user, err := users.FindByPhone(ctx, phone)
				if err != nil {
					return fmt.Errorf("find %s: %w", phone, err)
				}
				if user.Verified {
					fmt.Fprintf(cmd.OutOrStdout(), "%s is already verified\n", user.FullName)
					return nil
				}
				verified, err := users.VerifyUser(ctx, user.ID, user.Version)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s verified\n", user.FullName)
				return refresh(ctx, users, verified)
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "8-digit phone number")
	return cmd
}

func newSetRoleCmd(withStore storeRunner, refresh sessionRefresh) *cobra.Command {
	var phone, role string
	cmd := &cobra.Command{
		Use:   "set-role",
		Short: "Grant or revoke staff access",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !models.ValidRole(role) {
				return fmt.Errorf("role must be %q or %q", models.RoleUser, models.RoleAdmin)
			}
			return withStore(cmd, func(ctx context.Context, users storage.UserStore) error {
				user, err := users.FindByPhone(ctx, phone)
				if err != nil {
					return fmt.Errorf("find %s: %w", phone, err)
				}
				updated, err := users.SetRole(ctx, user.ID, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", updated.FullName, updated.Role)
				return refresh(ctx, users, updated)
			})
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "8-digit phone number")
	cmd.Flags().StringVar(&role, "role", models.RoleAdmin, "user or admin")
	return cmd
}
