// Demo wires the Redis engine, the User repository and structured logging
// together and walks through the full aggregate lifecycle: add, read,
// remove, and the error paths of the strict read.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/eventfold/aggregates-go/aggregates"
	"github.com/eventfold/aggregates-go/aggregates/redisengine"
	"github.com/eventfold/aggregates-go/example/shared/core"
	"github.com/eventfold/aggregates-go/example/shared/shell/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := context.Background()

	cfg, cfgErr := config.LoadRedisConfig()
	if cfgErr != nil {
		logger.Error("loading redis config failed", "error", cfgErr.Error())
		os.Exit(1)
	}

	client := config.NewRedisClient(cfg)
	defer func() { _ = client.Close() }()

	backend, backendErr := redisengine.New(
		client,
		redisengine.WithKeyPrefix(cfg.KeyPrefix),
		redisengine.WithLogger(logger),
	)
	if backendErr != nil {
		logger.Error("creating redis backend failed", "error", backendErr.Error())
		os.Exit(1)
	}

	repo, repoErr := aggregates.NewRepository[core.User](
		core.UserRoot{},
		core.UserAlias,
		backend,
		aggregates.WithLogger(logger),
	)
	if repoErr != nil {
		logger.Error("creating repository failed", "error", repoErr.Error())
		os.Exit(1)
	}

	created, addErr := repo.AddWithAuthor(ctx, core.UserAttributes{Email: "john@example.com"}, "demo")
	if addErr != nil {
		logger.Error("adding user failed", "error", addErr.Error())
		os.Exit(1)
	}
	logger.Info("user created", "id", created.AggregateID, "event", created.Name)

	user, getErr := repo.GetByID(ctx, created.AggregateID)
	if getErr != nil {
		logger.Error("getting user failed", "error", getErr.Error())
		os.Exit(1)
	}
	logger.Info("user loaded", "id", user.Meta.ID, "version", user.Meta.Version, "email", user.Email)

	all, findAllErr := repo.FindAll(ctx)
	if findAllErr != nil {
		logger.Error("listing users failed", "error", findAllErr.Error())
		os.Exit(1)
	}
	logger.Info("users listed", "count", len(all))

	removed, removeErr := repo.Remove(ctx, user)
	if removeErr != nil {
		logger.Error("removing user failed", "error", removeErr.Error())
		os.Exit(1)
	}
	logger.Info("user removed", "id", removed.AggregateID, "event", removed.Name)

	if _, _, err := repo.FindByID(ctx, user.Meta.ID); err != nil {
		logger.Error("soft lookup failed", "error", err.Error())
		os.Exit(1)
	}

	_, strictErr := repo.GetByID(ctx, user.Meta.ID)

	var deletedErr *aggregates.EntryDeletedError
	if errors.As(strictErr, &deletedErr) {
		lastKnown := deletedErr.Entry.(core.User)
		logger.Info("strict lookup reports deletion",
			"message", deletedErr.Error(),
			"last_known_email", lastKnown.Email,
		)
	}
}
