package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"ratingsite/config"
	"ratingsite/db"
	"ratingsite/logging"
	"ratingsite/services"
)

type options struct {
	configPath string
	sqliteDSN  string
	users      int
	friends    int
	workers    int
	verbose    bool
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "config.yaml", "Path to the configuration file")
	flag.StringVar(&o.sqliteDSN, "sqlite", "", "SQLite DSN, overrides postgres from config")
	flag.IntVar(&o.users, "users", 1000, "Number of users to generate")
	flag.IntVar(&o.friends, "friends", 10, "Friend edges per user")
	flag.IntVar(&o.workers, "workers", 5, "Concurrent registrations")
	flag.BoolVar(&o.verbose, "v", false, "Debug logging")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	level := "info"
	if opts.verbose {
		level = "debug"
	}
	log, err := logging.Init(logging.Config{Level: level, Dev: true})
	if err != nil {
		panic("Failed to init logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err = seed(ctx, opts, log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func openStore(opts options, log *zap.Logger) (*db.Store, string, error) {
	if opts.sqliteDSN != "" {
		store, err := db.OpenSQLite(opts.sqliteDSN)
		return store, "seed", err
	}
	conf, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, "", err
	}
	store, err := db.ConnectDB(conf, log)
	return store, conf.JWT.Secret, err
}

func seed(ctx context.Context, opts options, log *zap.Logger) error {
	store, secret, err := openStore(opts, log)
	if err != nil {
		return err
	}
	defer store.Close()

	creds := services.NewCredentials(secret, 0)
	users := services.NewUserService(store, creds, log)
	friends := services.NewFriendService(store, users, nil, services.LocalPublisher{}, log)

	ids := registerUsers(ctx, opts, users, creds, log)
	log.Info("users created", zap.Int("count", len(ids)))
	if len(ids) < 2 {
		return nil
	}

	edges := 0
	for _, owner := range ids {
		for i := 0; i < opts.friends; i++ {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			target := ids[gofakeit.IntN(len(ids))]
			if target == owner {
				continue
			}
			if err = friends.AddFriend(ctx, owner, &target); err != nil {
				if errors.Is(err, services.ErrFriendAlreadyAdded) {
					continue
				}
				return err
			}
			edges++
			// половина связей становится взаимной
			if gofakeit.Bool() {
				if err = friends.AddFriend(ctx, target, &owner); err == nil {
					edges++
				} else if !errors.Is(err, services.ErrFriendAlreadyAdded) {
					return err
				}
			}
		}
	}
	log.Info("friend edges created", zap.Int("count", edges))
	return nil
}

func registerUsers(ctx context.Context, opts options, users *services.UserService, creds *services.Credentials, log *zap.Logger) []int64 {
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make([]int64, 0, opts.users)
		sem = make(chan struct{}, max(opts.workers, 1))
	)

	for i := 0; i < opts.users && ctx.Err() == nil; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			data := fakeProfile()
			token, err := users.Register(ctx, data)
			if err != nil {
				// коллизии никнеймов и имена с апострофами просто пропускаем
				log.Debug("profile skipped", zap.String("nickname", data.Nickname), zap.Error(err))
				return
			}
			claims, ok := creds.VerifyToken(token)
			if !ok {
				return
			}
			mu.Lock()
			ids = append(ids, claims.ID)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return ids
}

func fakeProfile() services.RegistrationData {
	name := gofakeit.FirstName()
	nickname := fmt.Sprintf("%s_%s", strings.ToLower(name), gofakeit.Numerify("######"))
	password := fmt.Sprintf("%s%s%d!",
		strings.ToUpper(gofakeit.Letter()),
		strings.ToLower(gofakeit.LetterN(5)),
		gofakeit.Number(10, 99))

	return services.RegistrationData{
		Nickname:  nickname,
		Email:     nickname + "@" + gofakeit.DomainName(),
		Password1: password,
		Password2: password,
		FirstName: name,
		LastName:  gofakeit.LastName(),
	}
}
