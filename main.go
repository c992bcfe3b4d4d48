package main

import (
	"context"
	"flag"
	"fmt"
	"helo/internal/back"
	"helo/internal/boltstore"
	"helo/internal/config"
	"helo/internal/locker"
	"helo/internal/rating"
	"helo/internal/sqlstore"
	"helo/internal/util"
	"io"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Version holds the build-time version string.
var Version = "unknown" // nolint:gochecknoglobals

const migrationsURL = "file://resources/migrations"

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	flag.Parse()

	conf, err := config.NewFromUserConfigDir()
	if err != nil {
		log.Fatal(err)
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("invalid configuration: %s", err)
	}
	level, _ := log.ParseLevel(conf.LogLevel)
	log.SetLevel(level)

	switch flag.Arg(0) {
	case "version":
		fmt.Fprintf(os.Stdout, "HeLO %s\n", Version)
	case "help":
		fmt.Fprint(os.Stdout, help())
	case "config:write":
		err = conf.Write()
	case "migrate":
		err = migrate(conf)
	case "serve":
		err = withBack(conf, serve(conf))
	case "dev:fixtures":
		err = withBack(conf, loadFixtures)
	case "confirm":
		err = withBack(conf, confirm(flag.Arg(1)))
	case "recalc":
		err = withBack(conf, recalculate(flag.Arg(1)))
	case "simulate":
		err = withBack(conf, simulate(flag.Args()[1:]))
	default:
		fmt.Fprint(os.Stderr, help())
		os.Exit(1)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func help() string {
	return fmt.Sprintf(`
HeLO rates Hell Let Loose clans from their competitive match results.

Usage: %[1]s COMMAND [ARGS…]

COMMANDS
    config:write          write the current configuration to the user config dir
    confirm MATCHID       post a match confirmed by both sides
    dev:fixtures          create default data for quick testing during development
    help                  display this help
    migrate               apply the SQLite migrations
    recalc [MATCHID]      recalculate a match and its successors, or every flagged match
    serve                 start the HTTP API, the Discord bot, and the recalculation dæmon
    simulate TAGS TAGS P1 P2
                          preview a match, eg. %[1]s simulate StDb,CoRe 91st 5 0
    version               display the current version

ENVIRONMENT
    HELO_DB, HELO_STORAGE, HELO_REDIS_ADDR, HELO_RULESET, HELO_WEB_ADDR,
    HELO_LOG_LEVEL, HELO_DISCORD_TOKEN, HELO_DISCORD_ADMIN_IDS,
    HELO_DISCORD_LISTEN_IDS override the configuration file, a .env file in
    the working directory is read too.
`,
		os.Args[0],
	)
}

func migrate(conf *config.Config) error {
	if conf.Storage != config.StorageSQLite {
		log.Infof("nothing to migrate for storage %q", conf.Storage)
		return nil
	}

	return sqlstore.Migrate(migrationsURL, conf.DB)
}

// openStore opens the configured storage, migrating it first if needed.
func openStore(conf *config.Config) (back.Store, io.Closer, error) {
	switch conf.Storage {
	case config.StorageBolt:
		store, err := boltstore.Open(conf.DB)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		if err := migrate(conf); err != nil {
			return nil, nil, err
		}
		store, err := sqlstore.Open(conf.DB)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	}
}

func newLocker(conf *config.Config) back.Locker {
	if conf.RedisAddr == "" {
		return locker.NewMemory()
	}

	log.Infof("using Redis locks on %s", conf.RedisAddr)
	return locker.NewRedis(redis.NewClient(&redis.Options{Addr: conf.RedisAddr}), locker.DefaultTTL)
}

func withBack(conf *config.Config, cb func(*back.Back) error) error {
	store, closer, err := openStore(conf)
	if err != nil {
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			log.Errorf("unable to close storage: %s", err)
		}
	}()

	rules, err := rating.RulesetByName(conf.Ruleset)
	if err != nil {
		return err
	}

	return cb(back.New(store, newLocker(conf), rules))
}

func confirm(arg string) func(*back.Back) error {
	return func(b *back.Back) error {
		id, err := util.ParseUUIDAsBlob(arg)
		if err != nil {
			return fmt.Errorf("invalid match ID %q: %w", arg, err)
		}

		return b.ConfirmMatch(context.Background(), id)
	}
}

func recalculate(arg string) func(*back.Back) error {
	return func(b *back.Back) error {
		ctx := context.Background()
		if arg == "" {
			n, err := b.RecalculatePending(ctx)
			log.WithField("count", n).Info("recalculated flagged matches")
			return err
		}

		id, err := util.ParseUUIDAsBlob(arg)
		if err != nil {
			return fmt.Errorf("invalid match ID %q: %w", arg, err)
		}

		report, err := b.TriggerRecalculation(ctx, id)
		if err != nil {
			return err
		}

		for _, v := range report.Affected {
			entity, err := b.GetEntity(ctx, v)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s\t%d\t%d\n", entity.Tag, entity.Rating, entity.MatchCount)
		}

		return nil
	}
}

func simulate(args []string) func(*back.Back) error {
	return func(b *back.Back) error {
		if len(args) != 4 {
			return fmt.Errorf("expected 4 arguments: TAGS TAGS P1 P2, got %d", len(args))
		}

		req := back.SimulationRequest{
			Side1: util.SplitList(args[0]),
			Side2: util.SplitList(args[1]),
		}
		var err error
		if req.Points1, err = strconv.Atoi(args[2]); err != nil {
			return err
		}
		if req.Points2, err = strconv.Atoi(args[3]); err != nil {
			return err
		}

		sim, err := b.Simulate(context.Background(), req)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "P(side 1) = %.3f\tP(side 2) = %.3f\n", sim.Probability1, sim.Probability2)
		for k, v := range sim.Side1 {
			fmt.Fprintf(os.Stdout, "%s\t%d\t%s\n", v.Tag, sim.Ratings1[k], util.FormatDelta(sim.Deltas1[k]))
		}
		for k, v := range sim.Side2 {
			fmt.Fprintf(os.Stdout, "%s\t%d\t%s\n", v.Tag, sim.Ratings2[k], util.FormatDelta(sim.Deltas2[k]))
		}

		return nil
	}
}
