// Command logtail prints the log feed a server keeps in redis for one game,
// optionally following new entries as they are published.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	redisdb "github.com/adamnnoli/monopoly/internal/db/redis"
	"github.com/adamnnoli/monopoly/internal/queue"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "logtail: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "logtail",
		Usage:     "print the log feed of a game",
		ArgsUsage: "<gameId>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "redis",
				Value:   "localhost:6379",
				Usage:   "redis address",
				Sources: cli.EnvVars("MONOPOLY_REDIS_URI"),
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "redis password",
				Sources: cli.EnvVars("MONOPOLY_REDIS_PASSWORD"),
			},
			&cli.IntFlag{
				Name:    "db",
				Usage:   "redis database",
				Sources: cli.EnvVars("MONOPOLY_REDIS_DB"),
			},
			&cli.BoolFlag{
				Name:    "follow",
				Aliases: []string{"f"},
				Usage:   "keep printing entries as they are published",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			gameID := cmd.Args().First()
			if gameID == "" {
				return errors.New("missing game id")
			}

			client, err := redisdb.Connect(ctx, redisdb.Options{
				Addr:     cmd.String("redis"),
				Password: cmd.String("password"),
				DB:       int(cmd.Int("db")),
			}, zap.NewNop().Sugar())
			if err != nil {
				return err
			}
			feed := queue.NewRedisQueue(client, zap.NewNop())
			defer feed.Close()

			return tail(ctx, cmd.Writer, feed, gameID, cmd.Bool("follow"))
		},
	}
}

// tail prints the stored feed and, when follow is set, every later batch
// until ctx ends. The subscription is opened before the replay so no batch
// falls between the two; entries already printed are skipped by seq.
func tail(ctx context.Context, w io.Writer, feed *queue.RedisQueue, gameID string, follow bool) error {
	if !follow {
		entries, err := feed.Replay(ctx, gameID)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			printEntry(w, entry)
		}
		return nil
	}

	sub := feed.Subscribe(ctx, gameID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	entries, err := feed.Replay(ctx, gameID)
	if err != nil {
		return err
	}
	var last int64
	for _, entry := range entries {
		printEntry(w, entry)
		last = entry.Seq
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			batch, err := queue.DecodeBatch(msg.Payload)
			if err != nil {
				fmt.Fprintf(w, "skipping batch: %v\n", err)
				continue
			}
			for _, entry := range batch {
				if entry.Seq <= last {
					continue
				}
				printEntry(w, entry)
				last = entry.Seq
			}
		}
	}
}

func printEntry(w io.Writer, entry queue.FeedEntry) {
	if entry.Failed() {
		fmt.Fprintf(w, "#%d [%s] %s (%s)\n", entry.Seq, entry.Category, entry.Message, entry.Reason)
		return
	}
	fmt.Fprintf(w, "#%d [%s] %s\n", entry.Seq, entry.Category, entry.Message)
}
