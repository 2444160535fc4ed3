// Command boardcheck validates a board definition file and prints its color
// groups and card decks.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/adamnnoli/monopoly/internal/game/board"
	"github.com/adamnnoli/monopoly/internal/game/cards"
	"github.com/adamnnoli/monopoly/internal/game/engine"
)

func main() {
	_ = godotenv.Load()

	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "boardcheck: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "boardcheck",
		Usage:     "validate a board definition file",
		ArgsUsage: "[board.yaml]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "go-salary",
				Value: int64(engine.DefaultRules().GoSalary),
				Usage: "salary bound into card effects",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return check(cmd.Writer, cmd.Args().First(), int(cmd.Int("go-salary")))
		},
	}
}

// check loads path (the embedded board when empty), binds every card to its
// effect and prints a summary
func check(w io.Writer, path string, goSalary int) error {
	def, err := board.LoadDefinitions(path)
	if err != nil {
		return err
	}
	b, err := board.New(def.Tiles)
	if err != nil {
		return err
	}
	decks, err := cards.NewDecks(def, cards.DefaultEffects(goSalary))
	if err != nil {
		return err
	}

	source := path
	if source == "" {
		source = "built-in board"
	}
	fmt.Fprintf(w, "%s: %d tiles\n", source, b.Len())

	for _, group := range b.Groups() {
		var names []string
		for _, id := range b.GroupTileIDs(group) {
			tile, err := b.Tile(id)
			if err != nil {
				return err
			}
			names = append(names, tile.Name)
		}
		fmt.Fprintf(w, "  %-10s %s\n", group, strings.Join(names, ", "))
	}

	for _, deck := range []*cards.Deck{decks.Chance, decks.CommunityChest} {
		fmt.Fprintf(w, "%s: %d cards\n", deck.Name(), deck.Len())
	}
	return nil
}
