package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/andrewpaige1/doomdeck-api/models"
	"github.com/andrewpaige1/doomdeck-api/viewer"
)

const playHelp = "keys: [enter|n] next  [p] prev  [m] mute  [s] pause  [q] quit"

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var perWord time.Duration
	var auto bool

	cmd := &cobra.Command{
		Use:   "play <chatID>",
		Short: "Step through a saved chat with narration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			db, err := ctx.database()
			if err != nil {
				return err
			}

			var chat models.Chat
			if err := db.WithContext(cmd.Context()).
				Preload("Flashcards", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
				Where("public_id = ?", args[0]).
				First(&chat).Error; err != nil {
				return fmt.Errorf("load chat %s: %w", args[0], err)
			}
			if len(chat.Flashcards) == 0 {
				return fmt.Errorf("chat %s has no flashcards", args[0])
			}

			videos := viewer.NewVideoPool(env.VideoDir, nil)
			if err := videos.Load(); err != nil {
				slog.Debug("play: background videos unavailable", "error", err)
				videos = nil
			}

			out := cmd.OutOrStdout()
			prefs := viewer.NewPreferences()
			narrator := viewer.NewNarrator(viewer.NewTextSpeaker(out, perWord), prefs, viewer.DefaultBackDelay)
			snapper := viewer.NewSnapper(chat.Flashcards, narrator, videos)

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			defer narrator.Stop()

			fmt.Fprintf(out, "%s (%d cards)\n%s\n", chat.Title, snapper.Len(), playHelp)
			return runPlayer(runCtx, cmd.InOrStdin(), out, snapper, prefs, auto)
		},
	}

	cmd.Flags().DurationVar(&perWord, "per-word", 250*time.Millisecond, "Narration time per word")
	cmd.Flags().BoolVar(&auto, "auto", false, "Advance when a card's narration ends")

	return cmd
}

func runPlayer(ctx context.Context, in io.Reader, out io.Writer, snapper *viewer.Snapper, prefs *viewer.Preferences, auto bool) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	show := func(done <-chan struct{}) <-chan struct{} {
		i, card, _ := snapper.Current()
		fmt.Fprintf(out, "\n[%d/%d] %s\n", i+1, snapper.Len(), card.Type)
		if video, ok := snapper.Backdrop(); ok {
			fmt.Fprintf(out, "  backdrop: %s\n", video.Path)
		}
		if card.Type == models.CardTypeVideo {
			fmt.Fprintf(out, "  video: %s\n", card.VideoURL)
		}
		fmt.Fprintf(out, "  Q: %s\n  A: %s\n", card.Front, card.Back)
		return done
	}

	done, err := snapper.Show(ctx, 0)
	if err != nil {
		return err
	}
	done = show(done)

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-done:
			done = nil
			if !auto {
				continue
			}
			next, ok := snapper.Next(ctx)
			if !ok {
				return nil
			}
			done = show(next)

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			switch strings.TrimSpace(line) {
			case "", "n":
				if next, ok := snapper.Next(ctx); ok {
					done = show(next)
				} else {
					fmt.Fprintln(out, "end of chat")
				}
			case "p":
				if prev, ok := snapper.Prev(ctx); ok {
					done = show(prev)
				}
			case "m":
				prefs.ToggleMute()
				fmt.Fprintf(out, "muted: %t\n", prefs.State().Muted)
			case "s":
				prefs.TogglePause()
				fmt.Fprintf(out, "paused: %t\n", prefs.State().Paused)
			case "q":
				return nil
			default:
				fmt.Fprintln(out, playHelp)
			}
		}
	}
}
