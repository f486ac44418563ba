package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/andrewpaige1/doomdeck-api/models"
)

func newChatsCommand(ctx *commandContext) *cobra.Command {
	var userID string
	var limit int

	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List a user's saved chats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			db, err := ctx.database()
			if err != nil {
				return err
			}

			var chats []models.Chat
			if err := db.WithContext(cmd.Context()).
				Preload("Flashcards").
				Where("user_id = ?", userID).
				Order("created_at DESC").
				Limit(limit).
				Find(&chats).Error; err != nil {
				return fmt.Errorf("load chats: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(chats) == 0 {
				fmt.Fprintln(out, "No chats")
				return nil
			}

			rows := make([][]string, 0, len(chats))
			for _, chat := range chats {
				rows = append(rows, []string{
					chat.PublicID,
					chat.Title,
					strconv.Itoa(len(chat.Flashcards)),
					chat.SubjectID,
					humanize.Time(chat.CreatedAt),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Title", "Cards", "Subject", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "Owner user id")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum chats to list")

	return cmd
}
