package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrewpaige1/doomdeck-api/auth"
)

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var req auth.TokenRequest

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an HS256 development token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if req.Audience == "" {
				req.Audience = env.Auth.Audience
			}
			token, err := auth.CreateToken(env.Auth.JWTSecret, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Subject, "subject", "dev|local", "Token subject (user id)")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email claim")
	cmd.Flags().StringVar(&req.Nickname, "nickname", "", "Nickname claim")
	cmd.Flags().StringVar(&req.Audience, "audience", "", "Audience claim (defaults to AUTH0_AUDIENCE)")
	cmd.Flags().DurationVar(&req.TTL, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
