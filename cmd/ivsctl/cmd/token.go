package cmd

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/xbanchon/image-variant-service/internal/auth"
	"github.com/xbanchon/image-variant-service/internal/env"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mints a bearer token accepted by POST /images",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, err := cmd.Flags().GetString("subject")
		if err != nil {
			return fmt.Errorf("failed to get subject: %w", err)
		}
		ttl, err := cmd.Flags().GetDuration("ttl")
		if err != nil {
			return fmt.Errorf("failed to get ttl: %w", err)
		}

		token, err := newToken(
			env.GetString("AUTH_SECRET", "ivs"),
			env.GetString("AUTH_AUDIENCE", "image-variants"),
			env.GetString("AUTH_ISSUER", "image-variants"),
			subject,
			ttl,
			time.Now(),
		)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func newToken(secret, aud, iss, subject string, ttl time.Duration, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": subject,
		"exp": now.Add(ttl).Unix(),
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"iss": iss,
		"aud": aud,
	}

	return auth.NewJWTAuth(secret, aud, iss).GenerateToken(claims)
}

func init() {
	tokenCmd.Flags().String("subject", "uploader", "token subject, logged with every upload")
	tokenCmd.Flags().Duration("ttl", time.Hour, "token lifetime")
}
