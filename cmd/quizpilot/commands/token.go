package commands

import (
	"time"

	"quiz-pilot/internal/dto"
	"quiz-pilot/internal/service"

	"github.com/spf13/cobra"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "operator", "Token subject.")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to auth.token_ttl).")
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issues an operator JWT for the inspection endpoints.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		authService, err := service.NewAuthService(cfg)
		if err != nil {
			return err
		}

		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.Auth.TokenTTL
		}
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}

		token, err := authService.CreateJWT(cmd.Context(), tokenSubject, ttl)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int64(ttl.Seconds()),
		})
	},
}
