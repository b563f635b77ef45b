package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/noah-isme/sma-adp-datatable/internal/client"
	"github.com/noah-isme/sma-adp-datatable/internal/models"
	"github.com/noah-isme/sma-adp-datatable/internal/ui/styles"
)

func newLoginCmd(a *app) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token for later commands",
		Long: `Store an API access token in the OS keyring. Without --token the token
is read from stdin, so it can be piped from a secrets manager.

The signature is checked by the API, not here; login only reads the
claims to show who the token belongs to.`,
		Example: `  smactl login --token eyJhbGciOi...
  pass show sma/token | smactl login`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no token given; pass --token or pipe it on stdin")
				}
				token = line
			}
			token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))

			claims, err := inspectToken(token)
			if err != nil {
				return err
			}
			if err := a.tokens.Set(token); err != nil {
				return fmt.Errorf("store token: %w", err)
			}
			who := claims.Email
			if who == "" {
				who = claims.UserID
			}
			msg := fmt.Sprintf("Logged in as %s (%s)", who, claims.Role)
			if claims.ExpiresAt != nil {
				msg += ", expires " + claims.ExpiresAt.Local().Format(time.RFC1123)
			}
			fmt.Fprintln(a.stdout, styles.SuccessMsg(msg))
			if ks, ok := a.tokens.(*client.KeyringStore); ok && ks.UsingFallback() {
				fmt.Fprintln(a.stderr, styles.WarningMsg("No keyring available; the token is kept for this process only. Set CONSOLE_TOKEN instead."))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "access token issued by the API")
	return cmd
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.tokens.Clear(); err != nil {
				return fmt.Errorf("clear token: %w", err)
			}
			fmt.Fprintln(a.stdout, styles.SuccessMsg("Logged out"))
			return nil
		},
	}
}

// inspectToken reads the claims of an access token without verifying its
// signature and rejects tokens that are already expired.
func inspectToken(token string) (*models.JWTClaims, error) {
	if token == "" {
		return nil, errors.New("empty token")
	}
	claims := &models.JWTClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("not a valid access token: %w", err)
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, fmt.Errorf("token expired at %s", claims.ExpiresAt.Local().Format(time.RFC1123))
	}
	return claims, nil
}
