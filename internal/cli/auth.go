package cli

import (
	"context"
	"fmt"

	"github.com/joe/qfieldsync/internal/config"
)

func (r *Runner) login(ctx context.Context, cmd *config.LoginCmd) error {
	username := r.Config.Username
	if username == "" {
		username = r.Prefs.Values().LastUsername
	}

	if username == "" {
		answer, err := r.readLine("Username: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}

		username = answer
	}

	if username == "" {
		return ErrMissingUsername
	}

	password := cmd.Password
	if password == "" {
		fmt.Fprintf(r.Err, "Password for %s: ", username)

		answer, err := r.ReadPassword()
		fmt.Fprintln(r.Err)

		if err != nil {
			return err
		}

		password = answer
	}

	creds, err := r.Client.Login(ctx, username, password)
	if err != nil {
		return err
	}

	r.Client.SetToken(creds.Token)

	err = r.Prefs.SetCredentials(creds.Username, creds.Token)
	if err != nil {
		return err
	}

	err = r.Prefs.SetServerURL(r.Client.ServerURL())
	if err != nil {
		return err
	}

	r.Logger.Info().Str("user", creds.Username).Str("server", r.Client.ServerURL()).Msg("logged in")
	fmt.Fprintf(r.Out, "Logged in to %s as %s\n", r.Client.ServerURL(), creds.Username)

	return nil
}

func (r *Runner) logout(ctx context.Context) error {
	err := r.requireToken()
	if err != nil {
		return err
	}

	err = r.Client.Logout(ctx)
	if err != nil {
		return err
	}

	r.Client.SetToken("")

	err = r.Prefs.SetCredentials("", "")
	if err != nil {
		return err
	}

	r.Logger.Info().Msg("logged out")
	fmt.Fprintln(r.Out, "Logged out")

	return nil
}
