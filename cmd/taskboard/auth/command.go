package auth

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/openkcm/taskboard-client/internal/business"
	"github.com/openkcm/taskboard-client/internal/cmdutils"
	"github.com/openkcm/taskboard-client/pkg/session"
)

// passwordEnv is read when --password is not given.
const passwordEnv = "TASKBOARD_PASSWORD"

func Cmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the login session",
	}

	cmd.AddCommand(
		loginCmd(buildInfo, out),
		signupCmd(buildInfo),
		logoutCmd(buildInfo),
		refreshCmd(buildInfo, out),
		statusCmd(buildInfo, out),
	)

	return cmd
}

func loginCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	var creds session.Credentials

	cmd := cmdutils.CobraCommand(
		"login",
		"Log in and store the session",
		"Exchanges email and password for a token pair and stores it in the configured token store.",
		buildInfo,
		cmdutils.RunAsJob,
		business.WithApp(func(ctx context.Context, app *business.App) error {
			password, err := resolvePassword(creds.Password)
			if err != nil {
				return err
			}

			status, err := app.Login(ctx, session.Credentials{Email: creds.Email, Password: password})
			if err != nil {
				return err
			}

			return out.Print(status)
		}),
	)

	cmd.Flags().StringVar(&creds.Email, "email", "", "account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "account password, defaults to $"+passwordEnv)
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func signupCmd(buildInfo string) *cobra.Command {
	var reg session.Registration

	cmd := cmdutils.CobraCommand(
		"signup",
		"Create an account",
		"Registers a new account. Log in afterwards to start a session.",
		buildInfo,
		cmdutils.RunAsJob,
		business.WithApp(func(ctx context.Context, app *business.App) error {
			password, err := resolvePassword(reg.Password)
			if err != nil {
				return err
			}
			reg.Password = password

			return app.Session.Signup(ctx, reg)
		}),
	)

	cmd.Flags().StringVar(&reg.Email, "email", "", "account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "account password, defaults to $"+passwordEnv)
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "last name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")

	return cmd
}

func logoutCmd(buildInfo string) *cobra.Command {
	return cmdutils.CobraCommand(
		"logout",
		"Log out and clear the session",
		"Revokes the session on the server when possible and always clears the local tokens.",
		buildInfo,
		cmdutils.RunAsJob,
		business.WithApp(func(ctx context.Context, app *business.App) error {
			return app.Session.Logout(ctx)
		}),
	)
}

func refreshCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	return cmdutils.CobraCommand(
		"refresh",
		"Refresh the stored tokens",
		"Trades the stored refresh token for a new token pair. A rejected refresh token ends the session.",
		buildInfo,
		cmdutils.RunAsJob,
		business.WithApp(func(ctx context.Context, app *business.App) error {
			status, err := app.Refresh(ctx)
			if err != nil {
				return err
			}

			return out.Print(status)
		}),
	)
}

func statusCmd(buildInfo string, out *cmdutils.Output) *cobra.Command {
	return cmdutils.CobraCommand(
		"status",
		"Show the local session",
		"Shows whether a session is stored, for whom and when its access token expires.",
		buildInfo,
		cmdutils.RunAsJob,
		business.WithApp(func(ctx context.Context, app *business.App) error {
			status, err := app.Status(ctx)
			if err != nil {
				return err
			}

			return out.Print(status)
		}),
	)
}

func resolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if password := os.Getenv(passwordEnv); password != "" {
		return password, nil
	}

	return "", errors.New("password is required, use --password or $" + passwordEnv)
}
