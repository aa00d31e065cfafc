package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-learner/internal/backend"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the LMS",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		in := bufio.NewReader(cmd.InOrStdin())
		out := cmd.OutOrStdout()
		if email == "" {
			email = prompt(in, out, "Email: ")
		}
		if password == "" {
			password = prompt(in, out, "Password: ")
		}
		if email == "" || password == "" {
			return errors.New("email and password are required")
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.client.Login(cmd.Context(), email, password)
		if errors.Is(err, backend.ErrUnauthorized) {
			return errors.New("invalid email or password")
		}
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		if err := a.sessions.Set(cmd.Context(), res.Token, res.User); err != nil {
			return fmt.Errorf("store session: %w", err)
		}
		sess, _ := a.sessions.Current()
		fmt.Fprintf(out, "Signed in as %s\n", displayName(sess.User.Name, sess.User.Email, sess.User.ID))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.sessions.Clear(cmd.Context()); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		out := cmd.OutOrStdout()
		sess, ok := a.sessions.Current()
		if !ok {
			fmt.Fprintln(out, "Not signed in.")
			return nil
		}
		u := sess.User
		fmt.Fprintf(out, "ID:      %s\n", u.ID)
		fmt.Fprintf(out, "Name:    %s\n", u.Name)
		fmt.Fprintf(out, "Email:   %s\n", u.Email)
		fmt.Fprintf(out, "Role:    %s\n", u.Role)
		if !sess.ExpiresAt.IsZero() {
			fmt.Fprintf(out, "Expires: %s (in %s)\n",
				sess.ExpiresAt.Local().Format("2006-01-02 15:04"), time.Until(sess.ExpiresAt).Round(time.Minute))
		}
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prompted when omitted)")
}

func prompt(in *bufio.Reader, out io.Writer, label string) string {
	fmt.Fprint(out, label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func displayName(parts ...string) string {
	for _, p := range parts {
		if p != "" {
			return p
		}
	}
	return "unknown user"
}
