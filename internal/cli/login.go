package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/libraryhub/internal/domain"
	"github.com/mmcdole/libraryhub/internal/library"
)

// loginTimeout bounds the whole login exchange
const loginTimeout = 30 * time.Second

// NewLoginCommand creates the login command.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Long: `Sign in to the library service with an admin account.

The token is stored in the session database so the console starts
signed in. The password is read without echo when stdin is a terminal.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, email)
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "admin email (prompted when empty)")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *RootOptions, email string) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if email == "" {
		fmt.Fprint(out, "Email: ")
		email, err = readLine(in)
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}
	if email == "" {
		return errors.New("email cannot be empty")
	}

	fmt.Fprint(out, "Password: ")
	password, err := readPassword(cmd.InOrStdin(), in)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), loginTimeout)
	defer cancel()

	sess := library.NewSessionService(e.client, e.tokens, nil, e.logger)
	if err := sess.Login(ctx, email, password); err != nil {
		switch {
		case errors.Is(err, domain.ErrAuthFailed):
			return errors.New("invalid email or password")
		case errors.Is(err, domain.ErrServerOffline):
			return fmt.Errorf("cannot reach %s", e.cfg.Server.URL)
		}
		return err
	}

	fmt.Fprintf(out, "✓ Logged in as %s\n", email)
	return nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo from a terminal, or a plain line otherwise
func readPassword(src io.Reader, buffered *bufio.Reader) (string, error) {
	if f, ok := src.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return readLine(buffered)
}
