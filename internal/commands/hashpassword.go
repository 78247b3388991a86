package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/klabast/wb-services/bildungszeit-finder/internal/app"
)

var errInterrupted = errors.New("interrupted")

func newHashPasswordCommand(g *globals) *cobra.Command {
	var overwrite, insecureUnmask bool

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Create the operator credentials file",
		Long: `Creates the auth file with a username and an Argon2id password hash.
The file protects POST /api/refresh. Its location comes from auth.file in
the config or the AUTH_FILE environment variable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			out := cmd.OutOrStdout()

			username, err := prompt(in, out, "Enter username: ")
			if err != nil {
				return fmt.Errorf("error reading username: %w", err)
			}
			if username == "" {
				return errors.New("username cannot be empty")
			}

			var password, confirm string
			if insecureUnmask {
				fmt.Fprintln(cmd.ErrOrStderr(), "WARNING: Password will be visible on screen!")
				if password, err = prompt(in, out, "Enter password:   "); err != nil {
					return fmt.Errorf("error reading password: %w", err)
				}
				if confirm, err = prompt(in, out, "Confirm password: "); err != nil {
					return fmt.Errorf("error reading password confirmation: %w", err)
				}
			} else {
				if password, err = readPasswordWithMask(out, "Enter password:   "); err != nil {
					return err
				}
				if confirm, err = readPasswordWithMask(out, "Confirm password: "); err != nil {
					return err
				}
			}

			if password == "" {
				return errors.New("password cannot be empty")
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}

			if err := app.CreateAuthFile(g.cfg.Auth.File, username, password, overwrite, in, out); err != nil {
				return err
			}
			// read back what serve will load
			auth, err := app.LoadAuthenticator(g.cfg.Auth.File, g.logger)
			if err != nil {
				return err
			}
			if !auth.Check(username, password) {
				return errors.New("written auth file does not accept the new password")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing auth file without asking")
	cmd.Flags().BoolVar(&insecureUnmask, "insecure-unmask-password", false, "Show password as plain text (INSECURE!)")
	return cmd
}

func prompt(in *bufio.Reader, out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPasswordWithMask reads a password from the terminal and echoes asterisks
func readPasswordWithMask(out io.Writer, label string) (string, error) {
	fmt.Fprint(out, label)
	fd := int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		// not a terminal we can switch, fall back to hidden input
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		return string(password), err
	}
	defer term.Restore(fd, oldState)

	var password []byte
	reader := bufio.NewReader(os.Stdin)
	for {
		char, _, err := reader.ReadRune()
		if err != nil {
			break
		}

		switch char {
		case '\n', '\r':
			fmt.Fprint(out, "\r\n")
			return string(password), nil
		case 127, 8: // backspace, delete
			if len(password) > 0 {
				password = password[:len(password)-1]
				fmt.Fprint(out, "\b \b")
			}
		case 3: // Ctrl+C
			fmt.Fprint(out, "\r\n")
			return "", errInterrupted
		default:
			if char >= 32 && char <= 126 {
				password = append(password, byte(char))
				fmt.Fprint(out, "*")
			}
		}
	}

	fmt.Fprint(out, "\r\n")
	return string(password), nil
}
