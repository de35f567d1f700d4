package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginUsername      string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the session token",
	Long: `Exchange a username and password for a token. The token is kept in
the session file and sent with every later request.

Examples:
  compere login --username alice
  echo "$PASSWORD" | compere login --username alice --password-stdin`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:     "whoami",
	Aliases: []string{"status"},
	Short:   "Show the signed-in user",
	RunE:    runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "username (prompted when empty)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "read the password from stdin")
}

func runLogin(cmd *cobra.Command, args []string) error {
	in := bufio.NewReader(os.Stdin)

	username := loginUsername
	if username == "" {
		fmt.Print("Username: ")
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read username: %w", err)
		}
		username = strings.TrimSpace(line)
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password, err := readPassword(in)
	if err != nil {
		return err
	}

	res := authStore.Login(cmd.Context(), username, password)
	if err := resultError(res); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if !authStore.IsAuthenticated() {
		return fmt.Errorf("login: token was rejected when loading the profile")
	}

	fmt.Println(defaultTheme.completedStyle().Render("✓ Signed in as " + username))
	return nil
}

func readPassword(in *bufio.Reader) (string, error) {
	fd := int(os.Stdin.Fd())
	if loginPasswordStdin || !term.IsTerminal(fd) {
		line, err := in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Print("Password: ")
	b, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	authStore.Logout()
	fmt.Println("Signed out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	if !authStore.IsAuthenticated() {
		fmt.Println("Not signed in.")
		return nil
	}

	res := authStore.FetchCurrentUser(cmd.Context())
	if err := resultError(res); err != nil {
		return fmt.Errorf("fetch profile: %w (session cleared)", err)
	}

	u := res.Data
	fmt.Printf("Signed in as %s\n", u.Username)
	if u.FullName != "" {
		fmt.Printf("  Name:   %s\n", u.FullName)
	}
	if u.Email != "" {
		fmt.Printf("  Email:  %s\n", u.Email)
	}
	if u.IsSuperuser {
		fmt.Println("  Role:   superuser")
	}
	if exp, ok := authStore.ExpiresAt(); ok {
		label := "expires"
		if authStore.Expired() {
			label = "expired"
		}
		fmt.Printf("  Token:  %s %s\n", label, humanize.Time(exp))
	}
	return nil
}
