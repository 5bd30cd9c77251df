package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sanath1188/insta-collections-insights/pkg/auth"
	"github.com/sanath1188/insta-collections-insights/pkg/ui"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage stored Instagram sessions",
		Long: `Store the cookie header of a logged-in browser session so collections can
be read without passing IG_COOKIES every time.

Sessions are kept in the system keychain when one is available and in an
encrypted file otherwise.`,
	}

	login := &cobra.Command{
		Use:   "login [account]",
		Short: "Store a session cookie header",
		Long: `Store a session for an account name (default "default").

Copy the cookie header from your browser's developer tools while logged in
to instagram.com: open any request to www.instagram.com in the Network tab
and copy the value of its Cookie request header. It must contain csrftoken
and sessionid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runLogin,
	}
	login.Flags().String("cookies", "", "cookie header (prompted with hidden input when omitted)")
	login.Flags().String("user-agent", "", "user agent to send with this session")

	cmd.AddCommand(
		login,
		&cobra.Command{
			Use:   "logout [account]",
			Short: "Remove a stored session",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runLogout,
		},
		&cobra.Command{
			Use:     "show",
			Aliases: []string{"list"},
			Short:   "List stored sessions with cookie values masked",
			Args:    cobra.NoArgs,
			RunE:    runShow,
		},
	)
	return cmd
}

// credentialManager is swapped in tests
var credentialManager = auth.NewManager

func accountArg(args []string) string {
	if len(args) > 0 && strings.TrimSpace(args[0]) != "" {
		return strings.TrimSpace(args[0])
	}
	return auth.DefaultAccount
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	name := accountArg(args)

	cookies, _ := cmd.Flags().GetString("cookies")
	if cookies == "" {
		fmt.Fprintf(ui.Output, "Cookie header for %s (input is hidden): ", name)
		cookies, err = readSecret(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read cookie header: %w", err)
		}
	}

	creds, err := auth.ParseCookieHeader(cookies)
	if err != nil {
		return err
	}
	if creds.SessionID == "" {
		ui.PrintWarning("No sessionid cookie found; requests will likely be rejected")
	}

	userAgent, _ := cmd.Flags().GetString("user-agent")
	account := &auth.Account{
		Name:      name,
		Cookies:   cookies,
		UserAgent: userAgent,
	}
	if err := manager.Store(account); err != nil {
		return err
	}

	ui.PrintSuccess("Session stored for account: " + name)
	if name != auth.DefaultAccount {
		fmt.Fprintf(ui.Output, "\nUse it with:\n  igcollect collect <collection-id> --account %s\n", name)
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	name := accountArg(args)
	if err := manager.Delete(name); err != nil {
		return err
	}
	ui.PrintSuccess("Session removed: " + name)
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	manager, err := credentialManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}
	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		ui.PrintInfo("No stored sessions", "use 'igcollect auth login' to add one")
		return nil
	}

	ui.PrintHighlight("Stored Sessions")
	for i, account := range accounts {
		masked := auth.SanitizeAccount(account)
		fmt.Fprintf(ui.Output, "\n%d. %s\n", i+1, masked.Name)
		fmt.Fprintf(ui.Output, "   Cookies: %s\n", masked.Cookies)
		if masked.UserAgent != "" {
			fmt.Fprintf(ui.Output, "   User Agent: %s\n", masked.UserAgent)
		}
		fmt.Fprintf(ui.Output, "   Last Modified: %s\n", masked.LastModified.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// readSecret reads one line without echo when in is a terminal
func readSecret(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(ui.Output)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
