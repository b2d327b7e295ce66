package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/proloapp/sparkle/internal/client/session"
)

func (a *App) getStatus() string {
	if a.current == nil {
		return ""
	}
	return fmt.Sprintf("(%s)", a.current.User.Username)
}

// Root checks the stored session and then runs the command loop.
func (a *App) Root(ctx context.Context) {
	fmt.Println("Welcome to Sparkle CLI (type 'help' for commands)")

	state, route := a.bootstrapper.Check(ctx)
	if state == session.StateAuthenticated && route == session.RouteDashboard {
		s, err := a.client.CurrentSession(ctx)
		if err == nil && s != nil {
			a.current = s
			a.Dashboard(ctx)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Printf("sparkle %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: dashboard, logout, exit")
			} else {
				fmt.Println("Available commands: login, fingerprint, register, reset, exit")
			}

		case "login":
			a.Login(ctx)
		case "fingerprint":
			a.FingerprintLogin(ctx)
		case "register":
			a.Register(ctx)
		case "reset":
			a.ResetPassword(ctx)
		case "dashboard":
			if a.isLoggedIn() {
				a.Dashboard(ctx)
			} else {
				fmt.Println("Not logged in")
			}
		case "logout":
			a.Logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}
