package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Dashboard is the signed-in screen. A session watcher runs while the
// screen is open; a sign-out happening anywhere (another command, a revoked
// token) returns the user to the command loop.
func (a *App) Dashboard(ctx context.Context) {
	dashCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signedOut := make(chan struct{}, 1)
	sub := a.bootstrapper.Watch(dashCtx, func() {
		select {
		case signedOut <- struct{}{}:
		default:
		}
	})
	defer sub.Unsubscribe()

	profile, err := a.client.ProfileByUserID(dashCtx, a.current.User.ID)
	if err != nil {
		fmt.Printf("error loading profile: %v\n", err)
		return
	}

	fmt.Printf("Hi %s! Level %d, %d charms\n", profile.Username, profile.Level, profile.Charms)
	if profile.AvatarURL != "" {
		fmt.Printf("Avatar: %s\n", profile.AvatarURL)
	}

	scanner := bufio.NewScanner(os.Stdin)

	for {
		select {
		case <-signedOut:
			fmt.Println("Session ended")
			a.current = nil
			return
		default:
		}

		fmt.Printf("sparkle %s> ", a.getStatus())
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			fmt.Println("Available commands: profile, logout, back")
		case "profile":
			p, err := a.client.ProfileByUserID(dashCtx, a.current.User.ID)
			if err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("Username: %s\nEmail: %s\nLevel: %d\nCharms: %d\nFingerprint: %v\n",
				p.Username, p.Email, p.Level, p.Charms, p.FingerprintEnabled)
		case "logout":
			a.Logout(dashCtx)
			return
		case "back", "exit":
			return
		default:
			fmt.Println("Unknown command:", parts[0])
		}
	}
}
