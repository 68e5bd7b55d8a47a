// Command notifier logs in to the community API and prints notifications as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Campus_Community/internal/logging"
	"Campus_Community/internal/model"
	"Campus_Community/internal/poller"
)

func main() {
	var (
		baseURL  = flag.String("api", envOr("CAMPUS_API_URL", "http://127.0.0.1:8080"), "community API base URL")
		username = flag.String("user", os.Getenv("CAMPUS_USERNAME"), "username or email")
		password = flag.String("password", os.Getenv("CAMPUS_PASSWORD"), "password")
		interval = flag.Duration("interval", 15*time.Second, "poll interval (1s to 5m)")
		level    = flag.String("log-level", "info", "debug, info, warn or error")
	)
	flag.Parse()

	closeLog, err := logging.Init("", *level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()
	if *username == "" || *password == "" {
		logging.Log.Fatal().Msg("-user and -password are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := poller.NewClient(*baseURL, nil)
	if err = client.Login(ctx, *username, *password); err != nil {
		logging.Log.Fatal().Err(err).Msg("login failed")
	}

	logout := make(chan string, 1)
	p := poller.New(client, func(msg model.PollMessage) {
		switch msg.Type {
		case model.MsgNewNotifications:
			for _, n := range msg.Notifications {
				printNotification(n)
			}
		case model.MsgForceLogout:
			select {
			case logout <- msg.Reason:
			default:
			}
		}
	}, *interval)
	p.Start(ctx)
	logging.Log.Info().Str("api", *baseURL).Dur("interval", *interval).Msg("waiting for notifications")

	select {
	case <-ctx.Done():
		p.Stop()
	case reason := <-logout:
		fmt.Printf("logged out by server: account banned %s\n", reason)
		os.Exit(2)
	}
}

func printNotification(n model.Notification) {
	fmt.Printf("[%s] %s: %s\n", n.CreatedAt.Format(time.DateTime), n.Title, n.Message)
	if n.Link != "" {
		fmt.Printf("    %s\n", n.Link)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
