package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/opsdeck/opsdeck-backend/internal/gateway/inbox"
	"github.com/opsdeck/opsdeck-backend/pkg/cable"
	"github.com/opsdeck/opsdeck-backend/pkg/logging"
)

const profileFetchTimeout = 15 * time.Second

func main() {
	app := &cli.App{
		Name:  "cabletail",
		Usage: "Tail realtime inbox events on the command line",
		Description: "Connects to the inbox realtime channel and prints every event " +
			"as one JSON line on stdout. Connection status goes to stderr.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Usage: "websocket endpoint, e.g. wss://inbox.example.com/cable (derived from --inbox-url when empty)",
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "pubsub token (fetched from the inbox profile, or prompted for, when empty)",
			},
			&cli.StringFlag{
				Name:  "account",
				Usage: "account id the subscription is scoped to",
			},
			&cli.StringFlag{
				Name:  "inbox-url",
				Usage: "inbox base URL used to fetch the pubsub token from the profile",
			},
			&cli.StringFlag{
				Name:  "access-token",
				Usage: "inbox API access token (prompted for when empty and --inbox-url is set)",
			},
			&cli.BoolFlag{
				Name:  "raw",
				Usage: "print events exactly as they arrive, without the received_at stamp",
			},
		},
		Action: tailCable,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type tailLine struct {
	Event      string                 `json:"event"`
	Data       map[string]interface{} `json:"data"`
	ReceivedAt time.Time              `json:"received_at"`
}

func tailCable(c *cli.Context) error {
	url := c.String("url")
	if url == "" {
		url = inbox.CableURL(c.String("inbox-url"))
	}
	if url == "" {
		return cli.Exit("A cable URL is required, pass --url or --inbox-url", 1)
	}

	token := c.String("token")
	account := c.String("account")

	if token == "" && c.String("inbox-url") != "" {
		profile, err := fetchProfile(c)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to fetch inbox profile: %s", err), 1)
		}
		token = profile.PubsubToken
		if account == "" {
			account = strconv.Itoa(profile.AccountID)
		}
	}
	if token == "" {
		prompted, err := promptSecret("Pubsub token: ")
		if err != nil {
			return cli.Exit(fmt.Sprintf("Failed to read pubsub token: %s", err), 1)
		}
		token = prompted
	}
	if token == "" {
		return cli.Exit("A pubsub token is required, pass --token or --inbox-url", 1)
	}

	encoder := json.NewEncoder(os.Stdout)
	raw := c.Bool("raw")

	client := cable.NewClient(cable.Config{
		URL:         url,
		PubsubToken: token,
		AccountID:   account,
		Enabled:     true,
		OnEvent: func(event cable.Event) {
			if raw {
				_ = encoder.Encode(event)
				return
			}
			_ = encoder.Encode(tailLine{
				Event:      event.Name,
				Data:       event.Data,
				ReceivedAt: time.Now().UTC(),
			})
		},
		OnStatusChange: func(status cable.ConnectionStatus) {
			fmt.Fprintf(os.Stderr, "* %s\n", status)
		},
	})

	client.Connect()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	fmt.Fprintln(os.Stderr, "* disconnecting")
	client.Disconnect()
	return nil
}

func fetchProfile(c *cli.Context) (*inbox.Profile, error) {
	accessToken := c.String("access-token")
	if accessToken == "" {
		prompted, err := promptSecret("Inbox access token: ")
		if err != nil {
			return nil, err
		}
		accessToken = prompted
	}

	client, err := inbox.NewClient(logging.NewNoOpLogger(), inbox.Config{
		BaseURL:     c.String("inbox-url"),
		AccessToken: accessToken,
		AccountID:   c.String("account"),
	})
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), profileFetchTimeout)
	defer cancel()
	return client.FetchProfile(ctx)
}

// promptSecret reads a secret from the terminal without echoing it.
func promptSecret(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("stdin is not a terminal, pass the value as a flag")
	}
	fmt.Fprint(os.Stderr, prompt)
	secret, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
