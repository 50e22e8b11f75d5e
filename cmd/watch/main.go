// watch connects to a presence server, joins projects and prints every event
// it receives. Handy for poking at a running server by hand.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/dkeye/Presence/internal/auth"
	"github.com/dkeye/Presence/internal/client"
	"github.com/dkeye/Presence/internal/domain"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		url         string
		token       string
		signAs      string
		email       string
		projects    []string
		maxAttempts int
		delay       time.Duration
		maxDelay    time.Duration
		pingEvery   time.Duration
		readTimeout time.Duration
		verbose     bool
	)

	flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	flagSet.StringVar(&url, "url", "ws://localhost:8080/api/ws", "websocket endpoint")
	flagSet.StringVar(&token, "token", os.Getenv("PRESENCE_TOKEN"), "bearer token (default: $PRESENCE_TOKEN)")
	flagSet.StringVar(&signAs, "sign-as", "", "mint a token for this user id with PRESENCE_AUTH_SECRET instead of --token")
	flagSet.StringVar(&email, "email", "", "email claim used with --sign-as")
	flagSet.StringSliceVarP(&projects, "project", "p", nil, "project to join, repeatable")
	flagSet.IntVar(&maxAttempts, "max-retries", client.DefaultConfig().MaxReconnectAttempts, "reconnect attempts before giving up")
	flagSet.DurationVar(&delay, "retry-delay", client.DefaultConfig().ReconnectDelay, "initial reconnect delay")
	flagSet.DurationVar(&maxDelay, "retry-max-delay", client.DefaultConfig().ReconnectMaxDelay, "reconnect delay cap")
	flagSet.DurationVar(&readTimeout, "read-timeout", client.DefaultReadTimeout, "treat the server as gone after this long without any frame")
	flagSet.DurationVar(&pingEvery, "ping", 0, "send an application ping at this interval, 0 disables")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintln(os.Stderr, "usage: watch [flags]")
		flagSet.PrintDefaults()
		return nil
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if signAs != "" {
		cfg, err := auth.LoadConfigFromEnv(time.Now)
		if err != nil {
			return err
		}
		id, err := domain.NewIdentity(signAs, email, "")
		if err != nil {
			return err
		}
		if token, err = auth.Sign(cfg, id, time.Hour); err != nil {
			return err
		}
	}
	if token == "" {
		return fmt.Errorf("no credential: pass --token, set PRESENCE_TOKEN or use --sign-as")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ctl := client.New(client.Config{
		MaxReconnectAttempts: maxAttempts,
		ReconnectDelay:       delay,
		ReconnectMaxDelay:    maxDelay,
	}, client.WebSocketDialer{URL: url, ReadTimeout: readTimeout})
	subs := client.NewSubscriptions(ctl)
	defer subs.Close()

	done := make(chan string, 1)
	client.Handle(ctl.Bus(), func(st domain.ConnectionStatus) {
		if !st.Connected && (st.Reason == client.ReasonReconnectFailed || st.Reason == client.ReasonUnauthorized) {
			select {
			case done <- st.Reason:
			default:
			}
		}
	})
	for _, name := range []domain.EventName{
		domain.EventConnectionStatus, domain.EventNotification, domain.EventTestExecutionUpdate,
		domain.EventCollaborationUpdate, domain.EventTestCaseUpdate, domain.EventUserJoinedProject,
		domain.EventUserLeftProject, domain.EventTestRunStarted, domain.EventUserTyping,
		domain.EventUserStoppedTyping, domain.EventError, domain.EventPong, domain.EventReconnected,
	} {
		ctl.On(name, printEvent)
	}

	if err := ctl.Connect(ctx, token); err != nil {
		return err
	}
	defer ctl.Disconnect()

	for _, p := range projects {
		if err := subs.Join(domain.RoomID(p)); err != nil {
			log.Warn().Err(err).Str("project", p).Msg("join failed")
		}
	}

	var pings <-chan time.Time
	if pingEvery > 0 {
		ticker := time.NewTicker(pingEvery)
		defer ticker.Stop()
		pings = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case reason := <-done:
			return fmt.Errorf("connection lost: %s", reason)
		case <-pings:
			if err := ctl.Ping(); err != nil {
				log.Debug().Err(err).Msg("ping skipped")
			}
		}
	}
}

func printEvent(p domain.Payload) {
	b, err := json.Marshal(p)
	if err != nil {
		log.Error().Err(err).Msg("print event")
		return
	}
	fmt.Printf("%s %s %s\n", time.Now().Format(time.TimeOnly), p.EventName(), b)
}
