package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atinyakov/nilavanti/internal/client/player"
	"github.com/atinyakov/nilavanti/internal/client/storage"
	"github.com/atinyakov/nilavanti/internal/gate"
	"github.com/atinyakov/nilavanti/internal/reveal"
	"go.uber.org/zap"
)

const prompt = "nilavanti> "

// gateClient is the part of storage.Client the shell uses.
type gateClient interface {
	Register(ctx context.Context, username, password, confirm string) (*storage.User, error)
	Login(ctx context.Context, username, password string) (*storage.LoginResult, error)
	Logout(ctx context.Context) error
	Status(ctx context.Context) (*storage.MountState, error)
	RevealURL(ctx context.Context) (string, error)
	Main(ctx context.Context) (*storage.Protected, error)
}

type shell struct {
	client gateClient
	prompt *storage.Prompter
	input  *player.LineReader
	out    io.Writer
	log    *zap.Logger

	knock    *gate.Knock
	revealed bool

	videoLength time.Duration
	autoplay    bool
	tty         bool
}

func newShell(client gateClient, p *storage.Prompter, out io.Writer, log *zap.Logger) *shell {
	return &shell{
		client:      client,
		prompt:      p,
		input:       player.NewLineReader(func() (string, error) { return p.Line("") }),
		out:         out,
		log:         log,
		knock:       gate.NewKnock(gate.DefaultKnocks, gate.DefaultWindow),
		videoLength: 8 * time.Second,
		autoplay:    true,
	}
}

// run shows the gate and then reads commands until exit or end of input.
func (s *shell) run(ctx context.Context) {
	s.status(ctx)

	for {
		fmt.Fprint(s.out, prompt)
		var line string
		select {
		case line = <-s.input.Next():
		case <-ctx.Done():
			fmt.Fprintln(s.out)
			return
		}
		if err := s.input.Err(); err != nil && line == "" {
			fmt.Fprintln(s.out)
			return
		}
		if !s.exec(ctx, strings.Fields(line)) {
			return
		}
	}
}

// exec runs one command and reports whether the shell should keep going.
func (s *shell) exec(ctx context.Context, args []string) bool {
	if len(args) == 0 {
		return true
	}
	switch args[0] {
	case "help":
		cmds := "help, register, login [username], logout, status, open, knock, exit"
		if s.revealed {
			cmds += ", nilavanti"
		}
		fmt.Fprintln(s.out, "Available commands:", cmds)
	case "register":
		s.register(ctx)
	case "login":
		username := ""
		if len(args) > 1 {
			username = args[1]
		}
		s.login(ctx, username)
	case "logout":
		if err := s.client.Logout(ctx); err != nil {
			s.fail(err)
			return true
		}
		fmt.Fprintln(s.out, "Logged out.")
	case "status":
		s.status(ctx)
	case "open":
		s.open(ctx)
	case "knock":
		if s.knock.Hit() {
			s.revealed = true
			fmt.Fprintln(s.out, "The gate answers. A hidden door appears: type 'nilavanti'.")
		} else {
			fmt.Fprintln(s.out, "*knock*")
		}
	case "nilavanti":
		if !s.revealed {
			s.unknown()
			return true
		}
		s.enter(ctx)
	case "exit":
		fmt.Fprintln(s.out, "Bye")
		return false
	default:
		s.unknown()
	}
	return true
}

func (s *shell) unknown() {
	fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
}

func (s *shell) fail(err error) {
	var apiErr *storage.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintln(s.out, "Error:", apiErr.Error())
		return
	}
	s.log.Warn("request failed", zap.Error(err))
	fmt.Fprintln(s.out, "Error:", err)
}

// ask reads one plain line through the shared input.
func (s *shell) ask(ctx context.Context, label string) (string, bool) {
	fmt.Fprint(s.out, label)
	select {
	case line := <-s.input.Next():
		if s.input.Err() != nil && line == "" {
			return "", false
		}
		return strings.TrimSpace(line), true
	case <-ctx.Done():
		return "", false
	}
}

func (s *shell) secret(label string) (string, bool) {
	v, err := s.prompt.Secret(label)
	if err != nil {
		return "", false
	}
	return v, true
}

func (s *shell) status(ctx context.Context) {
	state, err := s.client.Status(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	switch {
	case !state.Authenticated:
		fmt.Fprintln(s.out, "The Nilavanti gate is closed. Use 'login' to enter.")
	case state.CurrentUser != nil:
		fmt.Fprintf(s.out, "Signed in as %s. Use 'open' to enter Nilavanti.\n", state.CurrentUser.Username)
	default:
		fmt.Fprintln(s.out, "Signed in with the master secret. Use 'open' to enter Nilavanti.")
	}
}

func (s *shell) register(ctx context.Context) {
	username, ok := s.ask(ctx, "Username: ")
	if !ok {
		return
	}
	password, ok := s.secret("Password: ")
	if !ok {
		return
	}
	confirm, ok := s.secret("Confirm password: ")
	if !ok {
		return
	}
	u, err := s.client.Register(ctx, username, password, confirm)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintf(s.out, "Registered %s. Use 'login %s' to enter.\n", u.Username, u.Username)
}

func (s *shell) login(ctx context.Context, username string) {
	password, ok := s.secret("Password: ")
	if !ok {
		return
	}
	if _, err := s.client.Login(ctx, username, password); err != nil {
		s.fail(err)
		return
	}
	if s.reveal(ctx) {
		s.open(ctx)
	}
}

// enter is the hidden door: straight in with a live session, else a login.
func (s *shell) enter(ctx context.Context) {
	state, err := s.client.Status(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if state.Authenticated {
		s.open(ctx)
		return
	}
	s.login(ctx, "")
}

// reveal plays the video and reports whether it unlocked the gate.
func (s *shell) reveal(ctx context.Context) bool {
	url, err := s.client.RevealURL(ctx)
	if err != nil {
		s.fail(err)
		fmt.Fprintln(s.out, "The gate stays closed.")
		return false
	}
	if url == "" {
		fmt.Fprintln(s.out, "The reveal video is unavailable. The gate stays closed.")
		return false
	}

	p := player.NewTerminal(s.out, url, s.tty, s.autoplay)
	seq := reveal.NewSequence(p, s.log, nil)
	if !s.autoplay {
		fmt.Fprintln(s.out, "Press Enter to play.")
	}
	if err := player.Watch(ctx, seq, s.videoLength, s.input); err != nil {
		s.log.Warn("reveal interrupted", zap.Error(err))
		_ = p.ExitFullscreen(ctx)
	}

	select {
	case <-seq.Done():
		return true
	default:
		fmt.Fprintln(s.out, "The gate stays closed.")
		return false
	}
}

func (s *shell) open(ctx context.Context) {
	content, err := s.client.Main(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	fmt.Fprintln(s.out, content.Message)
	if !content.Since.IsZero() {
		fmt.Fprintf(s.out, "Session opened %s\n", content.Since.Local().Format(time.DateTime))
	}
}
