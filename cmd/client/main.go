// Command client is a terminal front end for the Nilavanti gate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/atinyakov/nilavanti/internal/client/storage"
	"github.com/atinyakov/nilavanti/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var (
	version   string
	buildDate string
)

func main() {
	var (
		baseURL     string
		caFile      string
		sessionPath string
		logLevel    string
		videoLength time.Duration
		autoplay    bool
		showVer     bool
	)

	flag.StringVar(&baseURL, "url", "https://localhost:8080", "server base URL")
	flag.StringVar(&caFile, "ca", "", "path to CA cert for a self-signed server")
	flag.StringVar(&sessionPath, "session", storage.DefaultSessionFile, "file that keeps the session cookie")
	flag.StringVar(&logLevel, "l", "warn", "log level")
	flag.DurationVar(&videoLength, "video-duration", 8*time.Second, "how long the reveal video plays")
	flag.BoolVar(&autoplay, "autoplay", true, "start the reveal video without asking")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Nilavanti Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	log := logger.New()
	if err := log.Init(logLevel); err != nil {
		fmt.Fprintln(os.Stderr, "invalid log level:", err)
		os.Exit(2)
	}
	defer func() { _ = log.Log.Sync() }()

	httpClient, err := storage.NewHTTPClient(caFile)
	if err != nil {
		log.Log.Fatal("failed to build HTTP client", zap.Error(err))
	}
	session := storage.NewSessionFile(sessionPath)
	if err := session.Load(); err != nil {
		log.Log.Warn("ignoring unreadable session file", zap.String("path", sessionPath), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sh := newShell(storage.NewClient(baseURL, httpClient, session), storage.NewPrompter(os.Stdout), os.Stdout, log.Log)
	sh.videoLength = videoLength
	sh.autoplay = autoplay
	sh.tty = term.IsTerminal(int(os.Stdout.Fd()))
	sh.run(ctx)
}
