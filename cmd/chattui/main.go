package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/matheus3301/chatdock/internal/logging"
	"github.com/matheus3301/chatdock/internal/rpc"
	"github.com/matheus3301/chatdock/internal/session"
	"github.com/matheus3301/chatdock/internal/tui"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	openFlag := flag.Bool("open", false, "open the most recent unread conversation once ready")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fail(err)
	}
	socketPath := session.SocketPath(sessionName)

	if !probeDaemon(socketPath) {
		fmt.Fprintf(os.Stderr, "daemon not running for session %q, starting...\n", sessionName)
		if err := startDaemon(sessionName); err != nil {
			fail(fmt.Errorf("start daemon: %w", err))
		}
		if !waitForDaemon(socketPath, 10*time.Second) {
			fail(fmt.Errorf("daemon did not become ready"))
		}
	}

	logger, err := logging.New(logging.Options{
		Path:    filepath.Join(session.LogDir(sessionName), "chattui.log"),
		Session: sessionName,
	})
	if err != nil {
		logger = zap.NewNop()
	}
	defer func() { _ = logger.Sync() }()

	c, err := rpc.Dial(socketPath)
	if err != nil {
		fail(fmt.Errorf("connect to daemon: %w", err))
	}
	defer func() { _ = c.Close() }()

	app := tui.NewApp(tui.Options{
		Client:      c,
		Session:     sessionName,
		Logger:      logger.Named("tui"),
		OpenOnStart: *openFlag,
	})
	if err := app.Run(); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// probeDaemon makes a real call, a connectable socket alone is not enough.
func probeDaemon(socketPath string) bool {
	c, err := rpc.Dial(socketPath)
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = c.GetStatus(ctx)
	return err == nil
}

// startDaemon launches chatd, preferring the binary next to this one.
func startDaemon(sessionName string) error {
	chatd := "chatd"
	if exe, err := os.Executable(); err == nil {
		if p := filepath.Join(filepath.Dir(exe), "chatd"); fileExists(p) {
			chatd = p
		}
	}
	cmd := exec.Command(chatd, "--session", sessionName)
	cmd.Stderr = os.Stderr
	return cmd.Start()
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func waitForDaemon(socketPath string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return true
		}
		time.Sleep(300 * time.Millisecond)
	}
	return false
}
