// tgattach opens an interactive terminal session through a termgate
// server, attaching the local TTY as the terminal surface.
//
//	tgattach -server http://gate:8600 -device web-1 -user root
//
// Ctrl+] detaches from the session.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/termgate/termgate/internal/session"
	"golang.org/x/term"
)

const detachByte = 0x1d // Ctrl+]

func main() {
	server := flag.String("server", "http://localhost:8600", "termgate server base URL")
	device := flag.String("device", "", "device ID to attach to")
	user := flag.String("user", "", "username on the device")
	auth := flag.String("auth", "password", "auth method: password or privateKey")
	keyFile := flag.String("key", "", "private key file (for -auth privateKey)")
	flag.Parse()

	if *device == "" || *user == "" {
		fmt.Fprintln(os.Stderr, "usage: tgattach -server <url> -device <id> -user <name> [-auth password|privateKey] [-key <file>]")
		os.Exit(1)
	}

	secret, err := readSecret(*auth, *keyFile)
	if err != nil {
		log.Fatalf("read credentials: %v", err)
	}

	cols, rows := 80, 24
	if c, r, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		cols, rows = c, r
	}

	surface, err := newTTYSurface()
	if err != nil {
		log.Fatalf("attach terminal: %v", err)
	}

	ctl := session.NewController(session.NewRegistry(), &session.HTTPHandshake{BaseURL: *server}, *server)
	token, err := ctl.Open(context.Background(), session.Params{
		DeviceID:   *device,
		Username:   *user,
		AuthMethod: session.AuthMethod(*auth),
		Secret:     secret,
		Dims:       session.Dimensions{Cols: uint16(cols), Rows: uint16(rows)},
	}, surface)
	if err != nil {
		surface.Dispose()
		log.Fatalf("open session: %v", err)
	}

	s := ctl.Registry().Get(token)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-s.Done():
	case <-surface.detached:
	case <-sigCtx.Done():
	}
	ctl.Close(token)
}

func readSecret(auth, keyFile string) (string, error) {
	switch auth {
	case "privateKey":
		if keyFile == "" {
			return "", fmt.Errorf("-key is required with -auth privateKey")
		}
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case "password":
		fmt.Fprint(os.Stderr, "Password: ")
		pw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", err
		}
		return string(pw), nil
	default:
		return "", fmt.Errorf("unknown auth method %q", auth)
	}
}
