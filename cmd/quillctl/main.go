// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Command quillctl talks to the Quill API from a terminal.

Usage:

	quillctl [--api URL] [--session-file PATH] [-v] <command> [args]

Commands:

	signup                      Create an account and log in
	login                       Log in (password prompted when not given)
	logout                      Revoke and forget the stored session
	whoami                      Show the logged-in account
	posts list|get|create       Browse and write posts
	request METHOD PATH [JSON]  Send an arbitrary authenticated request

The token pair is kept in a JSON file readable only by the current user.
*/
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/taibuivan/quill/internal/platform/config"
	"github.com/taibuivan/quill/pkg/apiclient"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	app := &cli{
		stdin:  bufio.NewReader(os.Stdin),
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	app.readPassword = app.promptPassword

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := app.run(ctx, os.Args[1:], config.DefaultDotEnvPath)
	stop()
	os.Exit(code)
}

// cli is one invocation. Its streams are swappable for tests.
type cli struct {
	stdin  *bufio.Reader
	stdout io.Writer
	stderr io.Writer

	readPassword func(prompt string) (string, error)

	client *apiclient.Client
}

func (app *cli) run(ctx context.Context, args []string, dotEnvPath string) int {
	cfg, rest, err := loadConfig(args, dotEnvPath)
	if err != nil {
		fmt.Fprintln(app.stderr, err)
		app.usage()
		return exitUsage
	}
	if len(rest) == 0 {
		app.usage()
		return exitUsage
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(app.stderr, &slog.HandlerOptions{Level: level}))

	app.client, err = apiclient.New(cfg.APIURL, apiclient.NewFileStore(cfg.SessionFile),
		apiclient.WithLogger(logger),
		apiclient.WithUserAgent("quillctl"),
		apiclient.WithIdentityRefresh(),
	)
	if err != nil {
		fmt.Fprintln(app.stderr, err)
		return exitUsage
	}

	app.client.Subscribe(func(event apiclient.LogoutEvent) {
		if event.Reason == apiclient.ReasonSignedOut || event.Reason == apiclient.ReasonPasswordChanged {
			return
		}
		fmt.Fprintf(app.stderr, "Your session has ended (%s). Run `quillctl login` to sign in again.\n", event.Reason)
	})

	command, found := commands()[rest[0]]
	if !found {
		fmt.Fprintf(app.stderr, "unknown command %q\n", rest[0])
		app.usage()
		return exitUsage
	}

	if err := command.run(ctx, app, rest[1:]); err != nil {
		var usage usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(app.stderr, "%s\nusage: quillctl %s\n", usage.message, command.usage)
			return exitUsage
		}
		app.report(err)
		return exitError
	}
	return exitOK
}

func (app *cli) usage() {
	fmt.Fprintln(app.stderr, "usage: quillctl [--api URL] [--session-file PATH] [-v] <command> [args]")
	fmt.Fprintln(app.stderr, "commands:")
	for _, name := range commandNames() {
		fmt.Fprintf(app.stderr, "  %s\n", commands()[name].usage)
	}
}

// report prints an error, with field details for validation failures.
func (app *cli) report(err error) {
	var apiError *apiclient.Error
	if errors.As(err, &apiError) {
		fmt.Fprintf(app.stderr, "error: %s (HTTP %d", apiError.Message, apiError.Status)
		if apiError.Code != "" {
			fmt.Fprintf(app.stderr, ", %s", apiError.Code)
		}
		fmt.Fprintln(app.stderr, ")")
		for _, detail := range apiError.Details {
			fmt.Fprintf(app.stderr, "  %s: %s\n", detail.Field, detail.Message)
		}
		return
	}
	fmt.Fprintf(app.stderr, "error: %v\n", err)
}

// promptPassword reads without echo on a terminal and a plain line otherwise.
func (app *cli) promptPassword(prompt string) (string, error) {
	fmt.Fprint(app.stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(app.stderr)
		return string(password), err
	}
	return app.readLine()
}

func (app *cli) readLine() (string, error) {
	line, err := app.stdin.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return trimNewline(line), nil
}
