// Copyright (c) 2026 Quill. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/taibuivan/quill/pkg/apiclient"
)

// # Command registry

type command struct {
	usage string
	run   func(ctx context.Context, app *cli, args []string) error
}

func commands() map[string]command {
	return map[string]command{
		"signup":  {"signup --email E --username U [--password P]", runSignup},
		"login":   {"login --email E [--password P]", runLogin},
		"logout":  {"logout", runLogout},
		"passwd":  {"passwd", runPasswd},
		"whoami":  {"whoami", runWhoami},
		"posts":   {"posts list [filters] | get <slug> [--include ...] | create --title T --body B", runPosts},
		"request": {"request <METHOD> <PATH> [JSON]", runRequest},
	}
}

func commandNames() []string {
	return slices.Sorted(maps.Keys(commands()))
}

// usageError is a mistake in the command line rather than a failed call.
type usageError struct {
	message string
}

func (e usageError) Error() string { return e.message }

func usagef(format string, args ...any) error {
	return usageError{message: fmt.Sprintf(format, args...)}
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *pflag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usagef("%v", err)
	}
	return nil
}

func trimNewline(line string) string {
	return strings.TrimRight(line, "\r\n")
}

// # Session commands

func runSignup(ctx context.Context, app *cli, args []string) error {
	fs := newFlagSet("signup")
	email := fs.String("email", "", "Account email")
	username := fs.String("username", "", "Public handle")
	password := fs.String("password", "", "Password (prompted when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *email == "" || *username == "" {
		return usagef("--email and --username are required")
	}

	secret, err := app.password(*password)
	if err != nil {
		return err
	}

	user, err := app.client.SignupAndLogin(ctx, apiclient.SignupInput{
		Email:    *email,
		Password: secret,
		Username: *username,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Welcome, @%s. You are logged in.\n", user.Username)
	return nil
}

func runLogin(ctx context.Context, app *cli, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Password (prompted when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if *email == "" {
		return usagef("--email is required")
	}

	secret, err := app.password(*password)
	if err != nil {
		return err
	}

	if err := app.client.Login(ctx, *email, secret); err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "Logged in as %s.\n", *email)
	return nil
}

func runLogout(ctx context.Context, app *cli, _ []string) error {
	if err := app.client.Logout(ctx); err != nil {
		fmt.Fprintf(app.stderr, "warning: the server did not revoke the session: %v\n", err)
	}
	fmt.Fprintln(app.stdout, "Logged out.")
	return nil
}

func runPasswd(ctx context.Context, app *cli, args []string) error {
	if len(args) > 0 {
		return usagef("passwd takes no arguments; passwords are prompted")
	}

	current, err := app.readPassword("Current password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	next, err := app.readPassword("New password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if current == "" || next == "" {
		return usagef("both passwords are required")
	}

	err = app.client.ChangePassword(ctx, current, next)
	if errors.Is(err, apiclient.ErrNoSession) {
		return errors.New("not logged in; run `quillctl login`")
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, "Password changed. All sessions have ended; log in again with the new password.")
	return nil
}

func runWhoami(ctx context.Context, app *cli, _ []string) error {
	identity, err := app.client.Identity(ctx)
	if errors.Is(err, apiclient.ErrNoSession) {
		return errors.New("not logged in; run `quillctl login`")
	}
	if err != nil {
		return err
	}

	user, err := app.client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	out := tabwriter.NewWriter(app.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(out, "id:\t%s\n", user.ID)
	fmt.Fprintf(out, "email:\t%s\n", user.Email)
	fmt.Fprintf(out, "username:\t@%s\n", user.Username)
	fmt.Fprintf(out, "role:\t%s\n", user.Role)
	if !identity.ExpiresAt.IsZero() {
		remaining := time.Until(identity.ExpiresAt).Round(time.Minute)
		fmt.Fprintf(out, "token expires:\t%s (in %s)\n", identity.ExpiresAt.Format(time.RFC3339), remaining)
	}
	return out.Flush()
}

// password returns the flag value, or prompts for one.
func (app *cli) password(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	secret, err := app.readPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if secret == "" {
		return "", usagef("a password is required")
	}
	return secret, nil
}

// # Posts

func runPosts(ctx context.Context, app *cli, args []string) error {
	if len(args) == 0 {
		return usagef("posts needs a subcommand: list, get or create")
	}

	switch args[0] {
	case "list":
		return listPosts(ctx, app, args[1:])
	case "get":
		return getPost(ctx, app, args[1:])
	case "create":
		return createPost(ctx, app, args[1:])
	default:
		return usagef("unknown posts subcommand %q", args[0])
	}
}

func listPosts(ctx context.Context, app *cli, args []string) error {
	var query apiclient.PostQuery
	var include string

	fs := newFlagSet("posts list")
	fs.StringVarP(&query.Query, "query", "q", "", "Search title and body")
	fs.StringVar(&query.Status, "status", "", "draft or published")
	fs.StringVar(&query.Category, "category", "", "Category slug")
	fs.StringVar(&query.Tag, "tag", "", "Tag slug")
	fs.StringVar(&query.Author, "author", "", "Author id, or 'me'")
	fs.StringVar(&include, "include", "", "Relations: author,category,tags,comments")
	fs.IntVar(&query.Page, "page", 0, "Page number")
	fs.IntVar(&query.Limit, "limit", 0, "Posts per page")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if include != "" {
		query.Include = strings.Split(include, ",")
	}

	page, err := app.client.ListPosts(ctx, query)
	if err != nil {
		return err
	}

	out := tabwriter.NewWriter(app.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(out, "SLUG\tSTATUS\tPUBLISHED\tTITLE")
	for _, post := range page.Data {
		published := "-"
		if post.PublishedAt != nil {
			published = post.PublishedAt.Format(time.DateOnly)
		}
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\n", post.Slug, post.Status, published, post.Title)
	}
	if err := out.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "page %d of %d (%d posts)\n", page.Meta.Page, page.Meta.TotalPages, page.Meta.Total)
	return nil
}

func getPost(ctx context.Context, app *cli, args []string) error {
	fs := newFlagSet("posts get")
	include := fs.String("include", "author,category,tags", "Relations to load")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("posts get needs exactly one slug or id")
	}

	var relations []string
	if *include != "" {
		relations = strings.Split(*include, ",")
	}

	post, err := app.client.GetPost(ctx, fs.Arg(0), relations...)
	if err != nil {
		return err
	}

	fmt.Fprintf(app.stdout, "%s\n%s\n", post.Title, strings.Repeat("=", len(post.Title)))
	fmt.Fprintf(app.stdout, "slug: %s  status: %s\n", post.Slug, post.Status)
	if post.Author != nil {
		fmt.Fprintf(app.stdout, "by @%s\n", post.Author.Username)
	}
	if post.Category != nil {
		fmt.Fprintf(app.stdout, "category: %s\n", post.Category.Name)
	}
	if len(post.Tags) > 0 {
		names := make([]string, 0, len(post.Tags))
		for _, tag := range post.Tags {
			names = append(names, "#"+tag.Slug)
		}
		fmt.Fprintf(app.stdout, "tags: %s\n", strings.Join(names, " "))
	}
	if post.CoverURL != "" {
		fmt.Fprintf(app.stdout, "cover: %s\n", post.CoverURL)
	}
	fmt.Fprintf(app.stdout, "\n%s\n", post.Body)
	return nil
}

func createPost(ctx context.Context, app *cli, args []string) error {
	var input apiclient.NewPost
	var bodyFile, coverPath string

	fs := newFlagSet("posts create")
	fs.StringVar(&input.Title, "title", "", "Post title")
	fs.StringVar(&input.Body, "body", "", "Post body")
	fs.StringVar(&bodyFile, "body-file", "", "Read the body from a file ('-' for stdin)")
	fs.StringVar(&input.Excerpt, "excerpt", "", "Short summary")
	fs.StringVar(&input.CategoryID, "category-id", "", "Category id")
	fs.StringSliceVar(&input.TagIDs, "tag-id", nil, "Tag id (repeatable)")
	fs.StringVar(&input.Status, "status", "", "draft (default) or published")
	fs.StringVar(&coverPath, "cover", "", "Cover image to upload after creation")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if bodyFile != "" {
		body, err := readBody(app, bodyFile)
		if err != nil {
			return err
		}
		input.Body = body
	}
	if input.Title == "" || input.Body == "" {
		return usagef("--title and --body (or --body-file) are required")
	}

	post, err := app.client.CreatePost(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.stdout, "Created %s (%s).\n", post.Slug, post.Status)

	if coverPath != "" {
		image, err := os.ReadFile(coverPath)
		if err != nil {
			return fmt.Errorf("read cover: %w", err)
		}
		if _, err := app.client.UploadCover(ctx, post.ID, filepath.Base(coverPath), image); err != nil {
			return fmt.Errorf("post created, cover upload failed: %w", err)
		}
		fmt.Fprintln(app.stdout, "Cover uploaded.")
	}
	return nil
}

func readBody(app *cli, path string) (string, error) {
	if path == "-" {
		body, err := io.ReadAll(app.stdin)
		return string(body), err
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// # Raw requests

func runRequest(ctx context.Context, app *cli, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usagef("request needs a method, a path and an optional JSON body")
	}

	options := apiclient.RequestOptions{Method: strings.ToUpper(args[0])}
	if len(args) == 3 {
		if !json.Valid([]byte(args[2])) {
			return usagef("the request body is not valid JSON")
		}
		options.Body = json.RawMessage(args[2])
	} else if options.Method != http.MethodGet && options.Method != http.MethodDelete {
		options.Body = json.RawMessage("{}")
	}

	var response apiclient.RawResponse
	if err := app.client.Do(ctx, args[1], options, &response); err != nil {
		return err
	}
	if len(response.RawMessage) == 0 {
		return nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, response.RawMessage, "", "  "); err != nil {
		_, err = app.stdout.Write(response.RawMessage)
		return err
	}
	pretty.WriteByte('\n')
	_, err := pretty.WriteTo(app.stdout)
	return err
}
