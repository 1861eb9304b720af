package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"budget-tracker/internal/client"
	"budget-tracker/internal/summary"
	"budget-tracker/internal/tracker"

	"golang.org/x/term"
)

const defaultServer = "http://localhost:5000"

const usage = `Usage: budget [-server <url>] [-token-dir <dir>] <command> [flags]

Commands:
  signup  -email <email> [-password <password>]
  login   -email <email> [-password <password>]
  logout
  list
  add     -desc <text> -amount <n> [-type income|expense] [-date YYYY-MM-DD] [-category <name>]
  edit    [-yes] [-desc ...] [-amount ...] [-type ...] [-date ...] [-category ...] <row|id>
  delete  <row|id>
  summary [-month YYYY-MM]
`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	client *client.Client
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("budget", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }

	server := fs.String("server", envOr("BUDGET_SERVER", defaultServer), "Base URL of the budget tracker API")
	tokenDir := fs.String("token-dir", os.Getenv("BUDGET_TOKEN_DIR"), "Directory holding the saved session token")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("missing command")
	}

	var tokens client.TokenStore
	if *tokenDir != "" {
		tokens = client.NewFileTokenStore(*tokenDir)
	} else {
		store, err := client.DefaultTokenStore()
		if err != nil {
			return err
		}
		tokens = store
	}

	a := &app{
		client: client.New(*server, tokens),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	ctx := context.Background()
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	var err error
	switch cmd {
	case "signup":
		err = a.authenticate(ctx, cmd, rest, a.client.Signup)
	case "login":
		err = a.authenticate(ctx, cmd, rest, a.client.Login)
	case "logout":
		err = a.logout()
	case "list":
		err = a.list(ctx)
	case "add":
		err = a.add(ctx, rest)
	case "edit":
		err = a.edit(ctx, rest)
	case "delete":
		err = a.delete(ctx, rest)
	case "summary":
		err = a.summary(ctx, rest)
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	if client.IsUnauthorized(err) && cmd != "login" && cmd != "signup" {
		return fmt.Errorf("session is no longer valid, run 'budget login': %w", err)
	}
	return err
}

type authFunc func(ctx context.Context, email, password string) (*client.Session, error)

func (a *app) authenticate(ctx context.Context, name string, args []string, fn authFunc) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	email := fs.String("email", "", "Account email address")
	password := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("missing required flags: email")
	}

	if *password == "" {
		fmt.Fprint(a.stdout, "Password: ")
		var err error
		*password, err = readPassword(a.stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(a.stdout)
	}

	session, err := fn(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Logged in as %s\n", session.Email())
	return nil
}

func (a *app) logout() error {
	session, err := a.client.Resume()
	if errors.Is(err, client.ErrNotAuthenticated) {
		fmt.Fprintln(a.stdout, "Not logged in")
		return nil
	}
	if err != nil {
		return err
	}
	if err := session.Logout(); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

// controller resumes the saved session and loads the entry list.
func (a *app) controller(ctx context.Context) (*tracker.Controller, error) {
	session, err := a.client.Resume()
	if err != nil {
		return nil, err
	}
	c := tracker.NewController(session)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (a *app) list(ctx context.Context) error {
	c, err := a.controller(ctx)
	if err != nil {
		return err
	}
	return c.Render(a.stdout)
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var form tracker.EntryForm
	bindForm(fs, &form)
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := a.controller(ctx)
	if err != nil {
		return err
	}
	e, err := c.Add(ctx, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Added %s (%s)\n", e.Description, e.ID)
	return c.Render(a.stdout)
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	var changes tracker.EntryForm
	bindForm(fs, &changes)
	yes := fs.Bool("yes", false, "Save without asking for confirmation")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("edit takes exactly one row number or entry id")
	}

	c, err := a.controller(ctx)
	if err != nil {
		return err
	}
	id, err := c.Resolve(fs.Arg(0))
	if err != nil {
		return err
	}
	form, err := c.BeginEdit(id)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "date":
			form.Date = changes.Date
		case "desc":
			form.Description = changes.Description
		case "type":
			form.Type = changes.Type
		case "amount":
			form.Amount = changes.Amount
		case "category":
			form.Category = changes.Category
		}
	})

	if !*yes {
		fmt.Fprintf(a.stdout, "%s  %s  %s %s  %s\nSave? [y/N]: ",
			form.Date, form.Description, form.Type, form.Amount, form.Category)
		if !confirm(a.stdin) {
			if err := c.Cancel(id); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Edit cancelled")
			return nil
		}
	}

	e, err := c.Save(ctx, id, form)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Updated %s (%s)\n", e.Description, e.ID)
	return c.Render(a.stdout)
}

func (a *app) delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("delete takes exactly one row number or entry id")
	}
	c, err := a.controller(ctx)
	if err != nil {
		return err
	}
	id, err := c.Resolve(args[0])
	if err != nil {
		return err
	}
	if err := c.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Deleted %s\n", id)
	return nil
}

func (a *app) summary(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	month := fs.String("month", "", "Restrict to one month (YYYY-MM)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *month != "" {
		if _, err := time.Parse("2006-01", *month); err != nil {
			return fmt.Errorf("month must look like YYYY-MM")
		}
	}

	session, err := a.client.Resume()
	if err != nil {
		return err
	}
	list, err := session.Entries(ctx)
	if err != nil {
		return err
	}
	s := summary.Compute(summary.FilterMonth(list, *month))
	income, expense := s.Shares()

	if *month != "" {
		fmt.Fprintf(a.stdout, "Month: %s\n", *month)
	}
	fmt.Fprintf(a.stdout, "Entries: %d\nTotal: %s\nIncome: %s (%.1f%%)\nExpense: %s (%.1f%%)\n",
		s.Count, s.Total.StringFixed(2), s.Income.StringFixed(2), income, s.Expense.StringFixed(2), expense)
	for _, ct := range s.Categories {
		fmt.Fprintf(a.stdout, "  %s: %s (%.1f%%)\n", ct.Category, ct.Total.StringFixed(2), ct.Percentage)
	}
	return nil
}

func bindForm(fs *flag.FlagSet, form *tracker.EntryForm) {
	fs.StringVar(&form.Date, "date", "", "Entry date (YYYY-MM-DD, defaults to today)")
	fs.StringVar(&form.Description, "desc", "", "Description")
	fs.StringVar(&form.Type, "type", "", "income or expense (defaults to expense)")
	fs.StringVar(&form.Amount, "amount", "", "Amount")
	fs.StringVar(&form.Category, "category", "", "Category (defaults to General)")
}

func confirm(stdin io.Reader) bool {
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func readPassword(stdin io.Reader) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
