package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mmynk/shoeshelf/internal/inventory"
	"github.com/mmynk/shoeshelf/internal/models"
)

const prompt = "shoeshelf> "

const helpText = `Commands:
  list                 show your shoes
  add <name> <price>   add a shoe, e.g. add Air Max 120
  rm <name>            remove a shoe
  clear                remove every shoe
  details              fetch details for the current list
  history              show past details, newest first
  reload               reload shoes and history
  signin               retry signing in
  help                 show this help
  quit                 leave the shell`

var errQuit = errors.New("quit")

// Inventory is the part of the Sync Layer the shell drives.
type Inventory interface {
	Bootstrap(ctx context.Context) error
	LoadItems(ctx context.Context) error
	LoadHistory(ctx context.Context) error
	AddItem(ctx context.Context, name string, price float64) (models.Item, error)
	DeleteItem(ctx context.Context, name string) error
	ClearAll(ctx context.Context) error
	RequestEnrichment(ctx context.Context, items []models.Item) (string, error)
	Items() []models.Item
	History() []models.ViewEvent
	Session() (models.Session, bool)
	State() inventory.State
	Banner() string
}

// Shell reads commands line by line and prints the resulting state.
type Shell struct {
	inv Inventory
	in  io.Reader
	out io.Writer
}

// NewShell creates a shell over inv.
func NewShell(inv Inventory, in io.Reader, out io.Writer) *Shell {
	return &Shell{inv: inv, in: in, out: out}
}

// NewShellCommand creates the shell command.
func NewShellCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "shell",
		Short:         "Start the interactive shell",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd, opts)
		},
	}
}

func runShell(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	syncer := newSyncer(cfg, newLogger(opts, cfg, cmd.ErrOrStderr()))
	return NewShell(syncer, cmd.InOrStdin(), cmd.OutOrStdout()).Run(cmd.Context())
}

// Run signs in, loads the list, then processes commands until quit or EOF.
// A failed sign-in leaves the shell running with mutating commands disabled.
func (s *Shell) Run(ctx context.Context) error {
	fmt.Fprintln(s.out, "Signing in...")
	s.signIn(ctx)

	scanner := bufio.NewScanner(s.in)
	for {
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		if err := s.Exec(ctx, scanner.Text()); errors.Is(err, errQuit) {
			return nil
		}
	}
}

// Exec runs a single command line. It returns errQuit for quit; every
// other failure is reported through the banner.
func (s *Shell) Exec(ctx context.Context, line string) error {
	verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
	rest = strings.TrimSpace(rest)

	switch verb {
	case "":
		return nil
	case "quit", "exit":
		return errQuit
	case "help":
		fmt.Fprintln(s.out, helpText)
		return nil
	case "signin":
		if session, ok := s.inv.Session(); ok {
			fmt.Fprintf(s.out, "Already signed in as %s.\n", session.UserID)
			return nil
		}
		s.signIn(ctx)
		return nil
	case "list", "add", "rm", "clear", "details", "history", "reload":
	default:
		fmt.Fprintf(s.out, "Unknown command %q. Type help for a list.\n", verb)
		return nil
	}

	if s.inv.State() != inventory.StateReady {
		fmt.Fprintln(s.out, "Not signed in. Type signin to try again.")
		return nil
	}

	var err error
	switch verb {
	case "list":
		s.printItems()
	case "add":
		err = s.add(ctx, rest)
	case "rm":
		if err = s.inv.DeleteItem(ctx, rest); err == nil {
			s.printItems()
		}
	case "clear":
		if err = s.inv.ClearAll(ctx); err == nil {
			s.printItems()
		}
	case "details":
		var details string
		if details, err = s.inv.RequestEnrichment(ctx, s.inv.Items()); err == nil {
			fmt.Fprintln(s.out, details)
		}
	case "history":
		s.printHistory()
	case "reload":
		err = errors.Join(s.inv.LoadItems(ctx), s.inv.LoadHistory(ctx))
		s.printItems()
	}
	if err != nil {
		s.printBanner()
	}
	return nil
}

// signIn bootstraps the inventory and reports the outcome.
func (s *Shell) signIn(ctx context.Context) {
	err := s.inv.Bootstrap(ctx)
	if session, ok := s.inv.Session(); ok {
		fmt.Fprintf(s.out, "Signed in as %s.\n", session.UserID)
		s.printItems()
	}
	if err != nil {
		s.printBanner()
	}
}

// add parses "<name> <price>"; the name may contain spaces.
func (s *Shell) add(ctx context.Context, args string) error {
	name, price := args, 0.0
	if i := strings.LastIndexByte(args, ' '); i >= 0 {
		if p, err := strconv.ParseFloat(args[i+1:], 64); err == nil {
			name, price = args[:i], p
		}
	}
	item, err := s.inv.AddItem(ctx, name, price)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added %s at %s.\n", item.Name, models.FormatPrice(item.Price))
	return nil
}

func (s *Shell) printItems() {
	items := s.inv.Items()
	if len(items) == 0 {
		fmt.Fprintln(s.out, "Your list is empty.")
		return
	}
	for i, item := range items {
		fmt.Fprintf(s.out, "%3d. %-30s %10s\n", i+1, item.Name, models.FormatPrice(item.Price))
	}
}

func (s *Shell) printHistory() {
	history := s.inv.History()
	if len(history) == 0 {
		fmt.Fprintln(s.out, "No past views.")
		return
	}
	for _, view := range history {
		fmt.Fprintf(s.out, "%s  %s\n", view.DisplayTime(), view.ItemNames)
		for _, line := range strings.Split(view.Details, "\n") {
			fmt.Fprintf(s.out, "    %s\n", line)
		}
	}
}

func (s *Shell) printBanner() {
	if banner := s.inv.Banner(); banner != "" {
		fmt.Fprintf(s.out, "! %s\n", banner)
	}
}
