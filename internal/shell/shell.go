// Package shell is the client's line-oriented front end. Every command except login, help and
// quit counts as a navigation and is gated by the session guard.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	alertdomain "inventory-mobile/client/internal/alert/domain"
	"inventory-mobile/client/internal/api"
	"inventory-mobile/client/internal/audit"
	"inventory-mobile/client/internal/client/interceptors"
	inventorydomain "inventory-mobile/client/internal/inventory/domain"
	"inventory-mobile/client/internal/logging"
	productdomain "inventory-mobile/client/internal/product/domain"
	sessiondomain "inventory-mobile/client/internal/session/domain"
	"inventory-mobile/client/internal/session/guard"
	userdomain "inventory-mobile/client/internal/user/domain"
)

// errQuit ends Run without error.
var errQuit = errors.New("quit")

// Authenticator logs a user in.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*userdomain.User, error)
}

// Session is the part of session.State the shell reads.
type Session interface {
	Snapshot() sessiondomain.Session
}

// Navigator is the session guard: the navigation hook and user-requested logout.
type Navigator interface {
	Navigated(ctx context.Context) guard.Status
	Status() guard.Status
	Logout(ctx context.Context)
}

// Activity is the activity log view model.
type Activity interface {
	Reload(ctx context.Context) error
	SetShowMineOnly(on bool)
	ShowMineOnly() bool
	Entries(ctx context.Context) ([]audit.Entry, error)
	Revert(ctx context.Context, id int64) error
}

// Backend is the inventory data the shell shows.
type Backend interface {
	ListAlerts(ctx context.Context, unresolvedOnly bool) ([]alertdomain.Alert, error)
	ResolveAlert(ctx context.Context, id int64) error
	ListProducts(ctx context.Context, search string) ([]productdomain.Product, error)
	ListInventoryEntries(ctx context.Context, productID int64) ([]inventorydomain.Entry, error)
	CreateInventoryEntry(ctx context.Context, in inventorydomain.Input) (*inventorydomain.Entry, error)
	DashboardSummary(ctx context.Context) (*api.DashboardSummary, error)
}

// UserAdmin lists users for master accounts.
type UserAdmin interface {
	ListUsers(ctx context.Context) ([]userdomain.User, error)
}

// Deps are the components the shell drives.
type Deps struct {
	Auth     Authenticator
	Session  Session
	Guard    Navigator
	Activity Activity
	Backend  Backend
	Users    UserAdmin
}

// Shell reads commands from in and writes results to out. Notify may be called from other
// goroutines (the guard's redirect) while Run is active.
type Shell struct {
	deps   Deps
	in     io.Reader
	logger *zap.Logger

	outMu sync.Mutex
	out   io.Writer
}

func New(deps Deps, in io.Reader, out io.Writer, logger *zap.Logger) *Shell {
	return &Shell{deps: deps, in: in, out: out, logger: logging.OrNop(logger)}
}

// Notify prints an out-of-band message.
func (s *Shell) Notify(msg string) {
	s.printf("! %s\n", msg)
}

// RedirectToLogin implements guard.Redirector by telling the user to sign in again.
func (s *Shell) RedirectToLogin(_ context.Context, reason string) {
	s.Notify("signed out (" + reason + "). Use: login <username> <password>")
}

// Run processes lines until EOF, "quit", or ctx is done. The reader goroutine stays blocked on
// input if ctx ends mid-read; the process is exiting at that point.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(s.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	s.prompt()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if err := s.Exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return nil
				}
				s.printf("error: %v\n", err)
			}
			s.prompt()
		}
	}
}

// Exec runs one command line. Every backend call the command makes carries the same request ID.
func (s *Shell) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	id := uuid.NewString()
	ctx = interceptors.WithRequestID(ctx, id)
	s.logger.Debug("shell: command", zap.String("command", cmd), zap.String("request_id", id))
	switch cmd {
	case "help":
		s.help()
		return nil
	case "quit", "exit":
		return errQuit
	case "login":
		return s.login(ctx, args)
	}

	if st := s.deps.Guard.Navigated(ctx); st != guard.StatusValid {
		return fmt.Errorf("not signed in (%s)", strings.ToLower(string(st)))
	}
	switch cmd {
	case "whoami":
		return s.whoami()
	case "check":
		s.printf("session %s\n", strings.ToLower(string(s.deps.Guard.Status())))
		return nil
	case "logout":
		s.deps.Guard.Logout(ctx)
		s.printf("signed out\n")
		return nil
	case "logs":
		return s.logs(ctx)
	case "mine":
		return s.mine(ctx, args)
	case "revert":
		return s.revert(ctx, args)
	case "alerts":
		return s.alerts(ctx, args)
	case "resolve":
		return s.resolve(ctx, args)
	case "products":
		return s.products(ctx, args)
	case "stock":
		return s.stock(ctx, args)
	case "move":
		return s.move(ctx, args)
	case "users":
		return s.users(ctx)
	case "dashboard":
		return s.dashboard(ctx)
	}
	return fmt.Errorf("unknown command %q (try help)", cmd)
}

func (s *Shell) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: login <username> <password>")
	}
	u, err := s.deps.Auth.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	s.deps.Guard.Navigated(ctx)
	s.printf("welcome, %s (%s)\n", displayName(u), strings.ToLower(string(u.Role)))
	return nil
}

func (s *Shell) whoami() error {
	u := s.deps.Session.Snapshot().User
	if u == nil {
		return errors.New("not signed in")
	}
	s.printf("%s (@%s, id %d, %s)\n", displayName(u), u.Username, u.ID, strings.ToLower(string(u.Role)))
	return nil
}

func (s *Shell) logs(ctx context.Context) error {
	if err := s.deps.Activity.Reload(ctx); err != nil {
		s.printf("could not refresh the activity log: %v\n", err)
	}
	entries, err := s.deps.Activity.Entries(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		s.printf("no activity\n")
		return nil
	}
	s.table(func(w io.Writer) {
		fmt.Fprintln(w, "ID\tWHEN\tUSER\tCHANGE\t")
		for _, e := range entries {
			mark := ""
			if e.CanRevert {
				mark = "revertible"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", e.Record.ID, when(e.Record.CreatedAt), e.Record.Username, e.Summary, mark)
		}
	})
	return nil
}

func (s *Shell) mine(ctx context.Context, args []string) error {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		return errors.New("usage: mine on|off")
	}
	s.deps.Activity.SetShowMineOnly(args[0] == "on")
	return s.logs(ctx)
}

func (s *Shell) revert(ctx context.Context, args []string) error {
	id, err := oneID(args, "usage: revert <change-id>")
	if err != nil {
		return err
	}
	if err := s.deps.Activity.Revert(ctx, id); err != nil {
		var rf *audit.RevertFailure
		if errors.As(err, &rf) {
			s.Notify(rf.Error())
			return nil
		}
		return err
	}
	s.printf("change %d reverted\n", id)
	return nil
}

func (s *Shell) alerts(ctx context.Context, args []string) error {
	all := len(args) == 1 && args[0] == "all"
	alerts, err := s.deps.Backend.ListAlerts(ctx, !all)
	if err != nil {
		return err
	}
	if !all {
		alerts = alertdomain.Unresolved(alerts)
	}
	if len(alerts) == 0 {
		s.printf("no alerts\n")
		return nil
	}
	s.table(func(w io.Writer) {
		fmt.Fprintln(w, "ID\tPRODUCT\tTYPE\tMESSAGE\tSTATE")
		for _, a := range alerts {
			state := "open"
			if a.Resolved {
				state = "resolved"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", a.ID, a.ProductName, a.Type, a.Message, state)
		}
	})
	return nil
}

func (s *Shell) resolve(ctx context.Context, args []string) error {
	id, err := oneID(args, "usage: resolve <alert-id>")
	if err != nil {
		return err
	}
	if err := s.deps.Backend.ResolveAlert(ctx, id); err != nil {
		return err
	}
	s.printf("alert %d resolved\n", id)
	return nil
}

func (s *Shell) products(ctx context.Context, args []string) error {
	products, err := s.deps.Backend.ListProducts(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	if len(products) == 0 {
		s.printf("no products\n")
		return nil
	}
	s.table(func(w io.Writer) {
		fmt.Fprintln(w, "ID\tSKU\tNAME\tPRICE\tSTOCK\t")
		for _, p := range products {
			low := ""
			if p.LowStock() {
				low = "low"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s %s\t%s\n", p.ID, p.SKU, p.Name, p.Price.StringFixed(2), p.Stock.String(), p.Unit, low)
		}
	})
	return nil
}

func (s *Shell) stock(ctx context.Context, args []string) error {
	id, err := oneID(args, "usage: stock <product-id>")
	if err != nil {
		return err
	}
	entries, err := s.deps.Backend.ListInventoryEntries(ctx, id)
	if err != nil {
		return err
	}
	s.table(func(w io.Writer) {
		fmt.Fprintln(w, "WHEN\tTYPE\tQTY\tUSER\tNOTE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", when(e.CreatedAt), e.Type, e.Delta().String(), e.Username, e.Note)
		}
	})
	s.printf("balance: %s\n", inventorydomain.Balance(entries).String())
	return nil
}

func (s *Shell) move(ctx context.Context, args []string) error {
	const usage = "usage: move <product-id> in|out|adjustment <quantity> [note]"
	if len(args) < 3 {
		return errors.New(usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errors.New(usage)
	}
	qty, err := decimal.NewFromString(args[2])
	if err != nil {
		return fmt.Errorf("quantity %q: %w", args[2], err)
	}
	in := inventorydomain.Input{
		ProductID: id,
		Type:      inventorydomain.EntryType(strings.ToUpper(args[1])),
		Quantity:  qty,
		Note:      strings.Join(args[3:], " "),
	}
	e, err := s.deps.Backend.CreateInventoryEntry(ctx, in)
	if err != nil {
		return err
	}
	s.printf("recorded movement %d (%s %s)\n", e.ID, e.Type, e.Quantity.String())
	return nil
}

func (s *Shell) users(ctx context.Context) error {
	users, err := s.deps.Users.ListUsers(ctx)
	if err != nil {
		return err
	}
	s.table(func(w io.Writer) {
		fmt.Fprintln(w, "ID\tUSERNAME\tNAME\tROLE")
		for _, u := range users {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.Name, strings.ToLower(string(u.Role)))
		}
	})
	return nil
}

func (s *Shell) dashboard(ctx context.Context) error {
	d, err := s.deps.Backend.DashboardSummary(ctx)
	if err != nil {
		return err
	}
	s.table(func(w io.Writer) {
		fmt.Fprintf(w, "products\t%d\n", d.TotalProducts)
		fmt.Fprintf(w, "low stock\t%d\n", d.LowStockProducts)
		fmt.Fprintf(w, "open alerts\t%d\n", d.UnresolvedAlerts)
		fmt.Fprintf(w, "movements today\t%d\n", d.MovementsToday)
		fmt.Fprintf(w, "inventory value\t%s\n", d.InventoryValue.StringFixed(2))
	})
	return nil
}

func (s *Shell) help() {
	s.printf(`commands:
  login <username> <password>   sign in
  whoami | check | logout
  logs                          activity log
  mine on|off                   only my changes (master accounts)
  revert <change-id>
  alerts [all] | resolve <alert-id>
  products [search] | stock <product-id>
  move <product-id> in|out|adjustment <quantity> [note]
  users | dashboard
  quit
`)
}

func (s *Shell) prompt() {
	s.printf("> ")
}

func (s *Shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) table(fill func(w io.Writer)) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fill(tw)
	if err := tw.Flush(); err != nil {
		s.logger.Debug("shell: flush failed", zap.Error(err))
	}
}

func oneID(args []string, usage string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New(usage)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New(usage)
	}
	return id, nil
}

func displayName(u *userdomain.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

func when(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
