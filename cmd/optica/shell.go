package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"golang.org/x/term"

	"github.com/Skotchmaster/optica/internal/apiclient"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/session"
	"github.com/Skotchmaster/optica/internal/transport"
)

const requestTimeout = 15 * time.Second

type shell struct {
	api     *apiclient.Client
	session *session.Manager
	in      *os.File
	out     io.Writer

	outMu   sync.Mutex
	scanner *bufio.Scanner
}

func (s *shell) printf(format string, args ...any) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	fmt.Fprintf(s.out, format, args...)
}

// notify runs on timer goroutines as well as the input loop.
func (s *shell) notify(ev session.Event) {
	switch ev.Type {
	case session.EventExpiryWarning:
		s.printf("\n! session expires in under %s, run `refresh` to renew or `dismiss` to hide\n", session.DefaultWarningLead)
	case session.EventInactivityWarning:
		s.printf("\n! no activity detected, you will be logged out soon; type `extend` to stay\n")
	case session.EventLoggedOut:
		s.printf("\nlogged out (%s)\n", ev.Reason)
	case session.EventRedirectToLogin:
		s.printf("run `login <email>` to sign in again\n")
	case session.EventRestored:
		if snap := s.session.Snapshot(); snap.Session != nil {
			s.printf("restored session for %s\n", snap.Session.User.Email)
		}
	}
}

func (s *shell) loop(ctx context.Context) error {
	s.scanner = bufio.NewScanner(s.in)
	s.printf("optica client, type `help` for commands\n")
	for {
		s.printf("%s> ", s.prompt())
		if !s.scanner.Scan() {
			return s.scanner.Err()
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		s.session.RecordActivity(session.ActivityKeyboard)

		args := strings.Fields(line)
		if args[0] == "quit" || args[0] == "exit" {
			return nil
		}
		cctx, cancel := context.WithTimeout(ctx, requestTimeout)
		err := s.dispatch(cctx, args)
		cancel()
		if err != nil {
			s.printf("error: %s\n", describe(err))
		}
	}
}

func (s *shell) prompt() string {
	snap := s.session.Snapshot()
	if snap.Session == nil {
		return "optica"
	}
	return "optica:" + snap.Session.User.Email
}

func (s *shell) dispatch(ctx context.Context, args []string) error {
	switch args[0] {
	case "help":
		s.help()
		return nil
	case "login":
		return s.login(ctx, args[1:])
	case "logout":
		s.session.Logout(session.ReasonUser)
		return nil
	case "status":
		s.status()
		return nil
	case "refresh":
		sess, err := s.session.Refresh(ctx)
		if err != nil {
			return err
		}
		s.printf("token renewed, expires %s\n", sess.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	case "extend":
		return s.session.ExtendSession()
	case "dismiss":
		s.session.DismissWarning()
		return nil
	case "whoami":
		u, err := s.api.Profile(ctx)
		if err != nil {
			return err
		}
		s.printf("%s <%s> role=%s\n", u.Name, u.Email, u.Role)
		return nil
	case "client":
		return s.client(ctx, args[1:])
	case "rx":
		return s.prescription(ctx, args[1:])
	case "order":
		return s.order(ctx, args[1:])
	}
	return fmt.Errorf("unknown command %q", args[0])
}

func (s *shell) help() {
	s.printf(`commands:
  login <email>                    sign in (password is prompted)
  logout | status | refresh | extend | dismiss | whoami
  client get <national_id>
  client search <text>
  client add <national_id> <name...>
  rx list <national_id>
  rx latest <national_id> [distance|near]
  order get <number>
  order list <national_id>
  quit
`)
}

func (s *shell) login(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: login <email>")
	}
	pw, err := s.readPassword()
	if err != nil {
		return err
	}
	sess, err := s.session.Login(ctx, args[0], pw)
	if err != nil {
		return err
	}
	s.printf("welcome %s, session valid until %s\n", sess.User.Name, sess.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func (s *shell) readPassword() (string, error) {
	s.printf("password: ")
	fd := int(s.in.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		s.printf("\n")
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	if !s.scanner.Scan() {
		return "", errors.New("read password: no input")
	}
	return strings.TrimSpace(s.scanner.Text()), nil
}

func (s *shell) status() {
	snap := s.session.Snapshot()
	if snap.Session == nil {
		if snap.LastLogout != "" {
			s.printf("anonymous (last logout: %s)\n", snap.LastLogout)
		} else {
			s.printf("anonymous\n")
		}
		return
	}
	left := time.Until(snap.Session.ExpiresAt).Round(time.Second)
	s.printf("%s as %s, expires in %s, activity=%s\n", snap.State, snap.Session.User.Email, left, snap.Activity)
}

func (s *shell) client(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: client get|search|add ...")
	}
	switch args[0] {
	case "get":
		c, err := s.api.ClientByNationalID(ctx, args[1])
		if err != nil {
			return err
		}
		s.printClients([]models.Client{*c})
		return nil
	case "search":
		list, err := s.api.SearchClients(ctx, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		s.printClients(list)
		return nil
	case "add":
		if len(args) < 3 {
			return errors.New("usage: client add <national_id> <name...>")
		}
		c, err := s.api.FindOrCreateClient(ctx, transport.CreateClientRequest{NationalID: args[1], Name: strings.Join(args[2:], " ")})
		if err != nil {
			return err
		}
		s.printClients([]models.Client{*c})
		return nil
	}
	return fmt.Errorf("unknown client command %q", args[0])
}

func (s *shell) prescription(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: rx list|latest <national_id> [type]")
	}
	switch args[0] {
	case "list":
		list, err := s.api.PrescriptionsByClient(ctx, args[1])
		if err != nil {
			return err
		}
		s.printPrescriptions(list)
		return nil
	case "latest":
		var typ models.PrescriptionType
		if len(args) > 2 {
			typ = models.PrescriptionType(args[2])
		}
		p, err := s.api.LatestPrescription(ctx, args[1], typ)
		if apiclient.IsNotFound(err) {
			s.printf("no prescriptions on file\n")
			return nil
		}
		if err != nil {
			return err
		}
		s.printPrescriptions([]models.Prescription{*p})
		return nil
	}
	return fmt.Errorf("unknown rx command %q", args[0])
}

func (s *shell) order(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: order get <number> | order list <national_id>")
	}
	switch args[0] {
	case "get":
		n, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid order number %q", args[1])
		}
		w, err := s.api.WorkOrderByNumber(ctx, n)
		if err != nil {
			return err
		}
		s.printOrders([]models.WorkOrder{*w})
		return nil
	case "list":
		list, err := s.api.WorkOrdersByClient(ctx, args[1])
		if err != nil {
			return err
		}
		s.printOrders(list)
		return nil
	}
	return fmt.Errorf("unknown order command %q", args[0])
}

func (s *shell) table(write func(w io.Writer)) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	write(tw)
	tw.Flush()
}

func (s *shell) printClients(list []models.Client) {
	s.table(func(w io.Writer) {
		fmt.Fprintln(w, "NATIONAL ID\tNAME\tPHONE\tEMAIL")
		for _, c := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.NationalID, c.Name, c.Phone, c.Email)
		}
	})
}

func (s *shell) printPrescriptions(list []models.Prescription) {
	s.table(func(w io.Writer) {
		fmt.Fprintln(w, "DATE\tTYPE\tOD SPH/CYL/AXIS/ADD\tOS SPH/CYL/AXIS/ADD\tPD")
		for _, p := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				p.CreatedAt.Local().Format("2006-01-02"), p.Type, eye(p.RightEye), eye(p.LeftEye), p.PupillaryDistance)
		}
	})
}

func eye(e models.EyeData) string {
	return strings.Join([]string{dash(e.Sphere), dash(e.Cylinder), dash(e.Axis), dash(e.Addition)}, "/")
}

func dash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}

func (s *shell) printOrders(list []models.WorkOrder) {
	s.table(func(w io.Writer) {
		fmt.Fprintln(w, "NUMBER\tDATE\tTYPE\tCUSTOMER\tTOTAL\tBALANCE")
		for _, o := range list {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\n",
				o.OrderNumber, o.SaleDate.Local().Format("2006-01-02"), o.OrderType, o.Customer.Name, o.Purchase.Total, o.Purchase.Balance)
		}
	})
}

func describe(err error) string {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return "invalid email or password"
	case errors.Is(err, session.ErrNoSession):
		return "not logged in"
	case errors.As(err, &apiErr) && len(apiErr.Fields) > 0:
		parts := make([]string, 0, len(apiErr.Fields))
		for k, v := range apiErr.Fields {
			parts = append(parts, k+": "+v)
		}
		return apiErr.Message + " (" + strings.Join(parts, ", ") + ")"
	}
	return err.Error()
}
