package console

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"affconsole/internal/export"
	"affconsole/internal/guard"
	"affconsole/internal/listing"
	"affconsole/internal/media/sniffer"
	"affconsole/internal/models"
	"affconsole/internal/notify"
)

func (a *App) buildCommands() map[string]command {
	return map[string]command{
		"login": {
			route: guard.LoginPath,
			usage: "-username name [-password secret]",
			run:   a.login,
		},
		"logout": {usage: "end the session", run: a.logout},
		"whoami": {usage: "show the logged-in user", run: a.whoami},
		"affiliators": {
			route: guard.AdminHome + "/affiliators",
			usage: "list|get|create|update|delete [flags]",
			run:   a.affiliators,
		},
		"customers": {
			route: guard.AdminHome + "/customers",
			usage: "list|get|create|update|delete [flags]",
			run:   a.customers,
		},
		"payments": {
			route: guard.AdminHome + "/payments",
			usage: "list|get|create|update|delete [flags]",
			run:   a.payments,
		},
		"summary": {
			route: guard.AdminHome + "/summary",
			usage: "-id affiliator-uuid",
			run:   a.summary,
		},
		"upload": {
			route: guard.AdminHome + "/upload",
			usage: "-file path [-payment uuid]",
			run:   a.upload,
		},
		"download": {
			route: "/download",
			usage: "-id payment-uuid [-out path]",
			run:   a.download,
		},
		"my-customers": {
			route: guard.AffiliatorHome + "/customers",
			usage: "[list flags]",
			run:   a.myCustomers,
		},
		"my-payments": {
			route: guard.AffiliatorHome + "/payments",
			usage: "[list flags]",
			run:   a.myPayments,
		},
	}
}

func (a *App) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return reported{err}
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	fs := a.flags("login")
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "account password, prompted when empty")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("%w: -username is required", ErrUsage)
	}
	if *password == "" {
		line, err := a.readLine("password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		*password = line
	}

	if _, err := a.session.Login(ctx, models.Credentials{Username: *username, Password: *password}); err != nil {
		return reported{err}
	}
	a.menu()
	return nil
}

func (a *App) logout(ctx context.Context, _ []string) error {
	if a.session.CurrentUser() == nil {
		a.notifier.Notify(notify.LevelInfo, a.msgs.T("auth.notLoggedIn"))
		return nil
	}
	a.session.Logout(ctx)
	return nil
}

func (a *App) whoami(ctx context.Context, _ []string) error {
	if a.session.CurrentUser() == nil {
		fmt.Fprintln(a.out, a.msgs.T("auth.notLoggedIn"))
		return nil
	}
	user, err := a.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.msgs.T("auth.whoami", user.Name, user.Username, user.Role.Label()))
	return nil
}

// listFlags are shared by every listing command.
type listFlags struct {
	search string
	page   int
	size   int
	width  int
	open   int
	expand int
	export bool
}

func (a *App) bindList(fs *flag.FlagSet) *listFlags {
	lf := &listFlags{}
	fs.StringVar(&lf.search, "search", "", "filter rows containing the term")
	fs.IntVar(&lf.page, "page", 1, "page number")
	fs.IntVar(&lf.size, "size", a.cfg.Listing.PageSize, "page size (10, 25 or 50)")
	fs.IntVar(&lf.width, "width", a.width, "terminal width used to pick the layout")
	fs.IntVar(&lf.open, "open", 0, "show the details of row N of the page")
	fs.IntVar(&lf.expand, "expand", 0, "expand row N in the card layout")
	fs.BoolVar(&lf.export, "export", false, "export the filtered rows to CSV")
	return lf
}

// showList drives a listing table from the parsed flags and renders it.
func showList[R any](a *App, lf *listFlags, prefix string, rows []R, cols []listing.Column[R], id func(R) string) error {
	table := listing.New(rows, cols, listing.Options[R]{
		Searchable: true,
		Exportable: true,
		Actions:    id,
		OnRowClick: func(row R) { printDetails(a.out, cols, row) },
		OnExport: export.ToFile[R](a.exportDir, prefix, func(path string, n int) {
			a.notifier.Notify(notify.LevelSuccess, a.msgs.T("export.done", n, path))
		}),
		PageSize:   a.cfg.Listing.PageSize,
		Breakpoint: a.cfg.Listing.WidthBreakpoint,
		Messages:   a.msgs,
	})

	if lf.size != table.PageSize() {
		if err := table.SetPageSize(lf.size); err != nil {
			return err
		}
	}
	if lf.search != "" {
		if err := table.SetSearch(lf.search); err != nil {
			return err
		}
	}
	table.SetPage(lf.page)

	if lf.export {
		return table.Export()
	}
	if lf.open > 0 {
		return table.Click(lf.open - 1)
	}
	if lf.expand > 0 {
		if err := table.ToggleExpand(lf.expand - 1); err != nil {
			return err
		}
	}
	return table.Render(a.out, lf.width)
}

func printDetails[R any](w io.Writer, cols []listing.Column[R], row R) {
	for _, col := range cols {
		text := col.Text(row)
		if text == "" {
			text = "-"
		}
		fmt.Fprintf(w, "%s: %s\n", col.Label, text)
	}
}

// readData decodes -data into v. A value starting with @ names a JSON file.
func readData(data string, v any) error {
	if data == "" {
		return fmt.Errorf("%w: -data is required", ErrUsage)
	}
	raw := []byte(data)
	if strings.HasPrefix(data, "@") {
		b, err := os.ReadFile(data[1:])
		if err != nil {
			return fmt.Errorf("read data file: %w", err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: decode data: %v", ErrUsage, err)
	}
	return nil
}

// resource bundles the gateway calls behind one CRUD command.
type resource[R any, In any] struct {
	name    string
	entity  string
	columns []listing.Column[R]
	id      func(R) string
	toInput func(R) In
	all     func(ctx context.Context, search string) ([]R, error)
	get     func(ctx context.Context, id string) (R, error)
	create  func(ctx context.Context, in In) (R, error)
	update  func(ctx context.Context, id string, in In) (R, error)
	remove  func(ctx context.Context, id string) error
}

func runResource[R any, In any](ctx context.Context, a *App, res resource[R, In], args []string) error {
	action := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		action, args = args[0], args[1:]
	}

	fs := a.flags(res.name + " " + action)
	switch action {
	case "list":
		lf := a.bindList(fs)
		if err := parse(fs, args); err != nil {
			return err
		}
		rows, err := res.all(ctx, "")
		if err != nil {
			return err
		}
		return showList(a, lf, res.name, rows, res.columns, res.id)

	case "get":
		id := fs.String("id", "", "record uuid")
		if err := parse(fs, args); err != nil {
			return err
		}
		row, err := res.get(ctx, *id)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "uuid: %s\n", res.id(row))
		printDetails(a.out, res.columns, row)
		return nil

	case "create":
		data := fs.String("data", "", "JSON object or @file")
		if err := parse(fs, args); err != nil {
			return err
		}
		var in In
		if err := readData(*data, &in); err != nil {
			return err
		}
		row, err := res.create(ctx, in)
		if err != nil {
			return err
		}
		a.notifier.Notify(notify.LevelSuccess, a.msgs.T("crud.created", a.msgs.T(res.entity)))
		fmt.Fprintf(a.out, "uuid: %s\n", res.id(row))
		return nil

	case "update":
		id := fs.String("id", "", "record uuid")
		data := fs.String("data", "", "JSON object or @file, merged onto the current record")
		if err := parse(fs, args); err != nil {
			return err
		}
		current, err := res.get(ctx, *id)
		if err != nil {
			return err
		}
		in := res.toInput(current)
		if err := readData(*data, &in); err != nil {
			return err
		}
		if _, err := res.update(ctx, *id, in); err != nil {
			return err
		}
		a.notifier.Notify(notify.LevelSuccess, a.msgs.T("crud.updated", a.msgs.T(res.entity)))
		return nil

	case "delete":
		id := fs.String("id", "", "record uuid")
		if err := parse(fs, args); err != nil {
			return err
		}
		if err := res.remove(ctx, *id); err != nil {
			return err
		}
		a.notifier.Notify(notify.LevelSuccess, a.msgs.T("crud.deleted", a.msgs.T(res.entity)))
		return nil
	}
	return fmt.Errorf("%w: unknown action %q", ErrUsage, action)
}

func (a *App) affiliators(ctx context.Context, args []string) error {
	return runResource(ctx, a, resource[models.Affiliator, models.AffiliatorInput]{
		name:    "affiliators",
		entity:  "entity.affiliator",
		columns: affiliatorColumns(a.msgs),
		id:      func(r models.Affiliator) string { return r.UUID },
		toInput: affiliatorInput,
		all:     a.client.AllAffiliators,
		get:     a.client.GetAffiliator,
		create:  a.client.CreateAffiliator,
		update:  a.client.UpdateAffiliator,
		remove:  a.client.DeleteAffiliator,
	}, args)
}

func (a *App) customers(ctx context.Context, args []string) error {
	return runResource(ctx, a, resource[models.Customer, models.CustomerInput]{
		name:    "customers",
		entity:  "entity.customer",
		columns: customerColumns(a.msgs, true),
		id:      func(r models.Customer) string { return r.UUID },
		toInput: customerInput,
		all:     a.client.AllCustomers,
		get:     a.client.GetCustomer,
		create:  a.client.CreateCustomer,
		update:  a.client.UpdateCustomer,
		remove:  a.client.DeleteCustomer,
	}, args)
}

func (a *App) payments(ctx context.Context, args []string) error {
	return runResource(ctx, a, resource[models.Payment, models.PaymentInput]{
		name:    "payments",
		entity:  "entity.payment",
		columns: paymentColumns(a.msgs, true),
		id:      func(r models.Payment) string { return r.UUID },
		toInput: paymentInput,
		all:     a.client.AllPayments,
		get:     a.client.GetPayment,
		create:  a.client.CreatePayment,
		update:  a.client.UpdatePayment,
		remove:  a.client.DeletePayment,
	}, args)
}

func (a *App) summary(ctx context.Context, args []string) error {
	fs := a.flags("summary")
	id := fs.String("id", "", "affiliator uuid")
	if err := parse(fs, args); err != nil {
		return err
	}
	sum, err := a.client.AffiliatorSummary(ctx, *id)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, a.msgs.T("summary.customers", sum.TotalCustomers))
	fmt.Fprintln(a.out, a.msgs.T("summary.payments", formatRupiah(sum.TotalPaymentsSinceJoin)))
	return nil
}

func (a *App) myCustomers(ctx context.Context, args []string) error {
	fs := a.flags("my-customers")
	lf := a.bindList(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	rows, err := a.client.MyCustomers(ctx)
	if err != nil {
		return err
	}
	return showList(a, lf, "my-customers", rows, customerColumns(a.msgs, false), func(r models.Customer) string { return r.UUID })
}

func (a *App) myPayments(ctx context.Context, args []string) error {
	fs := a.flags("my-payments")
	lf := a.bindList(fs)
	if err := parse(fs, args); err != nil {
		return err
	}
	rows, err := a.client.MyPayments(ctx)
	if err != nil {
		return err
	}
	return showList(a, lf, "my-payments", rows, paymentColumns(a.msgs, false), func(r models.Payment) string { return r.UUID })
}

// upload sends a proof file and, with -payment, attaches it to that payment.
func (a *App) upload(ctx context.Context, args []string) error {
	fs := a.flags("upload")
	path := fs.String("file", "", "proof image or PDF")
	paymentID := fs.String("payment", "", "payment uuid to attach the proof to")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: -file is required", ErrUsage)
	}

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("open proof: %w", err)
	}
	defer f.Close()

	stored, err := a.client.UploadProof(ctx, *path, f)
	if err != nil {
		return err
	}
	a.notifier.Notify(notify.LevelSuccess, a.msgs.T("upload.done", stored.Filename))

	if *paymentID == "" {
		fmt.Fprintf(a.out, "filename: %s\n", stored.Filename)
		return nil
	}
	payment, err := a.client.GetPayment(ctx, *paymentID)
	if err != nil {
		return err
	}
	in := paymentInput(payment)
	in.ProofImage = stored.Filename
	if _, err := a.client.UpdatePayment(ctx, *paymentID, in); err != nil {
		return err
	}
	a.notifier.Notify(notify.LevelSuccess, a.msgs.T("crud.updated", a.msgs.T("entity.payment")))
	return nil
}

func (a *App) download(ctx context.Context, args []string) error {
	fs := a.flags("download")
	id := fs.String("id", "", "payment uuid")
	out := fs.String("out", "", "destination file, defaults to proof-<uuid> in the export directory")
	if err := parse(fs, args); err != nil {
		return err
	}

	data, _, err := a.client.DownloadProof(ctx, *id)
	if err != nil {
		return err
	}

	dest := *out
	if dest == "" {
		ext := ".bin"
		if kind, err := sniffer.DetectHead(data); err == nil {
			ext = kind.Extension()
		}
		dest = filepath.Join(a.exportDir, "proof-"+*id+ext)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("save proof: %w", err)
	}
	a.notifier.Notify(notify.LevelSuccess, a.msgs.T("download.done", dest))
	return nil
}
