// Command labelctl prints labels on a bonded Bluetooth printer and runs the
// HTTP print agent.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"label-dispatch/internal/config"
	"label-dispatch/internal/dispatch"
	"label-dispatch/internal/label"
	"label-dispatch/internal/logger"
	"label-dispatch/internal/metrics"
	"label-dispatch/internal/preview"
	"label-dispatch/internal/printer"
	"label-dispatch/internal/server"
)

const usage = `usage: labelctl <command> [flags]

commands:
  printers     list bonded printers
  print        print a template file
  text         print plain text
  item         print an item label
  test-print   print a diagnostic label on an address
  encode       write the printer bytes of a template or text without printing
  preview      render a template to PNG
  serve        run the HTTP print agent
`

type app struct {
	cfg       config.Config
	transport *printer.Bluetooth
	d         *dispatch.Dispatcher
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LogLevel, cfg.Development); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	metrics.Init(prometheus.DefaultRegisterer)

	transport := printer.New(cfg.PrinterOptions())
	a := &app{cfg: cfg, transport: transport, d: dispatch.New(transport, cfg.DispatchSettings())}

	code := a.run(os.Args[1], os.Args[2:])
	if err := transport.Close(); err != nil {
		logger.Warn("Failed to release printer bindings", zap.Error(err))
	}
	logger.Sync()
	os.Exit(code)
}

func (a *app) run(cmd string, args []string) int {
	var err error
	switch cmd {
	case "printers":
		err = a.printers(args)
	case "print":
		err = a.print(args)
	case "text":
		err = a.text(args)
	case "item":
		err = a.item(args)
	case "test-print":
		err = a.testPrint(args)
	case "encode":
		err = a.encode(args)
	case "preview":
		err = a.preview(args)
	case "serve":
		err = a.serve(args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	var failed outcomeError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &failed):
		fmt.Fprintln(os.Stderr, failed.outcome)
		return 1
	case errors.Is(err, flag.ErrHelp):
		return 2
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", cmd, err)
	return 1
}

type outcomeError struct {
	outcome dispatch.Outcome
}

func (e outcomeError) Error() string {
	return e.outcome.String()
}

func report(out dispatch.Outcome) error {
	if !out.OK() {
		return outcomeError{out}
	}
	fmt.Printf("printed on %s\n", out.Address)
	return nil
}

func (a *app) printers(args []string) error {
	fs := flag.NewFlagSet("printers", flag.ContinueOnError)
	all := fs.Bool("all", false, "list every bonded device, not only printers")
	asJSON := fs.Bool("json", false, "JSON output")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var devices []printer.Device
	if *all {
		if !a.transport.IsBluetoothAvailable() {
			return errors.New("bluetooth is disabled")
		}
		var err error
		if devices, err = a.transport.BondedDevices(); err != nil {
			return err
		}
	} else {
		devices = a.d.AvailablePrinters()
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(devices)
	}
	for _, d := range devices {
		state := "paired"
		if d.Connected {
			state = "connected"
		}
		printerMark := ""
		if d.IsPrinter {
			printerMark = " printer"
		}
		fmt.Printf("%s  %-24s %-9s %s%s\n", d.Address, d.Name, state, d.Class, printerMark)
	}
	return nil
}

func templateFlags(fs *flag.FlagSet) (tmpl, ctx *string) {
	tmpl = fs.String("template", "", "template file (YAML)")
	ctx = fs.String("context", "", "data context file (YAML)")
	return tmpl, ctx
}

func loadJob(tmplPath, ctxPath string) (dispatch.TemplateJob, error) {
	if tmplPath == "" {
		return dispatch.TemplateJob{}, errors.New("-template is required")
	}
	t, elements, err := label.LoadTemplateFile(tmplPath)
	if err != nil {
		return dispatch.TemplateJob{}, err
	}
	var dc label.DataContext
	if ctxPath != "" {
		if dc, err = label.LoadContextFile(ctxPath); err != nil {
			return dispatch.TemplateJob{}, err
		}
	}
	return dispatch.TemplateJob{Template: t, Elements: elements, Context: dc}, nil
}

func (a *app) print(args []string) error {
	fs := flag.NewFlagSet("print", flag.ContinueOnError)
	tmpl, ctx := templateFlags(fs)
	copies := fs.Int("copies", 0, "override the template copy count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	job, err := loadJob(*tmpl, *ctx)
	if err != nil {
		return err
	}
	if *copies > 0 {
		job.Template.Copies = *copies
	}
	return report(a.d.SendToPairedPrinter(job))
}

func textArg(fs *flag.FlagSet, file string) (string, error) {
	if file != "" {
		var data []byte
		var err error
		if file == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		return strings.TrimRight(string(data), "\n"), err
	}
	if fs.NArg() == 0 {
		return "", errors.New("no text given")
	}
	return strings.Join(fs.Args(), " "), nil
}

func (a *app) text(args []string) error {
	fs := flag.NewFlagSet("text", flag.ContinueOnError)
	file := fs.String("file", "", "read text from file (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	content, err := textArg(fs, *file)
	if err != nil {
		return err
	}
	return report(a.d.SendToPairedPrinter(dispatch.Text{Content: content}))
}

func (a *app) item(args []string) error {
	fs := flag.NewFlagSet("item", flag.ContinueOnError)
	var il dispatch.ItemLabel
	fs.StringVar(&il.Item.ItemID, "id", "", "item id")
	fs.StringVar(&il.Item.Name, "name", "", "item name")
	fs.Float64Var(&il.Item.Price, "price", 0, "price")
	fs.StringVar(&il.Format, "format", "small", "small, medium or large")
	fs.BoolVar(&il.IncludeQR, "qr", false, "include a QR code of the item id")
	fs.StringVar(&il.LogoPath, "logo", "", "logo image; enables the logo")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if il.Item.ItemID == "" {
		return errors.New("-id is required")
	}
	il.IncludeLogo = il.LogoPath != "" || a.cfg.LogoPath != ""
	return report(a.d.SendToPairedPrinter(il))
}

func (a *app) testPrint(args []string) error {
	fs := flag.NewFlagSet("test-print", flag.ContinueOnError)
	address := fs.String("address", "", "device address (COM port on Windows)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *address == "" {
		return errors.New("-address is required")
	}
	return report(a.d.TestPrint(*address))
}

func output(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func (a *app) encode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	tmpl, ctx := templateFlags(fs)
	text := fs.String("text", "", "encode plain text instead of a template")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var p dispatch.Payload = dispatch.Text{Content: *text}
	if *text == "" {
		job, err := loadJob(*tmpl, *ctx)
		if err != nil {
			return err
		}
		p = job
	}
	data, err := a.d.Encode(p)
	if err != nil {
		return err
	}
	w, err := output(*out)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (a *app) preview(args []string) error {
	fs := flag.NewFlagSet("preview", flag.ContinueOnError)
	tmpl, ctx := templateFlags(fs)
	out := fs.String("o", "preview.png", "output PNG file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	job, err := loadJob(*tmpl, *ctx)
	if err != nil {
		return err
	}
	r := preview.New()
	r.Threshold = uint8(a.cfg.Threshold)
	r.Dither = a.cfg.Dither

	w, err := output(*out)
	if err != nil {
		return err
	}
	if err := r.WritePNG(w, job.Template, job.Elements, job.Context); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (a *app) serve(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.ListenAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.New(a.d).ListenAndServe(ctx, *addr)
}
