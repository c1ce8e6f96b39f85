// Package dispatch delivers label payloads to a bonded Bluetooth printer and
// reports a single typed outcome per call.
package dispatch

import (
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"label-dispatch/internal/encoder"
	"label-dispatch/internal/label"
	"label-dispatch/internal/logger"
	"label-dispatch/internal/metrics"
	"label-dispatch/internal/printer"
)

var ErrNoPayload = errors.New("no payload")

// Transport is the device capability the dispatcher drives. Implementations
// serialize sends to the same address.
type Transport interface {
	IsBluetoothAvailable() bool
	BondedDevices() ([]printer.Device, error)
	// Connect returns a nil connection or an error when the device cannot
	// be reached.
	Connect(address string) (*printer.Connection, error)
	Send(address string, data []byte) error
	encoder.Rasterizer
}

// Settings hold the media and languages used for payloads that do not
// carry their own template.
type Settings struct {
	// Language for item labels
	Language label.Language
	// TextMedia is the medium plain text payloads print on
	TextMedia         label.Template
	TestPrintLanguage label.Language
	// Threshold is passed to the encoder as is; 0 prints no image pixels
	Threshold uint8
	// LogoPath is the default logo for item labels
	LogoPath string
}

func DefaultSettings() Settings {
	return Settings{
		Language: label.LanguageTSPL,
		TextMedia: label.Template{
			Name:     "text",
			Width:    58,
			Height:   40,
			DPI:      203,
			Density:  8,
			Gap:      2,
			Language: label.LanguageTSPL,
			Copies:   1,
		},
		TestPrintLanguage: label.LanguageTSPL,
		Threshold:         encoder.DefaultThreshold,
	}
}

// Dispatcher holds no state between calls; every call enumerates devices
// and negotiates a connection afresh.
type Dispatcher struct {
	transport Transport
	encoder   *encoder.Encoder
	settings  Settings
}

func New(t Transport, s Settings) *Dispatcher {
	enc := encoder.New(t)
	enc.Threshold = s.Threshold
	return &Dispatcher{transport: t, encoder: enc, settings: s}
}

// Encoder exposes the protocol encoder for preview and offline encoding
func (d *Dispatcher) Encoder() *encoder.Encoder {
	return d.encoder
}

// Encode turns a payload into printer bytes without touching the transport.
func (d *Dispatcher) Encode(p Payload) ([]byte, error) {
	switch p := p.(type) {
	case Text:
		return d.encoder.EncodeText(d.settings.TextMedia, p.Content), nil
	case TemplateJob:
		return d.encoder.Encode(p.Template, p.Elements, p.Context), nil
	case ItemLabel:
		t, elements, ctx := d.ItemTemplate(p)
		return d.encoder.Encode(t, elements, ctx), nil
	case nil:
		return nil, ErrNoPayload
	}
	return nil, fmt.Errorf("unsupported payload %T", p)
}

// SendToPairedPrinter runs one dispatch: Bluetooth check, printer
// selection, connect unless already connected, encode and send.
func (d *Dispatcher) SendToPairedPrinter(p Payload) Outcome {
	start := time.Now()
	r := &run{
		d:       d,
		payload: p,
		log:     logger.With(zap.String("job", jobID()), zap.String("payload", Kind(p))),
	}
	for state := checkBluetooth; state != nil; {
		state = state(r)
	}

	metrics.ObserveDispatch(r.outcome.Kind.String(), time.Since(start))
	fields := []zap.Field{zap.Stringer("outcome", r.outcome.Kind), zap.Duration("elapsed", time.Since(start))}
	if r.outcome.Address != "" {
		fields = append(fields, zap.String("address", r.outcome.Address))
	}
	if r.outcome.Message != "" {
		fields = append(fields, zap.String("message", r.outcome.Message))
	}
	r.log.Info("Dispatch finished", fields...)
	return r.outcome
}

// TestPrint sends a fixed diagnostic label straight to address. Only
// Success or Error is returned.
func (d *Dispatcher) TestPrint(address string) Outcome {
	start := time.Now()
	log := logger.With(zap.String("job", jobID()), zap.String("payload", "test"), zap.String("address", address))

	data := d.encoder.Encode(TestLabel(d.settings.TestPrintLanguage), TestElements(address, d.settings.TestPrintLanguage), label.DataContext{})

	// Connect only sets up the binding Send writes through; its result
	// never gates the send. On Linux this can wait up to ConnectTimeout.
	if conn, err := d.transport.Connect(address); err != nil || conn == nil {
		log.Debug("Test print connect failed, sending anyway", zap.Error(err))
	}

	out := Outcome{Kind: Success, Address: address}
	if err := d.transport.Send(address, data); err != nil {
		log.Warn("Test print send failed", zap.Error(err))
		out = failed(SendFailedMessage)
		out.Address = address
	}
	metrics.ObserveDispatch(out.Kind.String(), time.Since(start))
	log.Info("Test print finished", zap.Stringer("outcome", out.Kind))
	return out
}

// AvailablePrinters lists bonded printer-classified devices, or nothing
// when Bluetooth is off.
func (d *Dispatcher) AvailablePrinters() []printer.Device {
	if !d.transport.IsBluetoothAvailable() {
		return nil
	}
	devices, err := d.transport.BondedDevices()
	if err != nil {
		logger.Warn("Failed to enumerate bonded devices", zap.Error(err))
		return nil
	}
	return printer.Printers(devices)
}

// SelectPrinter picks the dispatch target: the first connected printer in
// enumeration order, else the first printer. ok is false for an empty list.
func SelectPrinter(printers []printer.Device) (printer.Device, bool) {
	if len(printers) == 0 {
		return printer.Device{}, false
	}
	for _, p := range printers {
		if p.Connected {
			return p, true
		}
	}
	return printers[0], true
}

func jobID() string {
	id, err := gonanoid.New(10)
	if err != nil {
		return "unknown"
	}
	return id
}
