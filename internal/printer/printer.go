// Package printer is the Bluetooth transport for label printers: adapter
// state, bonded device enumeration, serial port binding and raw writes.
package printer

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"label-dispatch/internal/imaging"
	"label-dispatch/internal/logger"
	"label-dispatch/internal/metrics"
)

var (
	ErrNotConnected      = errors.New("printer not connected")
	ErrTimeout           = errors.New("operation timed out")
	ErrRFCOMMFailed      = errors.New("failed to establish RFCOMM connection")
	ErrPrivilegeRequired = errors.New("root privileges required for RFCOMM")
	ErrNotSupported      = errors.New("operation not supported on this platform")
)

// Options configure the serial link and printer classification
type Options struct {
	Channel        int
	BaudRate       int
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration
	// NamePatterns mark a bonded device as a printer when its name contains
	// one of them (case-insensitive).
	NamePatterns []string
}

func DefaultOptions() Options {
	return Options{
		Channel:        1,
		BaudRate:       115200,
		ConnectTimeout: 15 * time.Second,
		WriteTimeout:   10 * time.Second,
		NamePatterns:   []string{"printer", "label", "p21", "tspl", "cpcl", "pos"},
	}
}

// Connection is a live serial binding to one device
type Connection struct {
	Address    string
	DevicePath string
	release    func() error
}

// Close releases the binding if this process created it
func (c *Connection) Close() error {
	if c == nil || c.release == nil {
		return nil
	}
	return c.release()
}

type commandRunner func(name string, args ...string) ([]byte, error)

type portOpener func(path string, mode *serial.Mode) (serial.Port, error)

func runCommand(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Bluetooth is the platform transport. Sends to the same address are
// serialized; different addresses proceed in parallel.
type Bluetooth struct {
	opts Options
	run  commandRunner
	open portOpener

	mu    sync.Mutex
	conns map[string]*Connection
	locks map[string]*sync.Mutex
}

func New(opts Options) *Bluetooth {
	def := DefaultOptions()
	if opts.Channel <= 0 {
		opts.Channel = def.Channel
	}
	if opts.BaudRate <= 0 {
		opts.BaudRate = def.BaudRate
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = def.ConnectTimeout
	}
	if opts.NamePatterns == nil {
		opts.NamePatterns = def.NamePatterns
	}
	return &Bluetooth{
		opts:  opts,
		run:   runCommand,
		open:  serial.Open,
		conns: make(map[string]*Connection),
		locks: make(map[string]*sync.Mutex),
	}
}

// IsBluetoothAvailable reports whether a powered adapter is present
func (b *Bluetooth) IsBluetoothAvailable() bool {
	return b.adapterPowered()
}

// BondedDevices enumerates paired devices fresh on every call.
func (b *Bluetooth) BondedDevices() ([]Device, error) {
	devices, err := b.listBonded()
	if err != nil {
		return nil, err
	}
	for i := range devices {
		if !devices[i].IsPrinter {
			devices[i].IsPrinter = matchesName(devices[i].Name, b.opts.NamePatterns)
		}
	}
	return devices, nil
}

// Connect returns a serial binding for address, reusing one that already
// exists.
func (b *Bluetooth) Connect(address string) (*Connection, error) {
	lock := b.addressLock(address)
	lock.Lock()
	defer lock.Unlock()

	if conn := b.connection(address); conn != nil {
		return conn, nil
	}
	if path := b.existingBinding(address); path != "" {
		conn := &Connection{Address: address, DevicePath: path}
		b.remember(conn)
		return conn, nil
	}

	conn, err := b.bind(address)
	if err != nil {
		return nil, err
	}
	b.remember(conn)
	logger.Info("Printer connected", zap.String("address", address), zap.String("device", conn.DevicePath))
	return conn, nil
}

// Send writes data to the device bound for address.
func (b *Bluetooth) Send(address string, data []byte) error {
	lock := b.addressLock(address)
	lock.Lock()
	defer lock.Unlock()

	path := ""
	if conn := b.connection(address); conn != nil {
		path = conn.DevicePath
	} else {
		path = b.existingBinding(address)
	}
	if path == "" {
		return ErrNotConnected
	}

	mode := &serial.Mode{
		BaudRate: b.opts.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := b.open(path, mode)
	if err != nil {
		b.forget(address)
		return fmt.Errorf("failed to open port %s: %w", path, err)
	}
	defer port.Close()

	if err := writeAll(port, data, b.opts.WriteTimeout); err != nil {
		return fmt.Errorf("write to %s failed: %w", path, err)
	}
	metrics.BytesSent(len(data))
	logger.Debug("Sent print data", zap.String("address", address), zap.Int("bytes", len(data)))
	return nil
}

// BitmapToRaster packs img into 1-bit rows for the printer's raster commands.
func (b *Bluetooth) BitmapToRaster(img image.Image, widthDots, heightDots int, opts imaging.RasterOptions) []byte {
	return imaging.ToMonochrome(img, widthDots, heightDots, opts)
}

// Close releases every binding this transport created
func (b *Bluetooth) Close() error {
	b.mu.Lock()
	conns := b.conns
	b.conns = make(map[string]*Connection)
	b.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bluetooth) addressLock(address string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := normalizeAddress(address)
	l, ok := b.locks[key]
	if !ok {
		l = &sync.Mutex{}
		b.locks[key] = l
	}
	return l
}

func (b *Bluetooth) connection(address string) *Connection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conns[normalizeAddress(address)]
}

func (b *Bluetooth) remember(c *Connection) {
	b.mu.Lock()
	b.conns[normalizeAddress(c.Address)] = c
	b.mu.Unlock()
}

func (b *Bluetooth) forget(address string) {
	b.mu.Lock()
	delete(b.conns, normalizeAddress(address))
	b.mu.Unlock()
}

// writeAll writes data and drains the port. A stuck write is abandoned by
// closing the port after timeout.
func writeAll(port serial.Port, data []byte, timeout time.Duration) error {
	done := make(chan error, 1)
	go func() {
		for len(data) > 0 {
			n, err := port.Write(data)
			if err == nil && n == 0 {
				err = io.ErrShortWrite
			}
			if err != nil {
				done <- err
				return
			}
			data = data[n:]
		}
		done <- port.Drain()
	}()

	if timeout <= 0 {
		return <-done
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-done:
		return err
	case <-timer.C:
		port.Close()
		return ErrTimeout
	}
}

func normalizeAddress(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}
