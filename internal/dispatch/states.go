package dispatch

import (
	"go.uber.org/zap"

	"label-dispatch/internal/printer"
)

// run is the state of one dispatch call
type run struct {
	d       *Dispatcher
	payload Payload
	log     *zap.Logger

	target  printer.Device
	outcome Outcome
}

// stateFn returns the next state, or nil once outcome is set.
type stateFn func(*run) stateFn

func (r *run) done(o Outcome) stateFn {
	if o.Address == "" {
		o.Address = r.target.Address
	}
	r.outcome = o
	return nil
}

func checkBluetooth(r *run) stateFn {
	if !r.d.transport.IsBluetoothAvailable() {
		return r.done(Outcome{Kind: BluetoothDisabled})
	}
	r.log.Debug("Bluetooth available")
	return checkPrinters
}

func checkPrinters(r *run) stateFn {
	devices, err := r.d.transport.BondedDevices()
	if err != nil {
		r.log.Warn("Failed to enumerate bonded devices", zap.Error(err))
	}
	target, ok := SelectPrinter(printer.Printers(devices))
	if !ok {
		return r.done(Outcome{Kind: NoPairedPrinter})
	}
	r.target = target
	r.log.Debug("Selected printer",
		zap.String("address", target.Address),
		zap.String("name", target.Name),
		zap.Bool("connected", target.Connected),
		zap.Int("candidates", len(printer.Printers(devices))))
	if target.Connected {
		return useConnected
	}
	return connect
}

func useConnected(r *run) stateFn {
	r.log.Debug("Reusing live connection", zap.String("address", r.target.Address))
	return send
}

func connect(r *run) stateFn {
	conn, err := r.d.transport.Connect(r.target.Address)
	if err != nil || conn == nil {
		r.log.Warn("Printer connect failed", zap.String("address", r.target.Address), zap.Error(err))
		return r.done(Outcome{Kind: PrinterNotConnected})
	}
	r.log.Debug("Connected", zap.String("address", r.target.Address), zap.String("device", conn.DevicePath))
	return send
}

func send(r *run) stateFn {
	data, err := r.d.Encode(r.payload)
	if err != nil {
		r.log.Error("Failed to encode payload", zap.Error(err))
		return r.done(failed(err.Error()))
	}
	if err := r.d.transport.Send(r.target.Address, data); err != nil {
		r.log.Warn("Send failed", zap.String("address", r.target.Address), zap.Int("bytes", len(data)), zap.Error(err))
		return r.done(failed(SendFailedMessage))
	}
	r.log.Debug("Sent", zap.Int("bytes", len(data)))
	return r.done(Outcome{Kind: Success})
}
