package dispatch

import "fmt"

// SendFailedMessage is the Error outcome message for a failed transmission.
const SendFailedMessage = "Failed to send data to printer"

// OutcomeKind is the closed set of dispatch results
type OutcomeKind int

const (
	Success OutcomeKind = iota
	BluetoothDisabled
	NoPairedPrinter
	PrinterNotConnected
	Error
)

var outcomeNames = [...]string{"success", "bluetooth_disabled", "no_paired_printer", "printer_not_connected", "error"}

func (k OutcomeKind) String() string {
	if k < 0 || int(k) >= len(outcomeNames) {
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
	return outcomeNames[k]
}

func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Outcome is the single result of one dispatch call. Message is set only
// for Error.
type Outcome struct {
	Kind    OutcomeKind `json:"outcome"`
	Message string      `json:"message,omitempty"`
	Address string      `json:"address,omitempty"`
}

func (o Outcome) OK() bool {
	return o.Kind == Success
}

func (o Outcome) String() string {
	if o.Message != "" {
		return o.Kind.String() + ": " + o.Message
	}
	return o.Kind.String()
}

func failed(msg string) Outcome {
	return Outcome{Kind: Error, Message: msg}
}
