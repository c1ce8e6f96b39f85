package printer

import "strings"

// TransportClass is the radio/profile a device is reached over
type TransportClass int

const (
	TransportUnknown TransportClass = iota
	TransportClassic
	TransportLowEnergy
	TransportSerialPort
)

var transportNames = [...]string{"unknown", "classic", "le", "spp"}

func (c TransportClass) String() string {
	if c < 0 || int(c) >= len(transportNames) {
		return "unknown"
	}
	return transportNames[c]
}

func (c TransportClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Device is one bonded peripheral as seen at enumeration time.
type Device struct {
	Address   string         `json:"address"`
	Name      string         `json:"name,omitempty"`
	Paired    bool           `json:"paired"`
	Connected bool           `json:"connected"`
	Class     TransportClass `json:"transport"`
	IsPrinter bool           `json:"printer"`
}

// Printers returns the printer-classified devices in enumeration order
func Printers(devices []Device) []Device {
	var out []Device
	for _, d := range devices {
		if d.IsPrinter {
			out = append(out, d)
		}
	}
	return out
}

// Bluetooth class of device: major class imaging (0x06) with the printer
// minor bit set.
const (
	codMajorMask    = 0x1F00
	codMajorImaging = 0x0600
	codPrinterBit   = 0x80
)

func isPrinterClass(cod uint32) bool {
	return cod&codMajorMask == codMajorImaging && cod&codPrinterBit != 0
}

func matchesName(name string, patterns []string) bool {
	name = strings.ToLower(name)
	if name == "" {
		return false
	}
	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && strings.Contains(name, p) {
			return true
		}
	}
	return false
}
