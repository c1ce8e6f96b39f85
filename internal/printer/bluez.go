package printer

import (
	"strconv"
	"strings"
)

// parseDeviceList reads `bluetoothctl devices` output:
// "Device XX:XX:XX:XX:XX:XX DeviceName"
func parseDeviceList(out string) []Device {
	var devices []Device
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Device ") {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(line, "Device "), " ", 2)
		d := Device{Address: parts[0]}
		if len(parts) == 2 {
			d.Name = strings.TrimSpace(parts[1])
		}
		devices = append(devices, d)
	}
	return devices
}

// parseDeviceInfo reads `bluetoothctl info <address>` output.
func parseDeviceInfo(address, out string) Device {
	d := Device{Address: address}
	var (
		hasClass, serialPort, gatt, random bool
		cod                                uint64
	)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Device ") {
			random = strings.Contains(line, "(random)")
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch key {
		case "Name":
			d.Name = value
		case "Alias":
			if d.Name == "" {
				d.Name = value
			}
		case "Class":
			if v, err := strconv.ParseUint(strings.TrimPrefix(value, "0x"), 16, 32); err == nil {
				cod, hasClass = v, true
			}
		case "Icon":
			if value == "printer" {
				d.IsPrinter = true
			}
		case "Paired":
			d.Paired = value == "yes"
		case "Connected":
			d.Connected = value == "yes"
		case "UUID":
			switch {
			case strings.HasPrefix(value, "Serial Port"):
				serialPort = true
			case strings.HasPrefix(value, "Generic Attribute"), strings.HasPrefix(value, "Generic Access"):
				gatt = true
			}
		}
	}

	if hasClass && isPrinterClass(uint32(cod)) {
		d.IsPrinter = true
	}
	switch {
	case serialPort:
		d.Class = TransportSerialPort
	case hasClass:
		d.Class = TransportClassic
	case random || gatt:
		d.Class = TransportLowEnergy
	}
	return d
}

// parsePowered reads the adapter state from `bluetoothctl show`
func parsePowered(out string) bool {
	for _, line := range strings.Split(out, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if ok && key == "Powered" {
			return strings.TrimSpace(value) == "yes"
		}
	}
	return false
}

// binding is one RFCOMM tty
type binding struct {
	device  string // rfcommN
	address string
	channel int
	state   string
}

func (b binding) connected() bool {
	return b.state == "connected"
}

// parseBindings reads `rfcomm -a` output:
// "rfcomm0: 00:1A:7D:DA:71:13 -> 00:11:22:33:44:55 channel 1 connected [tty-attached]"
func parseBindings(out string) []binding {
	var bindings []binding
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.HasPrefix(fields[0], "rfcomm") {
			continue
		}
		b := binding{device: strings.TrimSuffix(fields[0], ":")}
		rest := fields[1:]
		if len(rest) >= 3 && rest[1] == "->" {
			rest = rest[2:]
		}
		b.address = normalizeAddress(rest[0])
		for i := 1; i < len(rest); i++ {
			if rest[i] == "channel" && i+1 < len(rest) {
				b.channel, _ = strconv.Atoi(rest[i+1])
				if i+2 < len(rest) && !strings.HasPrefix(rest[i+2], "[") {
					b.state = rest[i+2]
				}
				break
			}
		}
		bindings = append(bindings, b)
	}
	return bindings
}
