//go:build windows

package printer

import (
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// On Windows a paired SPP device is exposed as a COM port and the port name
// is its address.

func (b *Bluetooth) adapterPowered() bool {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, `SYSTEM\CurrentControlSet\Services\BTHPORT\Parameters`, registry.READ)
	if err != nil {
		return false
	}
	key.Close()
	return true
}

func (b *Bluetooth) listBonded() ([]Device, error) {
	ports, err := bluetoothCOMPorts()
	if err != nil {
		return nil, fmt.Errorf("failed to read serial port map: %w", err)
	}
	devices := make([]Device, 0, len(ports))
	for _, p := range ports {
		devices = append(devices, Device{
			Address:   p.port,
			Name:      p.name,
			Paired:    true,
			Class:     TransportSerialPort,
			IsPrinter: true,
		})
	}
	return devices, nil
}

type comPort struct {
	name string
	port string
}

// bluetoothCOMPorts reads Bluetooth COM port mappings from the registry
func bluetoothCOMPorts() ([]comPort, error) {
	key, err := registry.OpenKey(registry.LOCAL_MACHINE, `HARDWARE\DEVICEMAP\SERIALCOMM`, registry.READ)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	names, err := key.ReadValueNames(-1)
	if err != nil {
		return nil, err
	}

	var ports []comPort
	for _, name := range names {
		val, _, err := key.GetStringValue(name)
		if err != nil {
			continue
		}
		lower := strings.ToLower(name)
		if strings.Contains(lower, "bth") || strings.Contains(lower, "bluetooth") {
			ports = append(ports, comPort{name: name, port: val})
		}
	}
	return ports, nil
}

func (b *Bluetooth) existingBinding(address string) string {
	return ""
}

func (b *Bluetooth) bind(address string) (*Connection, error) {
	if !strings.HasPrefix(strings.ToUpper(address), "COM") {
		return nil, fmt.Errorf("invalid COM port: %s", address)
	}
	path := address
	// COM10 and up need the device namespace prefix
	if len(address) > 4 {
		path = `\\.\` + address
	}
	return &Connection{Address: address, DevicePath: path}, nil
}
