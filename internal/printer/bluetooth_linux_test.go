//go:build linux

package printer

import (
	"errors"
	"strings"
	"testing"
)

func fakeBlueZ(outputs map[string]string) commandRunner {
	return func(name string, args ...string) ([]byte, error) {
		key := strings.Join(append([]string{name}, args...), " ")
		out, ok := outputs[key]
		if !ok {
			return nil, errors.New("exit status 1")
		}
		return []byte(out), nil
	}
}

func TestBondedDevicesLinux(t *testing.T) {
	b := New(Options{NamePatterns: []string{"label"}})
	b.run = fakeBlueZ(map[string]string{
		"bluetoothctl devices Paired": "Device 00:11:22:33:44:55 P21\nDevice AA:BB:CC:DD:EE:FF Headphones\nDevice 11:22:33:44:55:66 Label Maker\n",
		"bluetoothctl info 00:11:22:33:44:55": "Device 00:11:22:33:44:55 (public)\n\tName: P21\n\tIcon: printer\n\tConnected: no\n" +
			"\tUUID: Serial Port               (00001101-0000-1000-8000-00805f9b34fb)\n",
		"bluetoothctl info AA:BB:CC:DD:EE:FF": "Device AA:BB:CC:DD:EE:FF (public)\n\tName: Headphones\n\tClass: 0x00240404\n\tConnected: yes\n",
		"rfcomm -a":                           "rfcomm0: 00:1A:7D:DA:71:13 -> 00:11:22:33:44:55 channel 1 connected [tty-attached]\n",
	})

	devices, err := b.BondedDevices()
	if err != nil {
		t.Fatalf("BondedDevices() error = %v", err)
	}
	if len(devices) != 3 {
		t.Fatalf("BondedDevices() returned %d devices, want 3", len(devices))
	}

	p21 := devices[0]
	if !p21.IsPrinter || !p21.Paired || !p21.Connected || p21.Class != TransportSerialPort {
		t.Fatalf("P21 = %+v, want connected paired SPP printer", p21)
	}
	if devices[1].IsPrinter {
		t.Fatalf("headphones classified as printer: %+v", devices[1])
	}
	// info failed; the listed name still matches a pattern
	if maker := devices[2]; !maker.IsPrinter || maker.Name != "Label Maker" || !maker.Paired {
		t.Fatalf("Label Maker = %+v", maker)
	}
}

func TestBondedDevicesListFailure(t *testing.T) {
	b := New(Options{})
	b.run = fakeBlueZ(nil)
	if _, err := b.BondedDevices(); err == nil {
		t.Fatal("BondedDevices() succeeded without bluetoothctl")
	}
	if b.IsBluetoothAvailable() {
		t.Fatal("IsBluetoothAvailable() = true without bluetoothctl")
	}
}

func TestIsBluetoothAvailableLinux(t *testing.T) {
	b := New(Options{})
	b.run = fakeBlueZ(map[string]string{"bluetoothctl show": "Controller 00:1A:7D:DA:71:13 (public)\n\tPowered: yes\n"})
	if !b.IsBluetoothAvailable() {
		t.Fatal("IsBluetoothAvailable() = false for powered adapter")
	}
}
