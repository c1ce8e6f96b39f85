//go:build linux

package printer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"label-dispatch/internal/logger"
)

const maxRFCOMMDevices = 10

func (b *Bluetooth) adapterPowered() bool {
	out, err := b.run("bluetoothctl", "show")
	if err != nil {
		logger.Debug("bluetoothctl show failed", zap.Error(err))
		return false
	}
	return parsePowered(string(out))
}

func (b *Bluetooth) listBonded() ([]Device, error) {
	out, err := b.run("bluetoothctl", "devices", "Paired")
	if err != nil {
		return nil, fmt.Errorf("failed to list paired devices: %w", err)
	}

	bound := b.bindings()
	var devices []Device
	for _, listed := range parseDeviceList(string(out)) {
		d := listed
		if info, err := b.run("bluetoothctl", "info", listed.Address); err == nil {
			d = parseDeviceInfo(listed.Address, string(info))
			if d.Name == "" {
				d.Name = listed.Name
			}
		} else {
			logger.Debug("bluetoothctl info failed", zap.String("address", listed.Address), zap.Error(err))
		}
		d.Paired = true
		if bd, ok := bound[normalizeAddress(d.Address)]; ok && bd.connected() {
			d.Connected = true
		}
		devices = append(devices, d)
	}
	return devices, nil
}

// bindings maps device addresses to their current RFCOMM ttys
func (b *Bluetooth) bindings() map[string]binding {
	m := make(map[string]binding)
	out, err := b.run("rfcomm", "-a")
	if err != nil {
		return m
	}
	for _, bd := range parseBindings(string(out)) {
		m[bd.address] = bd
	}
	return m
}

func (b *Bluetooth) existingBinding(address string) string {
	bd, ok := b.bindings()[normalizeAddress(address)]
	if !ok {
		return ""
	}
	path := "/dev/" + bd.device
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// freeRFCOMMDevice finds an unused /dev/rfcommN device number
func (b *Bluetooth) freeRFCOMMDevice() (string, error) {
	for i := 0; i < maxRFCOMMDevices; i++ {
		devPath := fmt.Sprintf("/dev/rfcomm%d", i)
		out, _ := b.run("rfcomm", "show", devPath)
		if len(out) == 0 || strings.Contains(string(out), "No such device") {
			return devPath, nil
		}
	}
	return "", fmt.Errorf("no available RFCOMM device slots")
}

// privilegeHelper picks pkexec (works under a desktop session) over sudo
func privilegeHelper() string {
	if _, err := exec.LookPath("pkexec"); err == nil {
		return "pkexec"
	}
	if _, err := exec.LookPath("sudo"); err == nil {
		return "sudo"
	}
	return ""
}

func privileged(ctx context.Context, helper string, args ...string) *exec.Cmd {
	if helper == "pkexec" {
		return exec.CommandContext(ctx, "pkexec", append([]string{"rfcomm"}, args...)...)
	}
	return exec.CommandContext(ctx, "sudo", append([]string{"-n", "rfcomm"}, args...)...)
}

// bind runs `rfcomm connect` in the background and returns once the tty
// appears.
func (b *Bluetooth) bind(address string) (*Connection, error) {
	if _, err := exec.LookPath("rfcomm"); err != nil {
		return nil, fmt.Errorf("rfcomm not found - install bluez: %w", err)
	}
	devPath, err := b.freeRFCOMMDevice()
	if err != nil {
		return nil, err
	}
	helper := privilegeHelper()
	if helper == "" {
		return nil, ErrPrivilegeRequired
	}

	ctx, cancel := context.WithCancel(context.Background())
	cmd := privileged(ctx, helper, "connect", devPath, address, strconv.Itoa(b.opts.Channel))
	stdout, _ := cmd.StdoutPipe()
	stderr, _ := cmd.StderrPipe()

	log := logger.With(zap.String("address", address), zap.String("device", devPath))
	log.Debug("Starting rfcomm connect", zap.String("helper", helper), zap.Int("channel", b.opts.Channel))
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start rfcomm: %w", err)
	}
	for _, r := range []io.Reader{stdout, stderr} {
		go func(r io.Reader) {
			scanner := bufio.NewScanner(r)
			for scanner.Scan() {
				log.Debug("rfcomm", zap.String("output", scanner.Text()))
			}
		}(r)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	conn := &Connection{
		Address:    address,
		DevicePath: devPath,
		release: func() error {
			err := privileged(context.Background(), helper, "release", devPath).Run()
			cancel()
			<-exited
			return err
		},
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.NewTimer(b.opts.ConnectTimeout)
	defer timeout.Stop()
	for {
		select {
		case err := <-exited:
			cancel()
			return nil, fmt.Errorf("%w: rfcomm exited: %v", ErrRFCOMMFailed, err)
		case <-timeout.C:
			conn.Close()
			return nil, fmt.Errorf("%w: timeout waiting for %s", ErrRFCOMMFailed, devPath)
		case <-ticker.C:
			if _, err := os.Stat(devPath); err == nil {
				// tty exists before the link is usable
				time.Sleep(500 * time.Millisecond)
				return conn, nil
			}
		}
	}
}
