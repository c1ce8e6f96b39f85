//go:build !linux && !windows

package printer

func (b *Bluetooth) adapterPowered() bool { return false }

func (b *Bluetooth) listBonded() ([]Device, error) { return nil, ErrNotSupported }

func (b *Bluetooth) existingBinding(address string) string { return "" }

func (b *Bluetooth) bind(address string) (*Connection, error) { return nil, ErrNotSupported }
