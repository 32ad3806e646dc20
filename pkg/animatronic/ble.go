package animatronic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"tinygo.org/x/bluetooth"
)

// BLE identity of the skull firmware.
const (
	// DefaultDeviceName is the advertised name of the skull.
	DefaultDeviceName = "IndianaBones"

	serviceUUID  = "0b3a2666-6f1a-4262-9d6d-563a3d6a5867"
	commandUUID  = "a5228043-8350-4d13-9842-11a050d7896c"
	responseUUID = "1ea38cd0-6856-4f15-970a-3931b3b4a83d"
)

// BLEController talks to the skull over Bluetooth Low Energy.
//
// Command channel failures are deliberately non-fatal to callers' state
// machines: the skull may power-cycle mid-show and reconnect later.
type BLEController struct {
	deviceName string
	logger     *slog.Logger

	adapter *bluetooth.Adapter

	mu        sync.Mutex
	connected bool
	device    bluetooth.Device
	command   bluetooth.DeviceCharacteristic
}

// NewBLEController creates a controller for the named device.
// Pass an empty name to use DefaultDeviceName.
func NewBLEController(deviceName string, logger *slog.Logger) *BLEController {
	if deviceName == "" {
		deviceName = DefaultDeviceName
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BLEController{
		deviceName: deviceName,
		logger:     logger,
		adapter:    bluetooth.DefaultAdapter,
	}
}

// Connect scans for the device by name, connects, and subscribes to the
// response characteristic. Responses are logged and otherwise ignored.
func (c *BLEController) Connect(ctx context.Context) error {
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("animatronic: enable adapter: %w", err)
	}

	c.logger.Info("scanning for animatronic", "name", c.deviceName)

	found := make(chan bluetooth.ScanResult, 1)
	scanErr := make(chan error, 1)
	go func() {
		scanErr <- c.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
			if result.LocalName() != c.deviceName {
				return
			}
			adapter.StopScan()
			select {
			case found <- result:
			default:
			}
		})
	}()

	var result bluetooth.ScanResult
	select {
	case <-ctx.Done():
		c.adapter.StopScan()
		<-scanErr
		return fmt.Errorf("animatronic: scan for %q: %w", c.deviceName, ctx.Err())
	case err := <-scanErr:
		if err != nil {
			return fmt.Errorf("animatronic: scan: %w", err)
		}
		select {
		case result = <-found:
		default:
			return fmt.Errorf("animatronic: device %q not found", c.deviceName)
		}
	case result = <-found:
	}

	c.logger.Info("connecting to animatronic",
		"name", c.deviceName,
		"address", result.Address.String(),
	)

	device, err := c.adapter.Connect(result.Address, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("animatronic: connect: %w", err)
	}

	svcUUID := mustUUID(serviceUUID)
	cmdUUID := mustUUID(commandUUID)
	respUUID := mustUUID(responseUUID)

	services, err := device.DiscoverServices([]bluetooth.UUID{svcUUID})
	if err != nil || len(services) == 0 {
		device.Disconnect()
		return fmt.Errorf("animatronic: discover service: %w", err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{cmdUUID, respUUID})
	if err != nil {
		device.Disconnect()
		return fmt.Errorf("animatronic: discover characteristics: %w", err)
	}

	var command, response bluetooth.DeviceCharacteristic
	for _, ch := range chars {
		switch ch.UUID() {
		case cmdUUID:
			command = ch
		case respUUID:
			response = ch
		}
	}

	// Device notifications are informational only; they never feed the
	// talk state machine.
	if err := response.EnableNotifications(func(buf []byte) {
		c.logger.Info("animatronic response", "data", strings.TrimSpace(string(buf)))
	}); err != nil {
		c.logger.Warn("animatronic response notifications unavailable", "error", err)
	}

	c.mu.Lock()
	c.device = device
	c.command = command
	c.connected = true
	c.mu.Unlock()

	c.logger.Info("animatronic connected", "name", c.deviceName)
	return nil
}

// SendCommand writes one newline-terminated command to the command
// characteristic. Writes are serialized; the link is a single physical
// channel.
func (c *BLEController) SendCommand(ctx context.Context, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return fmt.Errorf("animatronic: not connected, dropping %q", cmd)
	}

	c.logger.Info("animatronic command", "cmd", cmd)
	if _, err := c.command.WriteWithoutResponse([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("animatronic: write %q: %w", cmd, err)
	}
	return nil
}

// Close disconnects from the device.
func (c *BLEController) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.connected = false

	if err := c.device.Disconnect(); err != nil {
		return fmt.Errorf("animatronic: disconnect: %w", err)
	}
	c.logger.Info("animatronic disconnected")
	return nil
}

func mustUUID(s string) bluetooth.UUID {
	u, err := bluetooth.ParseUUID(s)
	if err != nil {
		panic("animatronic: bad uuid constant: " + s)
	}
	return u
}

var _ Controller = (*BLEController)(nil)
