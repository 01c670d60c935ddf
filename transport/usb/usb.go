// Package usb implements the transport.Transport contract over a USB-bulk
// connected reader: one PN53x frame per bulk-OUT transfer, bulk-IN
// carrying ACK then the reply frame (§6.2).
package usb

import (
	gocontext "context"
	"fmt"
	"time"

	"github.com/google/gousb"

	"pn53x.dev/transport"
)

// VIDPID identifies one of the supported USB-bulk PN53x-family readers.
type VIDPID struct {
	Vendor, Product gousb.ID
	Name            string
}

// SupportedDevices is the §6.2 vendor/product catalog.
var SupportedDevices = []VIDPID{
	{0x04CC, 0x0531, "NXP PN531"},
	{0x054C, 0x0193, "Sony PN531"},
	{0x04E6, 0x5591, "SCM SCL3711"},
	{0x1FD3, 0x0608, "ASK LoGO"},
	{0x04CC, 0x2533, "NXP PN533"},
	{0x072F, 0x2200, "ACR122"},
	{0x072F, 0x90CC, "Touchatag"},
}

const (
	configNum = 1
	ifaceNum  = 0
	altNum    = 0

	// Most PN53x USB readers report a 64-byte bulk endpoint.
	maxPacketSize = 64
)

// Transport implements transport.Transport over github.com/google/gousb.
type Transport struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	config *gousb.Config
	intf   *gousb.Interface
	epIn   *gousb.InEndpoint
	epOut  *gousb.OutEndpoint

	aborted chan struct{}
	buf     []byte
	scratch [maxPacketSize]byte
}

// Open opens the first attached device matching one of SupportedDevices,
// or a specific one if vid/pid are both non-zero.
func Open(vid, pid gousb.ID) (*Transport, error) {
	ctx := gousb.NewContext()
	candidates := SupportedDevices
	if vid != 0 && pid != 0 {
		candidates = []VIDPID{{Vendor: vid, Product: pid}}
	}
	var dev *gousb.Device
	for _, c := range candidates {
		d, err := ctx.OpenDeviceWithVIDPID(c.Vendor, c.Product)
		if err != nil {
			continue
		}
		if d != nil {
			dev = d
			break
		}
	}
	if dev == nil {
		ctx.Close()
		return nil, fmt.Errorf("usb: no supported PN53x reader found")
	}
	config, err := dev.Config(configNum)
	if err != nil {
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: set config %d: %w", configNum, err)
	}
	intf, err := config.Interface(ifaceNum, altNum)
	if err != nil {
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, fmt.Errorf("usb: claim interface %d: %w", ifaceNum, err)
	}
	epOut, epIn, err := firstBulkPair(intf)
	if err != nil {
		intf.Close()
		config.Close()
		dev.Close()
		ctx.Close()
		return nil, err
	}
	return &Transport{
		ctx: ctx, dev: dev, config: config, intf: intf,
		epOut: epOut, epIn: epIn,
		aborted: make(chan struct{}, 1),
	}, nil
}

func firstBulkPair(intf *gousb.Interface) (*gousb.OutEndpoint, *gousb.InEndpoint, error) {
	const bulkEndpointNum = 1 // OUT and IN both use endpoint number 1 on every supported reader.
	epOut, err := intf.OutEndpoint(bulkEndpointNum)
	if err != nil {
		return nil, nil, fmt.Errorf("usb: open OUT endpoint: %w", err)
	}
	epIn, err := intf.InEndpoint(bulkEndpointNum)
	if err != nil {
		return nil, nil, fmt.Errorf("usb: open IN endpoint: %w", err)
	}
	return epOut, epIn, nil
}

func (t *Transport) Send(frame []byte) error {
	if _, err := t.epOut.Write(frame); err != nil {
		return fmt.Errorf("usb: write: %w", err)
	}
	// A transfer whose length is an exact multiple of the endpoint's max
	// packet size must be followed by a zero-length packet, or the host
	// controller will keep waiting for more data.
	if len(frame)%maxPacketSize == 0 {
		if _, err := t.epOut.Write(nil); err != nil {
			return fmt.Errorf("usb: zero-length packet: %w", err)
		}
	}
	return nil
}

// Receive chunks an "infinite" caller deadline into 200ms passes so the
// abort flag can be polled between reads, per §5.
func (t *Transport) Receive(deadline time.Time) ([]byte, error) {
	const tick = 200 * time.Millisecond
	for {
		select {
		case <-t.aborted:
			return nil, fmt.Errorf("usb: receive: %w", transport.ErrAborted)
		default:
		}
		passDeadline := time.Now().Add(tick)
		if passDeadline.After(deadline) {
			passDeadline = deadline
		}
		ctx, cancel := gocontext.WithDeadline(gocontext.Background(), passDeadline)
		n, err := t.epIn.ReadContext(ctx, t.scratch[:])
		cancel()
		if err != nil {
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("usb: receive: %w", transport.ErrTimeout)
			}
			continue
		}
		t.buf = append(t.buf, t.scratch[:n]...)
		if frame, ok := transport.ExtractFrame(t.buf); ok {
			t.buf = t.buf[len(frame):]
			return frame, nil
		}
	}
}

func (t *Transport) Wakeup() error { return nil } // USB devices never report LOWVBAT.

func (t *Transport) Abort() {
	select {
	case t.aborted <- struct{}{}:
	default:
	}
}

func (t *Transport) Close() error {
	t.intf.Close()
	t.config.Close()
	t.dev.Close()
	t.ctx.Close()
	return nil
}
