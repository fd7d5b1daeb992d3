package led

import (
	"fmt"

	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/host/v3"
)

// NRZ drives a WS2812 strip through an SPI port.
type NRZ struct {
	port spi.PortCloser
	dev  *nrzled.Dev
}

// OpenNRZ opens the named SPI port (empty for the first available) and
// binds an n-pixel WS2812 strip to it.
func OpenNRZ(port string, n int) (*NRZ, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host drivers: %w", err)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open spi port %q: %w", port, err)
	}

	opts := nrzled.DefaultOpts
	opts.NumPixels = n
	opts.Channels = 3
	dev, err := nrzled.NewSPI(p, &opts)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("bind ws2812 strip: %w", err)
	}
	return &NRZ{port: p, dev: dev}, nil
}

// Write sends one frame of RGB bytes.
func (n *NRZ) Write(p []byte) (int, error) {
	return n.dev.Write(p)
}

// Halt turns the strip off and releases the SPI port.
func (n *NRZ) Halt() error {
	err := n.dev.Halt()
	if cerr := n.port.Close(); err == nil {
		err = cerr
	}
	return err
}
