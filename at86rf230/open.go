// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package at86rf230

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Config names the host resources the transceiver is attached to.
type Config struct {
	SPIPort  string           // SPI port name, e.g. "/dev/spidev0.0", "" for the first one
	SPIFreq  physic.Frequency // SPI clock, defaults to 4MHz
	SlpTrPin string           // gpio name of SLP_TR
	RstPin   string           // gpio name of RST
	IrqPin   string           // gpio name of IRQ
}

// Open initializes the periph host drivers, opens the SPI port and pins named in the config,
// and returns a Device for them.
func Open(conf Config, opts Opts) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("at86rf230: cannot initialize host drivers: %w", err)
	}
	if conf.SPIFreq == 0 {
		conf.SPIFreq = 4 * physic.MegaHertz
	}

	pin := func(name string) (gpio.PinIO, error) {
		if name == "" {
			return nil, fmt.Errorf("at86rf230: missing pin name in %+v", conf)
		}
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("at86rf230: cannot open pin %s", name)
		}
		return p, nil
	}
	slpTr, err := pin(conf.SlpTrPin)
	if err != nil {
		return nil, err
	}
	rst, err := pin(conf.RstPin)
	if err != nil {
		return nil, err
	}
	irq, err := pin(conf.IrqPin)
	if err != nil {
		return nil, err
	}
	pins := Pins{SlpTr: slpTr, Rst: rst, Irq: irq}

	port, err := spireg.Open(conf.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("at86rf230: cannot open SPI port: %w", err)
	}
	conn, err := port.Connect(conf.SPIFreq, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("at86rf230: cannot connect to SPI port: %w", err)
	}

	d, err := New(conn, pins, opts)
	if err != nil {
		port.Close()
		return nil, err
	}
	d.closer = port.Close
	d.log("opened %s at %s", conn, conf.SPIFreq)
	return d, nil
}
