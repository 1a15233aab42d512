// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"periph.io/x/conn/v3/physic"

	"github.com/tve/rzjammer/at86rf230"
)

var log = logrus.New()

var (
	spiPort  string
	spiHz    int64
	irqPin   string
	slpTrPin string
	rstPin   string
	debug    bool
	realtime bool
)

var rootCmd = &cobra.Command{
	Use:   "rzjammer",
	Short: "Reactive IEEE 802.15.4 jammer for the AT86RF230",
	Long: `Rzjammer drives an AT86RF230 transceiver (e.g. a RZ600 module) connected to the SPI
port and three gpio pins of a single-board computer.

It listens on a 2.4GHz 802.15.4 channel and, as soon as the transceiver detects the
start of a frame, transmits a jamming frame on top of it.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.Formatter = new(logrus.TextFormatter)
		log.Level = logrus.InfoLevel
		if debug {
			log.Level = logrus.DebugLevel
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&spiPort, "spi", "/dev/spidev0.0", "SPI port")
	rootCmd.PersistentFlags().Int64Var(&spiHz, "spi-hz", 4000000, "SPI clock in Hz")
	rootCmd.PersistentFlags().StringVar(&irqPin, "irq", "GPIO24", "gpio connected to IRQ")
	rootCmd.PersistentFlags().StringVar(&slpTrPin, "slptr", "GPIO23", "gpio connected to SLP_TR")
	rootCmd.PersistentFlags().StringVar(&rstPin, "rst", "GPIO25", "gpio connected to RST")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "print debug output")
	rootCmd.PersistentFlags().BoolVar(&realtime, "realtime", false,
		"run the interrupt goroutine at realtime priority (needs CAP_SYS_NICE)")
}

// openDevice opens the transceiver using the pins and SPI port given on the command line.
func openDevice() (*at86rf230.Device, error) {
	conf := at86rf230.Config{
		SPIPort:  spiPort,
		SPIFreq:  physic.Frequency(spiHz) * physic.Hertz,
		SlpTrPin: slpTrPin,
		RstPin:   rstPin,
		IrqPin:   irqPin,
	}
	return at86rf230.Open(conf, at86rf230.Opts{Realtime: realtime, Logger: log.Debugf})
}
