// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// Rzjammer drives an AT86RF230 transceiver attached to a single-board computer as a reactive
// IEEE 802.15.4 jammer.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
