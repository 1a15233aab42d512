// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tve/rzjammer/at86rf230"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Reset the transceiver and print its identification registers",
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	dev, err := openDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	dev.Reset()
	dev.WriteSubregister(at86rf230.SR_TRX_CMD, at86rf230.CMD_FORCE_TRX_OFF)
	dev.Delay(at86rf230.TIME_P_ON_TO_TRX_OFF)
	part := dev.ReadRegister(at86rf230.RG_PART_NUM)
	version := dev.ReadRegister(at86rf230.RG_VERSION_NUM)
	man := uint16(dev.ReadRegister(at86rf230.RG_MAN_ID_1))<<8 |
		uint16(dev.ReadRegister(at86rf230.RG_MAN_ID_0))
	status := at86rf230.State(dev.ReadSubregister(at86rf230.SR_TRX_STATUS))
	channel := dev.ReadSubregister(at86rf230.SR_CHANNEL)
	if err := dev.Error(); err != nil {
		return err
	}

	fmt.Printf("PART_NUM:    %#02x\n", part)
	fmt.Printf("VERSION_NUM: %#02x\n", version)
	fmt.Printf("MAN_ID:      %#04x\n", man)
	fmt.Printf("TRX_STATUS:  %s\n", status)
	fmt.Printf("CHANNEL:     %d\n", channel)
	if part != at86rf230.PartNum || byte(man) != at86rf230.ManID0 {
		return fmt.Errorf("not an AT86RF230: part %#02x, manufacturer %#04x", part, man)
	}
	log.Infof("found AT86RF230 %s", revision(version))
	return nil
}

// revision names the chip revision given VERSION_NUM, 1 is rev A.
func revision(version byte) string {
	if version == 0 || version > 26 {
		return fmt.Sprintf("with unknown version 0x%02x", version)
	}
	return fmt.Sprintf("rev %c", 'A'+version-1)
}
