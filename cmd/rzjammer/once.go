// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/tve/rzjammer/jammer"
)

var (
	onceChannel uint8
	onceTimeout time.Duration
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Jam a single frame by polling the transceiver",
	Long: `Listen on the channel, poll the transceiver until it starts receiving a frame, jam
it, poll until the transmission is over and exit. Each wait is bounded by --timeout.
This works without the IRQ line and is useful to check the wiring.`,
	RunE: runOnce,
}

func init() {
	onceCmd.Flags().Uint8VarP(&onceChannel, "channel", "c", 11, "802.15.4 channel (11-26)")
	onceCmd.Flags().DurationVarP(&onceTimeout, "timeout", "t", 10*time.Second, "how long to wait for a frame")
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, args []string) error {
	dev, err := openDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	jam := jammer.New(dev, jammer.Options{Logger: log.Debugf})
	if err := jam.Initialize(); err != nil {
		return err
	}
	defer jam.Deinitialize()
	if err := jam.SetChannel(onceChannel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	log.Infof("waiting up to %s for a frame on channel %d", onceTimeout, onceChannel)
	ev, err := jam.JamOnce(ctx, onceTimeout)
	if err != nil {
		return err
	}
	logJam(ev)
	return nil
}
