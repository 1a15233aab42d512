// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tve/rzjammer/jammer"
)

var (
	jamChannel  uint8
	jamRearm    bool
	jamMinRSSI  uint8
	jamMQTT     string
	jamTopic    string
	jamTrace    int
	jamInterval time.Duration
)

var jamCmd = &cobra.Command{
	Use:   "jam",
	Short: "Jam every frame seen on a channel until interrupted",
	Long: `Listen on the channel and jam each frame whose start is detected. Without --rearm
the command exits after the first jammed frame.

With --mqtt each frame is published as JSON to <topic>/jam and the counters are
published to <topic>/stats every --interval.`,
	RunE: runJam,
}

func init() {
	jamCmd.Flags().Uint8VarP(&jamChannel, "channel", "c", 11, "802.15.4 channel (11-26)")
	jamCmd.Flags().BoolVar(&jamRearm, "rearm", true, "keep listening after each jammed frame")
	jamCmd.Flags().Uint8Var(&jamMinRSSI, "min-rssi", 0, "only jam frames with at least this RSSI register value")
	jamCmd.Flags().StringVar(&jamMQTT, "mqtt", "", "MQTT broker host:port to publish events to")
	jamCmd.Flags().StringVar(&jamTopic, "topic", "rzjammer", "MQTT topic prefix")
	jamCmd.Flags().IntVar(&jamTrace, "trace", 0, "number of trace events to keep and print on exit")
	jamCmd.Flags().DurationVar(&jamInterval, "interval", 10*time.Second, "statistics interval")
	rootCmd.AddCommand(jamCmd)
}

// jamMsg is the JSON representation of a jam event.
type jamMsg struct {
	At      time.Time `json:"at"`
	Channel byte      `json:"channel"`
	RSSI    int       `json:"rssi"` // dBm
	Length  byte      `json:"length"`
	Header  string    `json:"header"` // hex
	Jammed  bool      `json:"jammed"`
	Error   string    `json:"error,omitempty"`
}

func newJamMsg(ev jammer.Jam) jamMsg {
	m := jamMsg{
		At: ev.At, Channel: ev.Channel, RSSI: rssiDBm(ev.RSSI), Length: ev.Length,
		Header: hex.EncodeToString(ev.Header), Jammed: ev.Jammed,
	}
	if ev.Err != nil {
		m.Error = ev.Err.Error()
	}
	return m
}

// rssiDBm converts the RSSI register value to dBm, 0 is below the sensitivity.
func rssiDBm(rssi byte) int {
	if rssi == 0 {
		return -91
	}
	return -91 + 3*(int(rssi)-1)
}

func logJam(ev jammer.Jam) {
	m := newJamMsg(ev)
	if ev.Err != nil {
		log.Warnf("ch%d %ddBm len=%d hdr=%s: %s", m.Channel, m.RSSI, m.Length, m.Header, ev.Err)
		return
	}
	log.Infof("ch%d %ddBm len=%d hdr=%s jammed=%v", m.Channel, m.RSSI, m.Length, m.Header, m.Jammed)
}

func runJam(cmd *cobra.Command, args []string) error {
	dev, err := openDevice()
	if err != nil {
		return err
	}
	defer dev.Close()

	var pub *mq
	if jamMQTT != "" {
		if pub, err = newMQ(jamMQTT, jamTopic); err != nil {
			return err
		}
		defer pub.Close()
	}

	opts := jammer.Options{Rearm: jamRearm, TraceSize: jamTrace, Logger: log.Debugf}
	if jamMinRSSI > 0 {
		opts.Filter = func(ev jammer.Jam) bool { return ev.RSSI >= jamMinRSSI }
	}
	jam := jammer.New(dev, opts)
	if err := jam.Initialize(); err != nil {
		return err
	}
	defer jam.Deinitialize()
	if err := jam.SetChannel(jamChannel); err != nil {
		return err
	}
	if err := jam.Enable(); err != nil {
		return err
	}
	log.Infof("jamming channel %d", jamChannel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	tick := time.NewTicker(jamInterval)
	defer tick.Stop()

	stuck := false
	for {
		select {
		case <-ctx.Done():
			if err := jam.Disable(); err != nil && !errors.Is(err, jammer.ErrState) {
				log.Errorf("disable: %s", err)
			}
			log.Infof("stats: %+v", jam.Stats())
			if jamTrace > 0 {
				jam.Trace().Dump(os.Stdout)
			}
			return nil

		case ev := <-jam.Events:
			logJam(ev)
			if pub != nil {
				pub.Publish("jam", newJamMsg(ev))
			}

		case <-tick.C:
			st := jam.Stats()
			log.Debugf("stats: %+v", st)
			if pub != nil {
				pub.Publish("stats", st)
			}
			if err := dev.Error(); err != nil {
				return err
			}
			switch jam.State() {
			case jammer.Idle:
				if !jamRearm {
					return nil
				}
				// Re-arming failed, the reason has been logged.
				if err := jam.Enable(); err != nil {
					return err
				}
			case jammer.Jamming:
				// A transmission takes a few milliseconds, the end interrupt got lost.
				if stuck {
					log.Warnf("transmission did not complete, resetting")
					if err := jam.Reset(); err != nil {
						return err
					}
					if err := jam.Enable(); err != nil {
						return err
					}
				}
				stuck = !stuck
				continue
			}
			stuck = false
		}
	}
}
