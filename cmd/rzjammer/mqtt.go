// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mq is a handle onto a MQTT broker connection used to publish jam events and statistics.
type mq struct {
	conn  mqtt.Client // broker connection
	topic string      // topic prefix
}

// newMQ connects to a broker. The connection re-establishes itself after a disconnect.
func newMQ(broker, topic string) (*mq, error) {
	hostname, _ := os.Hostname()
	id := "rzjammer-" + hostname
	log.Debugf("Configuring MQTT with client id %s, broker %s", id, broker)
	opts := mqtt.NewClientOptions().
		AddBroker("tcp://" + broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			log.Warnf("MQTT connection lost: %s", err)
		})

	conn := mqtt.NewClient(opts)
	token := conn.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("timeout connecting to MQTT broker %s", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("cannot connect to MQTT broker %s: %w", broker, err)
	}
	log.Infof("MQTT connected to %s", broker)
	return &mq{conn: conn, topic: topic}, nil
}

// Publish JSON-encodes the payload and publishes it to the topic prefix plus suffix.
func (mq *mq) Publish(suffix string, payload interface{}) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("cannot encode %s payload: %s", suffix, err)
		return
	}
	mq.conn.Publish(mq.topic+"/"+suffix, 1, false, jsonPayload)
}

// Close disconnects from the broker, letting in-flight messages go out first.
func (mq *mq) Close() {
	mq.conn.Disconnect(250)
}
