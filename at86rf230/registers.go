// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package at86rf230

import (
	"fmt"
	"time"
)

// Registers.
const (
	RG_TRX_STATUS   = 0x01
	RG_TRX_STATE    = 0x02
	RG_TRX_CTRL_0   = 0x03
	RG_PHY_TX_PWR   = 0x05
	RG_PHY_RSSI     = 0x06
	RG_PHY_ED_LEVEL = 0x07
	RG_PHY_CC_CCA   = 0x08
	RG_IRQ_MASK     = 0x0E
	RG_IRQ_STATUS   = 0x0F
	RG_PART_NUM     = 0x1C
	RG_VERSION_NUM  = 0x1D
	RG_MAN_ID_0     = 0x1E
	RG_MAN_ID_1     = 0x1F
)

// SPI access modes, first byte of every transaction.
const (
	CMD_REG_READ    = 0x80
	CMD_REG_WRITE   = 0xC0
	CMD_FRAME_READ  = 0x20
	CMD_FRAME_WRITE = 0x60
)

// Subregister is a bit field inside a register.
type Subregister struct {
	Addr  byte // register address
	Mask  byte // bits of the field within the register
	Shift uint // position of the field's lsb
}

func (sr Subregister) String() string {
	return fmt.Sprintf("%#02x/%#02x>>%d", sr.Addr, sr.Mask, sr.Shift)
}

// Extract returns the field value given the full register value.
func (sr Subregister) Extract(reg byte) byte { return (reg & sr.Mask) >> sr.Shift }

// Merge returns the register value with the field replaced by v.
func (sr Subregister) Merge(reg, v byte) byte {
	return (reg &^ sr.Mask) | ((v << sr.Shift) & sr.Mask)
}

var (
	SR_TRX_STATUS     = Subregister{RG_TRX_STATUS, 0x1F, 0}
	SR_CCA_DONE       = Subregister{RG_TRX_STATUS, 0x80, 7}
	SR_TRX_CMD        = Subregister{RG_TRX_STATE, 0x1F, 0}
	SR_CLKM_CTRL      = Subregister{RG_TRX_CTRL_0, 0x07, 0}
	SR_CLKM_SHA_SEL   = Subregister{RG_TRX_CTRL_0, 0x08, 3}
	SR_TX_AUTO_CRC_ON = Subregister{RG_PHY_TX_PWR, 0x80, 7}
	SR_TX_PWR         = Subregister{RG_PHY_TX_PWR, 0x0F, 0}
	SR_RSSI           = Subregister{RG_PHY_RSSI, 0x1F, 0}
	SR_RX_CRC_VALID   = Subregister{RG_PHY_RSSI, 0x80, 7}
	SR_CHANNEL        = Subregister{RG_PHY_CC_CCA, 0x1F, 0}
)

// State is the transceiver's own operating state as reported in TRX_STATUS.
type State byte

const (
	P_ON                         State = 0x00
	BUSY_RX                      State = 0x01
	BUSY_TX                      State = 0x02
	RX_ON                        State = 0x06
	TRX_OFF                      State = 0x08
	PLL_ON                       State = 0x09
	SLEEP                        State = 0x0F
	BUSY_RX_AACK                 State = 0x11
	BUSY_TX_ARET                 State = 0x12
	RX_AACK_ON                   State = 0x16
	TX_ARET_ON                   State = 0x19
	RX_ON_NOCLK                  State = 0x1C
	RX_AACK_ON_NOCLK             State = 0x1D
	BUSY_RX_AACK_NOCLK           State = 0x1E
	STATE_TRANSITION_IN_PROGRESS State = 0x1F
)

var stateNames = map[State]string{
	P_ON:                         "P_ON",
	BUSY_RX:                      "BUSY_RX",
	BUSY_TX:                      "BUSY_TX",
	RX_ON:                        "RX_ON",
	TRX_OFF:                      "TRX_OFF",
	PLL_ON:                       "PLL_ON",
	SLEEP:                        "SLEEP",
	BUSY_RX_AACK:                 "BUSY_RX_AACK",
	BUSY_TX_ARET:                 "BUSY_TX_ARET",
	RX_AACK_ON:                   "RX_AACK_ON",
	TX_ARET_ON:                   "TX_ARET_ON",
	RX_ON_NOCLK:                  "RX_ON_NOCLK",
	RX_AACK_ON_NOCLK:             "RX_AACK_ON_NOCLK",
	BUSY_RX_AACK_NOCLK:           "BUSY_RX_AACK_NOCLK",
	STATE_TRANSITION_IN_PROGRESS: "TRANSITION",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%#02x)", byte(s))
}

// Commands written to SR_TRX_CMD.
const (
	CMD_NOP           = 0x00
	CMD_TX_START      = 0x02
	CMD_FORCE_TRX_OFF = 0x03
	CMD_RX_ON         = 0x06
	CMD_TRX_OFF       = 0x08
	CMD_PLL_ON        = 0x09
	CMD_RX_AACK_ON    = 0x16
	CMD_TX_ARET_ON    = 0x19
)

// Interrupt bits in IRQ_MASK and IRQ_STATUS.
const (
	IRQ_PLL_LOCK   = 1 << 0
	IRQ_PLL_UNLOCK = 1 << 1
	IRQ_RX_START   = 1 << 2
	IRQ_TRX_END    = 1 << 3
	IRQ_TRX_UR     = 1 << 6
	IRQ_BAT_LOW    = 1 << 7
)

// Datasheet settle times.
const (
	TIME_TO_ENTER_P_ON         = 510 * time.Microsecond
	TIME_RESET                 = 6 * time.Microsecond
	TIME_SLEEP_TO_TRX_OFF      = 880 * time.Microsecond
	TIME_P_ON_TO_TRX_OFF       = 510 * time.Microsecond
	TIME_TRX_OFF_TO_PLL_ACTIVE = 180 * time.Microsecond
	TIME_CMD_FORCE_TRX_OFF     = 1 * time.Microsecond
	TIME_PLL_ON_TO_BUSY_TX     = 16 * time.Microsecond
)

const (
	MaxFrameSize = 127  // max PSDU length, incl. 2-byte FCS
	PartNum      = 0x02 // AT86RF230
	ManID0       = 0x1F // Atmel JEDEC id
)
