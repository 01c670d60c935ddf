package pn53x

import "fmt"

// TransceiveBits sends the low txBits of tx (txBits%8 selects how many
// bits of the final byte are significant) and returns the target's reply
// along with its exact bit count, per §4.1's initiator_transceive_bits.
// It shares InCommunicateThru's raw-byte path, staging the CIU
// BitFraming register's TxLastBits field through the writeback cache
// before the exchange, then reading the same register's low three bits
// back afterwards and taking a non-zero value as the number of
// significant bits in the final received byte.
func (e *Engine) TransceiveBits(tx []byte, txBits int, rxCapacity int) ([]byte, int, error) {
	e.WriteRegister(regCIUBitFraming, 0x07, byte(txBits%8))
	rx, err := e.InCommunicateThru(tx, rxCapacity)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: transceive bits: %w", err)
	}
	rxBits, err := e.trailingBitCount(rx)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: transceive bits: %w", err)
	}
	return rx, rxBits, nil
}

// TgSendBits transmits the low txBits of tx to the initiator currently
// communicating with this emulated target.
func (e *Engine) TgSendBits(tx []byte, txBits int) error {
	e.WriteRegister(regCIUBitFraming, 0x07, byte(txBits%8))
	if err := e.TgSetData(tx); err != nil {
		return fmt.Errorf("pn53x: tg send bits: %w", err)
	}
	return nil
}

// TgReceiveBits reads the next command the initiator sent along with its
// exact bit count.
func (e *Engine) TgReceiveBits(rxCapacity int) ([]byte, int, error) {
	rx, err := e.TgGetData(rxCapacity)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: tg receive bits: %w", err)
	}
	rxBits, err := e.trailingBitCount(rx)
	if err != nil {
		return nil, 0, fmt.Errorf("pn53x: tg receive bits: %w", err)
	}
	return rx, rxBits, nil
}

func (e *Engine) trailingBitCount(rx []byte) (int, error) {
	bitFraming, err := e.readRegisterImmediate(regCIUBitFraming)
	if err != nil {
		return 0, fmt.Errorf("read bit framing: %w", err)
	}
	rxBits := len(rx) * 8
	if n := int(bitFraming & 0x07); n != 0 && len(rx) > 0 {
		rxBits -= 8 - n
	}
	return rxBits, nil
}
