package pn53x

import "sort"

// writebackSlot holds the cached, not-yet-flushed state of one CIU
// register address.
type writebackSlot struct {
	data byte
	mask byte // bits this slot is authoritative for; 0 means untouched.
}

// writeback implements the register read-modify-write coalescing cache of
// §4.4. It batches WriteRegister calls so that several masked writes to
// the same address collapse into a single round trip, merging with a
// ReadRegister only when necessary (mask != 0xFF).
type writeback struct {
	slots map[uint16]*writebackSlot
	dirty bool
}

func newWriteback() *writeback {
	return &writeback{slots: make(map[uint16]*writebackSlot)}
}

// Write stages a masked write to register addr: the bits set in mask take
// the corresponding bits of value; other bits are left as whatever the
// cache (or eventually the chip) already holds.
func (wb *writeback) Write(addr uint16, mask, value byte) {
	s, ok := wb.slots[addr]
	if !ok {
		s = &writebackSlot{}
		wb.slots[addr] = s
	}
	s.data = (s.data &^ mask) | (value & mask)
	s.mask |= mask
	wb.dirty = true
}

// pendingAddrs returns the addresses with staged writes, in ascending
// order, for deterministic batching.
func (wb *writeback) pendingAddrs() []uint16 {
	addrs := make([]uint16, 0, len(wb.slots))
	for a, s := range wb.slots {
		if s.mask != 0 {
			addrs = append(addrs, a)
		}
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	return addrs
}

// flush performs the §4.4 algorithm: a batched ReadRegister for every slot
// needing a read-modify-write, followed by a single batched WriteRegister
// for the addresses that still need writing, then resets the cache.
//
// readRegisters and writeRegisters are the engine's wire-level batch
// primitives, injected so this type stays transport-free and testable in
// isolation.
func (wb *writeback) flush(
	readRegisters func(addrs []uint16) ([]byte, error),
	writeRegisters func(addrs []uint16, values []byte) error,
) error {
	if !wb.dirty {
		return nil
	}
	addrs := wb.pendingAddrs()

	var rmwAddrs []uint16
	for _, a := range addrs {
		s := wb.slots[a]
		if s.mask != 0xFF {
			rmwAddrs = append(rmwAddrs, a)
		}
	}
	if len(rmwAddrs) > 0 {
		current, err := readRegisters(rmwAddrs)
		if err != nil {
			return err
		}
		for i, a := range rmwAddrs {
			s := wb.slots[a]
			cached := s.data & s.mask
			read := current[i] & s.mask
			if cached == read {
				// Cache already matches chip state for the bits it owns;
				// nothing to write.
				s.mask = 0
			} else {
				s.data = (current[i] &^ s.mask) | (s.data & s.mask)
				s.mask = 0xFF
			}
		}
	}

	var writeAddrs []uint16
	var writeValues []byte
	for _, a := range addrs {
		s := wb.slots[a]
		if s.mask == 0xFF {
			writeAddrs = append(writeAddrs, a)
			writeValues = append(writeValues, s.data)
		}
	}
	if len(writeAddrs) > 0 {
		if err := writeRegisters(writeAddrs, writeValues); err != nil {
			return err
		}
	}

	for _, a := range addrs {
		wb.slots[a].mask = 0
	}
	wb.dirty = false
	return nil
}
