package pn53x

import (
	"reflect"
	"testing"
)

func TestWritebackCoalescesSingleAddress(t *testing.T) {
	wb := newWriteback()
	wb.Write(0x6302, 0x80, 0x80)
	wb.Write(0x6302, 0x01, 0x00)

	var readCalls, writeCalls int
	var gotWriteAddrs []uint16
	var gotWriteValues []byte

	const chipValue = 0b0110_1010 // bit7=0, bit0=0 on the chip today

	err := wb.flush(
		func(addrs []uint16) ([]byte, error) {
			readCalls++
			if !reflect.DeepEqual(addrs, []uint16{0x6302}) {
				t.Fatalf("ReadRegister addrs = %v, want [0x6302]", addrs)
			}
			return []byte{chipValue}, nil
		},
		func(addrs []uint16, values []byte) error {
			writeCalls++
			gotWriteAddrs = addrs
			gotWriteValues = values
			return nil
		},
	)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if readCalls != 1 {
		t.Fatalf("ReadRegister called %d times, want 1", readCalls)
	}
	if writeCalls != 1 {
		t.Fatalf("WriteRegister called %d times, want 1", writeCalls)
	}
	if !reflect.DeepEqual(gotWriteAddrs, []uint16{0x6302}) {
		t.Fatalf("WriteRegister addrs = %v", gotWriteAddrs)
	}
	want := byte(chipValue)
	want |= 0x80  // bit 7 forced to 1
	want &^= 0x01 // bit 0 forced to 0
	if len(gotWriteValues) != 1 || gotWriteValues[0] != want {
		t.Fatalf("WriteRegister value = %#02x, want %#02x", gotWriteValues, want)
	}
	if wb.dirty {
		t.Fatal("writeback still dirty after flush")
	}
}

func TestWritebackSkipsWriteWhenChipAlreadyMatches(t *testing.T) {
	wb := newWriteback()
	wb.Write(0x6302, 0x80, 0x80)

	var writeCalls int
	err := wb.flush(
		func(addrs []uint16) ([]byte, error) {
			return []byte{0x80}, nil // chip already has bit 7 set
		},
		func(addrs []uint16, values []byte) error {
			writeCalls++
			return nil
		},
	)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if writeCalls != 0 {
		t.Fatalf("WriteRegister called %d times, want 0", writeCalls)
	}
}

func TestWritebackFullByteSkipsRead(t *testing.T) {
	wb := newWriteback()
	wb.Write(0x6303, 0xFF, 0x42)

	var readCalls, writeCalls int
	err := wb.flush(
		func(addrs []uint16) ([]byte, error) {
			readCalls++
			return nil, nil
		},
		func(addrs []uint16, values []byte) error {
			writeCalls++
			if values[0] != 0x42 {
				t.Fatalf("value = %#02x, want 0x42", values[0])
			}
			return nil
		},
	)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if readCalls != 0 {
		t.Fatalf("ReadRegister called %d times, want 0", readCalls)
	}
	if writeCalls != 1 {
		t.Fatalf("WriteRegister called %d times, want 1", writeCalls)
	}
}

func TestWritebackFlushNoopWhenClean(t *testing.T) {
	wb := newWriteback()
	called := false
	err := wb.flush(
		func(addrs []uint16) ([]byte, error) { called = true; return nil, nil },
		func(addrs []uint16, values []byte) error { called = true; return nil },
	)
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if called {
		t.Fatal("flush of a clean cache should not call either primitive")
	}
}
