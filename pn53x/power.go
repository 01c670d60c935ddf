package pn53x

// PowerMode tracks the PN532 NORMAL/POWERDOWN/LOWVBAT state machine of
// §4.5. PN531 and PN533 never leave NORMAL; the engine still carries the
// field for uniformity but never transitions it for those chips.
type PowerMode int

const (
	PowerNormal PowerMode = iota
	PowerDownMode
	PowerLowVbat
)

func (m PowerMode) String() string {
	switch m {
	case PowerNormal:
		return "NORMAL"
	case PowerDownMode:
		return "POWERDOWN"
	case PowerLowVbat:
		return "LOWVBAT"
	default:
		return "unknown"
	}
}

// needsWakeup reports whether the engine must run the transport wakeup
// sequence plus SAMConfiguration(NORMAL) before issuing another command.
func (m PowerMode) needsWakeup() bool {
	return m == PowerLowVbat || m == PowerDownMode
}
