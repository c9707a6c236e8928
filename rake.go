package cardroom

// RakeAmount computes the rake taken from a pot of the given size. It is a
// pure function of the pot and the policy; format and no-flop-no-drop gating
// are the caller's concern.
func RakeAmount(pot int64, cfg RakeConfig) int64 {
	if pot <= 0 || cfg.Percent <= 0 {
		return 0
	}

	rake := int64(float64(pot) * cfg.Percent)
	if cfg.Cap > 0 && rake > cfg.Cap {
		rake = cfg.Cap
	}
	if rake > pot {
		rake = pot
	}
	if rake < 0 {
		rake = 0
	}
	return rake
}
