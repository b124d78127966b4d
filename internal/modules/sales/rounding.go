package sales

// OrderQuantity rounds units sold up to whole cases. found is false when
// nothing sold; the product then gets one case, or 0 with no case size.
func OrderQuantity(raw, perCase int) (qty int, found bool) {
	switch {
	case raw > 0 && perCase > 0:
		return (raw + perCase - 1) / perCase * perCase, true
	case raw > 0:
		return raw, true
	case perCase > 0:
		return perCase, false
	}
	return 0, false
}
