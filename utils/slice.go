package utils

// UniqueUint removes duplicate values from a slice of uints, keeping first-seen order.
func UniqueUint(slice []uint) []uint {
	keys := make(map[uint]struct{}, len(slice))
	list := make([]uint, 0, len(slice))
	for _, entry := range slice {
		if _, seen := keys[entry]; !seen {
			keys[entry] = struct{}{}
			list = append(list, entry)
		}
	}
	return list
}

// ContainsUint reports whether id is present in ids.
func ContainsUint(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
