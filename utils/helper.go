package utils

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func AbsInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
