package transformation

// IsProgressiveJPEG walks the JPEG marker segments up to the first frame
// header and reports whether it is SOF2 (progressive).
func IsProgressiveJPEG(data []byte) bool {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return false
	}
	i := 2
	for i+1 < len(data) {
		if data[i] != 0xFF {
			return false
		}
		marker := data[i+1]
		switch {
		case marker == 0xFF:
			// fill byte
			i++
			continue
		case marker == 0xC2:
			return true
		case marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC:
			return false
		case marker == 0xDA || marker == 0xD9:
			return false
		case marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7):
			i += 2
			continue
		}
		if i+3 >= len(data) {
			return false
		}
		length := int(data[i+2])<<8 | int(data[i+3])
		if length < 2 {
			return false
		}
		i += 2 + length
	}
	return false
}
