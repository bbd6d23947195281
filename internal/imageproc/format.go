package imageproc

// DetectFormat inspects the leading bytes and returns the image format:
// "jpeg", "png", "gif", "tiff", "webp", or "" if unknown.
func DetectFormat(data []byte) string {
	switch {
	// JPEG: starts with FF D8 FF
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return "jpeg"
	// PNG: starts with 89 50 4E 47 0D 0A 1A 0A
	case len(data) >= 8 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G' &&
		data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A:
		return "png"
	// GIF: starts with GIF87a or GIF89a
	case len(data) >= 6 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F':
		return "gif"
	// TIFF: II*\0 (little endian) or MM\0* (big endian)
	case len(data) >= 4 && data[0] == 'I' && data[1] == 'I' && data[2] == 0x2A && data[3] == 0x00,
		len(data) >= 4 && data[0] == 'M' && data[1] == 'M' && data[2] == 0x00 && data[3] == 0x2A:
		return "tiff"
	// WebP: starts with RIFF....WEBP
	case len(data) >= 12 && data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P':
		return "webp"
	}
	return ""
}

// ContentType maps a format returned by DetectFormat to its MIME type.
func ContentType(format string) string {
	switch format {
	case "jpeg", "png", "gif", "tiff", "webp":
		return "image/" + format
	default:
		return "application/octet-stream"
	}
}
