package link

import "strings"

// bluetoothBaseSuffix is the tail of the Bluetooth SIG 128-bit base UUID;
// a full UUID of the form 0000xxxx-<base> is equivalent to the 16-bit short
// form xxxx.
const bluetoothBaseSuffix = "00001000800000805f9b34fb"

// NormalizeUUID converts a UUID string to a canonical comparable form:
// lowercase, no dashes, no 0x prefix, and SIG base-form 128-bit UUIDs
// collapsed to their 16-bit short form.
func NormalizeUUID(uuid string) string {
	u := strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
	u = strings.TrimPrefix(u, "0x")
	if len(u) == 32 && strings.HasPrefix(u, "0000") && strings.HasSuffix(u, bluetoothBaseSuffix) {
		return u[4:8]
	}
	return u
}

// EqualUUID compares two UUID strings after normalization.
func EqualUUID(a, b string) bool {
	return NormalizeUUID(a) == NormalizeUUID(b)
}

// ShortenUUID returns a truncated UUID for display purposes.
func ShortenUUID(uuid string) string {
	if len(uuid) > 8 {
		return uuid[:8]
	}
	return uuid
}
