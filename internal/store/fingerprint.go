package store

import "time"

// FingerprintWindow is the time window inside which two id-less messages with
// the same sender and text are considered the same logical message. The push
// copy of a just-sent message can arrive before the persist request returns
// the authoritative record, so identity has to be approximated. Two distinct
// messages with identical text from the same sender inside this window are
// merged incorrectly; this is an accepted trade-off until the backend assigns
// correlation IDs.
const FingerprintWindow = 2 * time.Second

// SameMessage reports whether a and b denote the same logical message:
// matching non-empty IDs, or a matching sender/text/time fingerprint.
func SameMessage(a, b Message) bool {
	if a.ID != "" && b.ID != "" && a.ID == b.ID {
		return true
	}
	if a.SenderID != b.SenderID || a.Text != b.Text {
		return false
	}
	d := a.CreatedAt.Sub(b.CreatedAt)
	if d < 0 {
		d = -d
	}
	return d < FingerprintWindow
}
