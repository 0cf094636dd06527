package warranty

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
)

const tokenDelimiter = "|"

// ErrBadToken means a verification token could not be decoded.
var ErrBadToken = errors.New("invalid verification token")

// EncodeVerifyToken builds the opaque token used to deep-link a
// warranty into the check flow. Round-trips exactly as long as
// neither part contains the delimiter.
func EncodeVerifyToken(orderID, phone string, recordID int64) string {
	payload := orderID + tokenDelimiter + phone
	if recordID > 0 {
		payload += tokenDelimiter + strconv.FormatInt(recordID, 10)
	}
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// DecodeVerifyToken recovers the order id and phone number from a
// verification token. A trailing record id segment is tolerated and
// ignored.
func DecodeVerifyToken(token string) (orderID, phone string, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", "", ErrBadToken
	}
	parts := strings.Split(string(raw), tokenDelimiter)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", ErrBadToken
	}
	return parts[0], parts[1], nil
}
