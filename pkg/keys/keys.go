package keys

import (
	"crypto/rand"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const randomLength = 6

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Generate builds an uppercase display key of the form
// <PREFIX>_<base36 unix millis>_<6 random base36 chars>.
func Generate(prefix string) string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))
	return fmt.Sprintf("%s_%s_%s", strings.ToUpper(prefix), ts, randomSuffix())
}

func randomSuffix() string {
	buf := make([]byte, randomLength)
	if _, err := rand.Read(buf); err != nil {
		// fall back to a time-derived suffix; uniqueness is still enforced
		// by the unique index on the column
		ns := strconv.FormatInt(time.Now().UnixNano(), 36)
		return strings.ToUpper(ns[len(ns)-randomLength:])
	}
	out := make([]byte, randomLength)
	for i, b := range buf {
		out[i] = charset[int(b)%len(charset)]
	}
	return string(out)
}
