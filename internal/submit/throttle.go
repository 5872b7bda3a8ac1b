package submit

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The platform embeds throttle notices as plain text inside otherwise-normal
// response bodies rather than using a status code.
var throttlePattern = regexp.MustCompile(`Expected available in(.+?)second.`)

// throttleGrace is added on top of the server-announced wait so the retry
// lands after the window reopens.
const throttleGrace = 500 * time.Millisecond

// ThrottleWait inspects a raw response body for the rate-limit marker.
// When present it returns the announced wait plus a small grace.
func ThrottleWait(body []byte) (time.Duration, bool) {
	m := throttlePattern.FindSubmatch(body)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(m[1])), 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(secs*float64(time.Second)) + throttleGrace, true
}
