package at

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldCount is the number of numeric fields a cloud-log update carries.
const FieldCount = 8

// JoinAP builds the command that joins an access point. Arguments are
// interpolated verbatim, quotes included.
func JoinAP(ssid, password string) string {
	return fmt.Sprintf(`AT+CWJAP="%s","%s"`, ssid, password)
}

// StartTCP builds the command that opens a TCP connection to host:port.
func StartTCP(host string, port int) string {
	return fmt.Sprintf(`AT+CIPSTART="TCP","%s",%d`, host, port)
}

// SendLength builds the AT+CIPSEND announcement for payload. The announced
// length covers the CRLF that terminates the payload on the wire.
func SendLength(payload string) string {
	return "AT+CIPSEND=" + strconv.Itoa(len(payload)+len(CRLF))
}

// CloudLogUpdate is a ThingSpeak-style channel update.
type CloudLogUpdate struct {
	APIKey string
	Fields [FieldCount]float64
}

// NewCloudLogUpdate copies up to FieldCount values into an update. Missing
// values stay 0; the second return value reports how many values were
// dropped because they did not fit.
func NewCloudLogUpdate(apiKey string, values []float64) (CloudLogUpdate, int) {
	u := CloudLogUpdate{APIKey: apiKey}
	n := copy(u.Fields[:], values)
	return u, len(values) - n
}

// String renders the bare request line, for example
// "GET /update?api_key=K&field1=1&...&field8=8". It has no HTTP version
// token and no headers.
func (u CloudLogUpdate) String() string {
	var b strings.Builder
	b.WriteString("GET /update?api_key=")
	b.WriteString(u.APIKey)
	for i, v := range u.Fields {
		fmt.Fprintf(&b, "&field%d=%s", i+1, FormatNumber(v))
	}
	return b.String()
}

// WebhookTrigger is an IFTTT Maker webhook call carrying one value.
type WebhookTrigger struct {
	Event string
	Key   string
	Value string
}

// String renders the request line and Host header. The header block is
// closed by the CRLF the sender appends.
func (w WebhookTrigger) String() string {
	return "GET /trigger/" + w.Event + "/with/key/" + w.Key + "?value1=" + w.Value +
		" HTTP/1.1" + CRLF + "Host: " + WebhookHost + CRLF
}

// FormatNumber renders v in its shortest decimal form without an exponent.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
