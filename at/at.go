// Package at holds the ESP8266 AT command vocabulary: the command lines the
// driver issues, the HTTP request lines it tunnels through AT+CIPSEND and the
// helpers used to inspect what the module sends back.
package at

const (
	// Terminal Control
	CRLF   = "\r\n"
	Prompt = "> "

	// Commands
	CmdRestore     = "AT+RESTORE"
	CmdReset       = "AT+RST"
	CmdStationMode = "AT+CWMODE=1"

	// Response Codes
	OK       = "OK"
	ERROR    = "ERROR"
	FAIL     = "FAIL"
	SendOK   = "SEND OK"
	SendFail = "SEND FAIL"
	Busy     = "busy p..."

	// Status lines emitted without a request
	UrcReady         = "ready"
	UrcWifiConnected = "WIFI CONNECTED"
	UrcWifiGotIP     = "WIFI GOT IP"
	UrcWifiDisconn   = "WIFI DISCONNECT"
	UrcClosed        = "CLOSED"
	UrcReceive       = "+IPD,"

	// WebhookHost is the only host webhook requests are sent to.
	WebhookHost = "maker.ifttt.com"

	// HTTPPort is the TCP port used for every outbound connection.
	HTTPPort = 80
)

type ResponseType int

const (
	TypeFinal  ResponseType = iota // OK, ERROR, FAIL, SEND OK
	TypeURC                        // Asynchronous notifications
	TypeData                       // Echoes and intermediate output
	TypePrompt                     // CIPSEND input prompt
)

func (t ResponseType) String() string {
	switch t {
	case TypeFinal:
		return "final"
	case TypeURC:
		return "urc"
	case TypePrompt:
		return "prompt"
	default:
		return "data"
	}
}
