package device

import "net/http"

// Command names a device operation dispatched through Send.
type Command string

const (
	CmdTestMelody     Command = "test-melody"
	CmdStopMelody     Command = "stop-melody"
	CmdSaveMelody     Command = "save-melody"
	CmdUpdateMelody   Command = "update-melody"
	CmdDeleteMelody   Command = "delete-melody"
	CmdToggleBells    Command = "toggle-bells"
	CmdToggleTestMode Command = "toggle-test-mode"
	CmdSetRelay       Command = "set-relay"
	CmdTestRelay      Command = "test-relay"
	CmdEmergencyStop  Command = "emergency-stop"
	CmdReplaceWeekly  Command = "weekly-schedules"
	CmdAddWeekly      Command = "add-weekly-schedule"
	CmdDeleteWeekly   Command = "delete-weekly-schedule"
	CmdToggleWeekly   Command = "toggle-weekly-schedule"
	CmdReplaceSpecial Command = "special-events"
	CmdAddSpecial     Command = "add-special-event"
	CmdDeleteSpecial  Command = "delete-special-event"
	CmdToggleSpecial  Command = "toggle-special-event"
	CmdChangePassword Command = "change-password"
	CmdSetTime        Command = "set-time"
	CmdConfigureWiFi  Command = "configure-wifi"
	CmdResyncNTP      Command = "ntp-resync"
	CmdRestore        Command = "restore"
	CmdResetAll       Command = "reset-all"
)

// form selects how a Payload is encoded for one attempt.
type form int

const (
	formJSON     form = iota // Payload.Body as a JSON body (no body when nil)
	formQuery                // Payload.Query in the URL, no body
	formFallback             // Payload.Fallback as a JSON body
	formRaw                  // Payload.Raw verbatim as a JSON body
)

func (f form) String() string {
	switch f {
	case formQuery:
		return "query"
	case formFallback:
		return "fallback-json"
	case formRaw:
		return "raw"
	default:
		return "json"
	}
}

type attempt struct {
	method string
	path   string
	form   form
}

// strategies lists the ordered attempts per command. Only stop-melody,
// toggle-bells and set-time carry a second attempt; it runs at most once and
// only when the first attempt did not produce a 2xx response.
var strategies = map[Command][]attempt{
	CmdTestMelody: {{http.MethodPost, "/api/test-melody", formJSON}},
	CmdStopMelody: {
		{http.MethodPost, "/api/stop-melody", formJSON},
		{http.MethodGet, "/api/stop-melody", formQuery},
	},
	CmdSaveMelody:   {{http.MethodPost, "/api/save-melody", formJSON}},
	CmdUpdateMelody: {{http.MethodPost, "/api/update-melody", formJSON}},
	CmdDeleteMelody: {{http.MethodPost, "/api/delete-melody", formJSON}},
	CmdToggleBells: {
		{http.MethodPost, "/api/toggle-bells", formJSON},
		{http.MethodGet, "/api/toggle-bells", formQuery},
	},
	CmdToggleTestMode: {{http.MethodPost, "/api/toggle-test-mode", formJSON}},
	CmdSetRelay:       {{http.MethodGet, "/api/set-relay", formQuery}},
	CmdTestRelay:      {{http.MethodGet, "/api/test-relay", formQuery}},
	CmdEmergencyStop:  {{http.MethodPost, "/api/emergency-stop", formJSON}},
	CmdReplaceWeekly:  {{http.MethodPost, "/api/weekly-schedules", formJSON}},
	CmdAddWeekly:      {{http.MethodPost, "/api/add-weekly-schedule", formJSON}},
	CmdDeleteWeekly:   {{http.MethodPost, "/api/delete-weekly-schedule", formJSON}},
	CmdToggleWeekly:   {{http.MethodPost, "/api/toggle-weekly-schedule", formJSON}},
	CmdReplaceSpecial: {{http.MethodPost, "/api/special-events", formJSON}},
	CmdAddSpecial:     {{http.MethodPost, "/api/add-special-event", formJSON}},
	CmdDeleteSpecial:  {{http.MethodPost, "/api/delete-special-event", formJSON}},
	CmdToggleSpecial:  {{http.MethodPost, "/api/toggle-special-event", formJSON}},
	CmdChangePassword: {{http.MethodPost, "/api/change-password", formJSON}},
	CmdSetTime: {
		{http.MethodPost, "/api/set-time", formJSON},
		{http.MethodPost, "/api/set-time", formFallback},
	},
	CmdConfigureWiFi: {{http.MethodPost, "/api/configure-wifi", formJSON}},
	CmdResyncNTP:     {{http.MethodPost, "/api/ntp-resync", formJSON}},
	CmdRestore:       {{http.MethodPost, "/api/restore", formRaw}},
	CmdResetAll:      {{http.MethodPost, "/api/reset-all", formJSON}},
}

// HasFallback reports whether cmd has a second transport attempt.
func HasFallback(cmd Command) bool {
	return len(strategies[cmd]) > 1
}
