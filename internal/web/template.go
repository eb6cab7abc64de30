package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sweeney/rotary-phone/internal/directory"
	"github.com/sweeney/rotary-phone/internal/params"
	"github.com/sweeney/rotary-phone/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"handset": func(up bool) string {
		if up {
			return "up"
		}
		return "down"
	},
	"hex": func(r, g, b uint8) string {
		return fmt.Sprintf("#%02x%02x%02x", r, g, b)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Rotary Phone</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
form { display: inline; margin: 0; }
.state { font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.swatch { display: inline-block; width: 10px; height: 10px; border: 1px solid #888; vertical-align: middle; }
</style>
</head>
<body>
<h1>Rotary Phone</h1>

<h2>Call</h2>
<table>
{{if .Started}}<tr><th>State</th><td class="state">{{.Phone.State}}</td></tr>
<tr><th>Handset</th><td>{{handset .Phone.HandsetUp}}</td></tr>
<tr><th>Dial</th><td>{{if .Phone.Dialing}}turning, {{.Phone.PulseCount}} pulses{{else}}at rest{{end}}{{if .Phone.DialBuffer}} ({{.Phone.DialBuffer}}){{end}}</td></tr>
<tr><th>Last number</th><td>{{.Phone.LastNumber}}</td></tr>
{{if .Phone.CallID}}<tr><th>Call ID</th><td>{{.Phone.CallID}}</td></tr>{{end}}
<tr><th>Speaker</th><td>{{.Phone.Speaker}} ({{.Phone.Volume}}%)</td></tr>
<tr><th>LED</th><td><span class="swatch" style="background: {{hex .Phone.LED.Color.R .Phone.LED.Color.G .Phone.LED.Color.B}}"></span> {{.Phone.LED.Mode}}</td></tr>
{{else}}<tr><th>State</th><td class="unknown">UNKNOWN</td></tr>{{end}}
</table>
<form method="post" action="/hangup"><button>Hang up</button></form>

<h2>Numbers</h2>
<table>
{{range .Numbers}}<tr><th>{{.Number}}</th><td>{{.Description}}</td><td><form method="post" action="/call"><input type="hidden" name="number" value="{{.Number}}"><button>Ring</button></form>
<form method="post" action="/numbers/delete"><input type="hidden" name="number" value="{{.Number}}"><button>Delete</button></form></td></tr>
{{else}}<tr><td>No numbers</td></tr>
{{end}}</table>
<form method="post" action="/call"><input name="number" size="8" placeholder="number"> <button>Ring</button></form>
<form method="post" action="/refresh"><button>Rescan</button></form>
<form method="post" action="/numbers" enctype="multipart/form-data"><input type="file" name="file" accept=".wav"> <button>Upload</button></form>

<h2>Parameters</h2>
<table>
{{range .Params}}<tr><th>{{.Name}}</th><td><form method="post" action="/params"><input type="hidden" name="name" value="{{.Name}}"><input name="value" size="8" value="{{.Value}}"> <button>Set</button></form></td></tr>
{{end}}</table>

<h2>Counts</h2>
<table>
<tr><th>Calls</th><td>{{.Phone.Counts.Calls}}</td></tr>
<tr><th>Invalid numbers</th><td>{{.Phone.Counts.Invalid}}</td></tr>
<tr><th>Incoming</th><td>{{.Phone.Counts.Incoming}}</td></tr>
<tr><th>Answered</th><td>{{.Phone.Counts.Answered}}</td></tr>
<tr><th>Missed</th><td>{{.Phone.Counts.Missed}}</td></tr>
<tr><th>Button presses</th><td>{{.Phone.Counts.ButtonPresses}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Dial timeout</th><td>{{.Config.DialTimeoutMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>Numbers</th><td>{{.Config.NumbersDir}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPPort}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> <a href="/numbers.json">numbers</a></p>
</body>
</html>
`

type pageData struct {
	status.Snapshot
	// Uptime shadows Snapshot.Uptime so the template sees a value.
	Uptime  time.Duration
	Numbers []directory.Entry
	Params  []params.Entry
}

func renderHTML(w io.Writer, data pageData) {
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("render status page")
	}
}
