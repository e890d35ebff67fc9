package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/madskjeldgaard/midi2motor/internal/status"
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
	"inc":   func(i int) int { return i + 1 },
	"lower": strings.ToLower,
	"seconds": func(ms int64) string {
		return (time.Duration(ms) * time.Millisecond).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>midi2motor</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.forward, .backward { color: green; font-weight: bold; }
.stopped { color: #888; }
.asleep { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>midi2motor</h1>

<h2>Power</h2>
<table>
<tr><th>Drivers</th><td id="power" class="{{if .Sleeping}}asleep{{else}}connected{{end}}">{{if .Sleeping}}asleep{{else}}awake{{end}}</td></tr>
<tr><th>Last activity</th><td>{{if .LastActivity.IsZero}}never{{else}}{{.LastActivity.UTC.Format "2006-01-02T15:04:05Z"}}{{end}}</td></tr>
<tr><th>Idle timeout</th><td>{{seconds .Config.IdleTimeoutMs}}</td></tr>
</table>

<h2>Motors</h2>
<table>
<tr><th>Bridge</th><td>Speed</td><td>Direction</td><td>Decay</td></tr>
{{range $i, $d := .Drivers}}{{$m := inc $i}}
<tr><th>{{$m}}A{{if $d.Asleep}} (asleep){{end}}</th><td>{{$d.A.Speed}}</td><td class="{{lower $d.A.Direction}}">{{$d.A.Direction}}</td><td>{{$d.A.Decay}}</td></tr>
<tr><th>{{$m}}B{{if $d.Asleep}} (asleep){{end}}</th><td>{{$d.B.Speed}}</td><td class="{{lower $d.B.Direction}}">{{$d.B.Direction}}</td><td>{{$d.B.Decay}}</td></tr>
{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Dispatched</th><td>{{.Counts.Dispatched}}</td></tr>
<tr><th>Rejected</th><td>{{.Counts.Rejected}}</td></tr>
<tr><th>Sleeps</th><td>{{.Counts.Sleeps}}</td></tr>
<tr><th>Wakes</th><td>{{.Counts.Wakes}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{seconds .Config.PollMs}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{seconds .Config.HeartbeatMs}}{{end}}</td></tr>
<tr><th>Note map</th><td>{{.Config.NoteMap}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) error {
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
