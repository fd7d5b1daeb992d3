package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/halo-heater/internal/logic"
	"github.com/sweeney/halo-heater/internal/status"
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
	"celsius": func(r logic.Reading) string {
		if !r.Valid {
			return "N/A"
		}
		return fmt.Sprintf("%.1f ºC", r.Celsius)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="30; url=/">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Halo Heat</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
input, select { font-family: monospace; }
.on { color: green; font-weight: bold; }
.off { color: #c00; font-weight: bold; }
.locked { color: #639; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Halo Heat</h1>

<h2>Heater</h2>
<table>
<tr><th>Power</th><td id="power" class="{{if .Device.TriacOn}}on{{else}}off{{end}}">{{if .Device.TriacOn}}ON{{else}}OFF{{end}}</td></tr>
<tr><th>Menu</th><td class="{{if eq .Menu "LOCKED"}}locked{{end}}">{{.Menu}}</td></tr>
<tr><th>Mode</th><td>{{.Mode}}</td></tr>
<tr><th>Temperature</th><td id="temperature">{{celsius .Device.Temperature}}</td></tr>
<tr><th>Contact probe</th><td>{{celsius .Device.TemperatureContact}}</td></tr>
<tr><th>IR sensor</th><td>{{celsius .Device.TemperatureIR}}</td></tr>
<tr><th>Configured power</th><td>{{.Device.Base}}%</td></tr>
<tr><th>Effective power</th><td id="effective">{{printf "%.1f" .Effective}}%</td></tr>
<tr><th>Comfort</th><td>{{.Device.Comfort}}</td></tr>
</table>

<form method="post" action="/toggle_power">
<button type="submit">Toggle power</button>
</form>

<h2>Settings</h2>
<form method="post" action="/update_settings">
<table>
<tr><th><label for="percentage">Max power (0-100)</label></th>
<td><input type="number" id="percentage" name="percentage" min="0" max="100" value="{{.Device.Base}}"></td></tr>
<tr><th><label for="comfort_mode">Comfort</label></th>
<td><select id="comfort_mode" name="comfort_mode">
{{range .Comforts}}<option value="{{.Name}}"{{if .Selected}} selected{{end}}>{{.Name}}</option>
{{end}}</select></td></tr>
{{range .Comforts}}<tr><th>{{.Name}} (ºC)</th>
<td><input type="number" name="{{.Field}}_min" value="{{.Low}}" step="0.1" min="10" max="35">
- <input type="number" name="{{.Field}}_max" value="{{.High}}" step="0.1" min="10" max="35"></td></tr>
{{end}}</table>
<button type="submit">Save settings</button>
</form>

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
<tr><th>Mains</th><td>{{.Config.MainsHz}} Hz</td></tr>
<tr><th>Long press</th><td>{{.Config.LongPressMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> | <a href="/status">status</a> | <a href="/history.json">history</a></p>
</body>
</html>
`

type comfortRow struct {
	Name     string
	Field    string
	Selected bool
	Low      float64
	High     float64
}

func renderHTML(w io.Writer, snap status.Snapshot) error {
	rows := make([]comfortRow, 0, len(logic.ComfortModes))
	for _, c := range logic.ComfortModes {
		th := snap.Device.Thresholds.Online[c]
		rows = append(rows, comfortRow{
			Name:     c.String(),
			Field:    strings.ToLower(c.String()),
			Selected: c == snap.Device.Comfort,
			Low:      th.Low,
			High:     th.High,
		})
	}

	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime   time.Duration
		Menu     string
		Mode     string
		Comforts []comfortRow
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Menu:     string(snap.Device.Menu),
		Mode:     string(snap.Device.Mode),
		Comforts: rows,
	}
	return indexTmpl.Execute(w, data)
}
