package stats

import "strings"

// Shell is the interpreter the composed script is handed to.
const Shell = "/bin/sh"

// darwinProbe has no cheap per-second network counters, so it reports 0 0.
var darwinProbe = []string{
	`cpu=$(ps -A -o %cpu | awk '{s+=$1} END {print s}' 2>/dev/null)`,
	`mem=$(ps -A -o %mem | awk '{s+=$1} END {print s}' 2>/dev/null)`,
	`disk=$(df -h / 2>/dev/null | awk 'NR==2{print $5}' | sed 's/%//')`,
	`if [ -z "$cpu" ]; then cpu=0; fi`,
	`if [ -z "$mem" ]; then mem=0; fi`,
	`if [ -z "$disk" ]; then disk=0; fi`,
	`echo "` + StartMarker + ` $cpu 0 0 $mem $disk"`,
}

// linuxProbe samples /proc/stat and /proc/net/dev twice, one second apart,
// and prints "<cpu%> <rxBytes> <txBytes>" from the deltas.
var linuxProbe = []string{
	`stats=$( (grep 'cpu ' /proc/stat; awk 'NR>2 {r+=$2; t+=$10} END{print r, t}' /proc/net/dev; sleep 1; ` +
		`grep 'cpu ' /proc/stat; awk 'NR>2 {r+=$2; t+=$10} END{print r, t}' /proc/net/dev) 2>/dev/null | ` +
		`awk 'NR==1 {t1=$2+$3+$4+$5+$6+$7+$8; i1=$5} NR==2 {rx1=$1; tx1=$2} ` +
		`NR==3 {t2=$2+$3+$4+$5+$6+$7+$8; i2=$5} NR==4 {rx2=$1; tx2=$2} ` +
		`END { dt=t2-t1; di=i2-i1; cpu=(dt<=0)?0:(dt-di)/dt*100; rx=rx2-rx1; tx=tx2-tx1; printf "%.1f %.0f %.0f", cpu, rx, tx }' )`,
	`mem=$(free 2>/dev/null | awk 'NR==2{printf "%.2f", $3*100/$2 }')`,
	`disk=$(df -h / 2>/dev/null | awk 'NR==2{print $5}' | sed 's/%//')`,
	`if [ -z "$stats" ]; then stats="0 0 0"; fi`,
	`if [ -z "$mem" ]; then mem=0; fi`,
	`if [ -z "$disk" ]; then disk=0; fi`,
	`echo "` + StartMarker + ` $stats $mem $disk"`,
}

// BaseProbe detects the OS family and prints the START line with cpu, net
// rx/tx, mem and disk. Any measurement that is unavailable prints as 0.
var BaseProbe = strings.Join([]string{
	`export LC_ALL=C`,
	`PATH=$PATH:/usr/bin:/bin:/usr/sbin:/sbin`,
	`OS=$(uname -s 2>/dev/null || echo "Linux")`,
	`if [ "$OS" = "Darwin" ]; then ` + strings.Join(darwinProbe, "; ") +
		`; else ` + strings.Join(linuxProbe, "; ") + `; fi`,
}, "; ")

// Script returns the unquoted one-line script for metrics.
//
// Each custom command runs in a subshell and is replaced by "Err" when it
// fails, so one broken probe cannot stop the markers after it from printing.
// The END marker is always last.
func Script(metrics []MetricDefinition) string {
	var b strings.Builder
	b.WriteString(BaseProbe)

	if len(metrics) > 0 {
		b.WriteString(`; echo "` + CustomStartMarker + `"; `)
		for i, m := range metrics {
			if i > 0 {
				b.WriteString(`; echo "` + NextMarker + `"; `)
			}
			b.WriteString(wrapCustom(m.Command))
		}
	}

	// The leading space keeps the marker apart from a custom value printed
	// without a trailing newline.
	b.WriteString(`; echo " ` + EndMarker + `"`)

	return oneLine(b.String())
}

// BuildCommand returns Script(metrics) single-quoted as an argument to
// /bin/sh -c, ready for an exec request or a local shell.
func BuildCommand(metrics []MetricDefinition) string {
	return Shell + " -c " + shellQuote(Script(metrics))
}

func wrapCustom(command string) string {
	if strings.TrimSpace(command) == "" {
		return `echo "` + ErrValue + `"`
	}
	return `( ` + command + ` ) || echo "` + ErrValue + `"`
}

// HasShellComment reports whether command contains an unquoted '#' at the
// start of a word. Commands are joined onto one line, so such a comment
// swallows every marker after it and the probe never finishes.
func HasShellComment(command string) bool {
	var quote rune
	escaped := false
	prev := ' '
	for _, r := range command {
		switch {
		case escaped:
			escaped = false
			prev = '\\'
			continue
		case quote != 0:
			if r == quote {
				quote = 0
			} else if r == '\\' && quote == '"' {
				escaped = true
			}
		case r == '\\':
			escaped = true
		case r == '\'' || r == '"':
			quote = r
		case r == '#' && strings.ContainsRune(" \t\r\n;&|()", prev):
			return true
		}
		prev = r
	}
	return false
}

func oneLine(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}

// shellQuote wraps s in single quotes, rewriting each ' as '\''.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
