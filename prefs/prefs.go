// Package prefs implements the preferences reader: the recognized
// boolean/integer/string-set configuration keys the engine reads to
// decide download policy and location-sharing windows, loaded from
// flags, environment, or a config file via peterbourgon/ff.
package prefs

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/docker/go-units"
	"github.com/peterbourgon/ff/v3"
)

// Recognized configuration keys.
const (
	KeyFilesOnWifiOnly        = "exchange-files-wifi-only"
	KeyAutomaticLocation      = "automatic-location-sharing"
	KeyLimitLocationTime      = "limit-location-sharing-time"
	KeyLimitLocationNotBefore = "limit-location-sharing-time-not-before"
	KeyLimitLocationNotAfter  = "limit-location-sharing-time-not-after"
	KeyLimitLocationDay       = "limit-location-sharing-day"
	// KeyMaxDownloadRate is a human-sized byte-rate cap, parsed with
	// docker/go-units and exposed via MaxDownloadRateBytesPerSec. No download
	// path in this module reads it; the Wi-Fi-only gate does not consult it.
	KeyMaxDownloadRate = "max-download-rate"
)

// clock lets tests substitute a fixed time without monkey-patching time.Now.
type clock func() time.Time

// Snapshot is an immutable, point-in-time read of preferences, satisfying
// every Preferences interface the engine, tasks, and server packages
// consume.
type Snapshot struct {
	filesOnWifiOnly bool
	onWifi          bool
	autoLocation    bool
	limitTime       bool
	notBefore       minuteOfDay
	notAfter        minuteOfDay
	days            map[time.Weekday]struct{}
	maxDownloadRate int64
	now             clock
}

type minuteOfDay int

// FilesOnWifiOnly reports the exchange-files-wifi-only preference.
func (s *Snapshot) FilesOnWifiOnly() bool { return s.filesOnWifiOnly }

// OnWifi reports whether the current network connection is Wi-Fi. This
// module has no network-interface introspection of its own; production
// wiring supplies it via SetOnWifi from whatever platform API observes
// link type.
func (s *Snapshot) OnWifi() bool { return s.onWifi }

// SetOnWifi updates the live network-type observation. Unlike the other
// fields (loaded once at startup), this reflects runtime state and so is
// mutable on an otherwise immutable snapshot.
func (s *Snapshot) SetOnWifi(onWifi bool) { s.onWifi = onWifi }

// MaxDownloadRateBytesPerSec returns the configured byte-rate cap, or 0 if
// unset (no cap).
func (s *Snapshot) MaxDownloadRateBytesPerSec() int64 { return s.maxDownloadRate }

// CurrentlySharingLocation reports true iff automatic-location-sharing is
// on, and either the time-window gate is off or now falls within
// [not-before, not-after] inclusive in minute resolution, and the current
// weekday is in the allowed set.
func (s *Snapshot) CurrentlySharingLocation() bool {
	if !s.autoLocation {
		return false
	}
	now := time.Now
	if s.now != nil {
		now = s.now
	}
	t := now()

	if len(s.days) > 0 {
		if _, ok := s.days[t.Weekday()]; !ok {
			return false
		}
	}
	if !s.limitTime {
		return true
	}
	cur := minuteOfDay(t.Hour()*60 + t.Minute())
	return cur >= s.notBefore && cur <= s.notAfter
}

// Load reads preferences from flags/env/config file named in args, with ff's
// standard precedence: explicit flag > environment variable > config file >
// default.
func Load(args []string, configFile string) (*Snapshot, error) {
	fs := flag.NewFlagSet("meshd", flag.ContinueOnError)

	wifiOnly := fs.Bool(KeyFilesOnWifiOnly, false, "only fetch file downloads over Wi-Fi")
	autoLoc := fs.Bool(KeyAutomaticLocation, false, "share location automatically with asking friends")
	limitTime := fs.Bool(KeyLimitLocationTime, false, "restrict location sharing to a daily time window")
	notBefore := fs.String(KeyLimitLocationNotBefore, "00:00", "earliest time of day to share location, HH:MM")
	notAfter := fs.String(KeyLimitLocationNotAfter, "23:59", "latest time of day to share location, HH:MM")
	days := fs.String(KeyLimitLocationDay, "", "comma-separated weekdays allowed to share location, empty means all")
	maxRate := fs.String(KeyMaxDownloadRate, "", "maximum download rate, e.g. 2MB")
	// meshd parses its wiring flags from the same argv; declare them so the
	// command line parse skips them instead of rejecting them.
	for _, name := range []string{"config", "nickname", "cert", "key", "hidden-key", "server-addr", "control-addr"} {
		fs.String(name, "", "read by meshd")
	}

	opts := []ff.Option{ff.WithEnvVarPrefix("MESHD"), ff.WithIgnoreUndefined(true)}
	if configFile != "" {
		opts = append(opts, ff.WithConfigFile(configFile), ff.WithConfigFileParser(ff.PlainParser))
	}
	if err := ff.Parse(fs, args, opts...); err != nil {
		return nil, fmt.Errorf("prefs: parse config: %w", err)
	}

	before, err := parseHHMM(*notBefore)
	if err != nil {
		return nil, fmt.Errorf("prefs: %s: %w", KeyLimitLocationNotBefore, err)
	}
	after, err := parseHHMM(*notAfter)
	if err != nil {
		return nil, fmt.Errorf("prefs: %s: %w", KeyLimitLocationNotAfter, err)
	}

	dayset, err := parseDays(*days)
	if err != nil {
		return nil, fmt.Errorf("prefs: %s: %w", KeyLimitLocationDay, err)
	}

	var rateBytes int64
	if *maxRate != "" {
		rateBytes, err = units.RAMInBytes(*maxRate)
		if err != nil {
			return nil, fmt.Errorf("prefs: %s: %w", KeyMaxDownloadRate, err)
		}
	}

	return &Snapshot{
		filesOnWifiOnly: *wifiOnly,
		autoLocation:    *autoLoc,
		limitTime:       *limitTime,
		notBefore:       before,
		notAfter:        after,
		days:            dayset,
		maxDownloadRate: rateBytes,
	}, nil
}

func parseHHMM(s string) (minuteOfDay, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed HH:MM value %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed minute in %q", s)
	}
	return minuteOfDay(h*60 + m), nil
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
	"wednesday": time.Wednesday, "thursday": time.Thursday, "friday": time.Friday,
	"saturday": time.Saturday,
}

func parseDays(s string) (map[time.Weekday]struct{}, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := map[time.Weekday]struct{}{}
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		wd, ok := weekdayNames[name]
		if !ok {
			return nil, fmt.Errorf("unrecognized weekday %q", name)
		}
		out[wd] = struct{}{}
	}
	return out, nil
}
