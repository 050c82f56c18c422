package prefs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadParsesFlagsAndMaxDownloadRate(t *testing.T) {
	snap, err := Load([]string{
		"-" + KeyFilesOnWifiOnly,
		"-" + KeyAutomaticLocation,
		"-" + KeyMaxDownloadRate, "2MB",
	}, "")
	require.NoError(t, err)
	require.True(t, snap.FilesOnWifiOnly())
	require.Equal(t, int64(2*1024*1024), snap.MaxDownloadRateBytesPerSec())
}

func TestLoadRejectsMalformedTimeWindow(t *testing.T) {
	_, err := Load([]string{"-" + KeyLimitLocationNotBefore, "25:00"}, "")
	require.Error(t, err)
}

func TestLoadRejectsUnrecognizedWeekday(t *testing.T) {
	_, err := Load([]string{"-" + KeyLimitLocationDay, "someday"}, "")
	require.Error(t, err)
}

func at(hour, min int, weekday time.Weekday) clock {
	// 2024-01-01 was a Monday; pick the matching date for the requested weekday.
	base := time.Date(2024, 1, 1, hour, min, 0, 0, time.UTC)
	offset := (int(weekday) - int(time.Monday) + 7) % 7
	base = base.AddDate(0, 0, offset)
	return func() time.Time { return base }
}

func TestCurrentlySharingLocationRequiresAutoLocation(t *testing.T) {
	s := &Snapshot{autoLocation: false}
	require.False(t, s.CurrentlySharingLocation())
}

func TestCurrentlySharingLocationHonorsTimeWindow(t *testing.T) {
	s := &Snapshot{
		autoLocation: true,
		limitTime:    true,
		notBefore:    minuteOfDay(9 * 60),
		notAfter:     minuteOfDay(17 * 60),
		now:          at(12, 0, time.Tuesday),
	}
	require.True(t, s.CurrentlySharingLocation())

	s.now = at(20, 0, time.Tuesday)
	require.False(t, s.CurrentlySharingLocation())
}

func TestCurrentlySharingLocationHonorsWeekdaySet(t *testing.T) {
	s := &Snapshot{
		autoLocation: true,
		days:         map[time.Weekday]struct{}{time.Saturday: {}, time.Sunday: {}},
		now:          at(12, 0, time.Wednesday),
	}
	require.False(t, s.CurrentlySharingLocation())

	s.now = at(12, 0, time.Saturday)
	require.True(t, s.CurrentlySharingLocation())
}

func TestSetOnWifiUpdatesLiveObservation(t *testing.T) {
	s := &Snapshot{}
	require.False(t, s.OnWifi())
	s.SetOnWifi(true)
	require.True(t, s.OnWifi())
}
