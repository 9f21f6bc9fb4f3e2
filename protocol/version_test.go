package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	testCases := []struct {
		in   string
		want Version
		ok   bool
	}{
		{"v12.34", Version{12, 34}, true},
		{"v1.2", Version{1, 2}, true},
		{"v999.0", Version{999, 0}, true},
		{"v1.2x", Version{1, 2}, true},
		{"v6.1 Bootloader", Version{6, 1}, true},
		{"v1234.5", Version{}, false},
		{"v1.2345", Version{}, false},
		{"1.2", Version{}, false},
		{"v.2", Version{}, false},
		{"v1.", Version{}, false},
		{"v1-2", Version{}, false},
		{"", Version{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			v, err := ParseVersion(tc.in)
			if !tc.ok {
				require.ErrorIs(t, err, ErrVersionParse)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, v)
		})
	}
}

func TestVersionString(t *testing.T) {
	require.Equal(t, "v6.1", Version{6, 1}.String())
}

func TestParseBanner(t *testing.T) {
	bl44 := &Version{4, 4}
	testCases := []struct {
		name       string
		line       string
		ok         bool
		firmware   Version
		bootloader *Version
		err        error
	}{
		{
			name:       "firmware and bootloader",
			line:       "Firmware v6.1 Bootloader v4.4",
			ok:         true,
			firmware:   Version{6, 1},
			bootloader: bl44,
		},
		{
			name:     "firmware only",
			line:     "Firmware v5.10",
			ok:       true,
			firmware: Version{5, 10},
		},
		{
			name:     "trailing words are not a bootloader",
			line:     "Firmware v2.0 (r502)",
			ok:       true,
			firmware: Version{2, 0},
		},
		{
			name: "other console line",
			line: "Bus Pirate v3a",
		},
		{
			name: "bad firmware version",
			line: "Firmware 6.1",
			ok:   true,
			err:  ErrVersionParse,
		},
		{
			name: "bad bootloader version",
			line: "Firmware v6.1 Bootloader 4.4",
			ok:   true,
			err:  ErrVersionParse,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, ok, err := ParseBanner(tc.line)
			require.Equal(t, tc.ok, ok)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.firmware, b.Firmware)
			require.Equal(t, tc.bootloader, b.Bootloader)
		})
	}
}
