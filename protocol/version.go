package protocol

import (
	"fmt"
	"strings"
)

// maxVersionDigits bounds each version component (0-999)
const maxVersionDigits = 3

// Version is a firmware or bootloader version reported by the console
type Version struct {
	Major uint16
	Minor uint16
}

func (v Version) String() string {
	return fmt.Sprintf("v%d.%d", v.Major, v.Minor)
}

// ParseVersion parses "v<major>.<minor>" with 1-3 digits per component.
// Only a prefix must match; trailing text is ignored.
func ParseVersion(s string) (Version, error) {
	rest, ok := strings.CutPrefix(s, "v")
	if !ok {
		return Version{}, &VersionError{Text: s}
	}
	major, rest, ok := parseComponent(rest)
	if !ok {
		return Version{}, &VersionError{Text: s}
	}
	rest, ok = strings.CutPrefix(rest, ".")
	if !ok {
		return Version{}, &VersionError{Text: s}
	}
	minor, _, ok := parseComponent(rest)
	if !ok {
		return Version{}, &VersionError{Text: s}
	}
	return Version{Major: major, Minor: minor}, nil
}

// parseComponent consumes 1 to 3 leading decimal digits. A fourth digit is
// an overflow, not the end of the component.
func parseComponent(s string) (uint16, string, bool) {
	var v uint16
	i := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if i == maxVersionDigits {
			return 0, s, false
		}
		v = v*10 + uint16(s[i]-'0')
	}
	if i == 0 {
		return 0, s, false
	}
	return v, s[i:], true
}

// Banner holds the versions announced after a console reset
type Banner struct {
	Firmware   Version
	Bootloader *Version // nil when the line carries no bootloader part
}

// ParseBanner recognises a "Firmware vX.Y[ Bootloader vX.Y]" line.
//
// ok is false when the line is not a firmware line at all. A firmware line
// with a malformed version returns a *VersionError.
func ParseBanner(line string) (b Banner, ok bool, err error) {
	rest, found := strings.CutPrefix(line, FirmwareToken)
	if !found {
		return Banner{}, false, nil
	}
	rest = skipSeparator(rest)

	fw, tail, hasTail := strings.Cut(rest, " ")
	b.Firmware, err = ParseVersion(fw)
	if err != nil {
		return Banner{}, true, err
	}
	if hasTail {
		if bl, isBL := strings.CutPrefix(tail, BootloaderTok); isBL {
			v, err := ParseVersion(skipSeparator(bl))
			if err != nil {
				return Banner{}, true, err
			}
			b.Bootloader = &v
		}
	}
	return b, true, nil
}

// skipSeparator drops the single character following a token
func skipSeparator(s string) string {
	if s == "" {
		return s
	}
	return s[1:]
}
