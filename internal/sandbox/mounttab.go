package sandbox

import (
	"regexp"
	"strings"
)

// One line of `mount` output: "<src> on <target> type <fs> (<options>)".
var mountLineRe = regexp.MustCompile(`^(\S+) on (.+) type (\S+) \((.*)\)$`)

// resolveOverlayTarget recovers the guest-visible target of an overlay
// device from the raw guest mount table, by matching the mount whose
// upperdir option equals the device's upper directory. Returns false when
// no line matches, e.g. after an out-of-band unmount.
func resolveOverlayTarget(upperDir, mountTable string) (string, bool) {
	needle := "upperdir=" + upperDir
	for _, line := range strings.Split(mountTable, "\n") {
		m := mountLineRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[3] != "overlay" {
			continue
		}
		for _, opt := range strings.Split(m[4], ",") {
			if opt == needle {
				return m[2], true
			}
		}
	}
	return "", false
}
