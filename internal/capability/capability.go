// Package capability builds immutable capability profiles for connected
// browser clients from their user agent and self-reported client info.
package capability

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// BrowserClass identifies the client browser or platform family.
type BrowserClass int

// Known browser classes.
const (
	BrowserUnknown BrowserClass = iota
	BrowserChrome
	BrowserMSIE
	BrowserFirefox
	BrowserSafari
	BrowserPS4
	BrowserXboxOne
	BrowserOpera
	BrowserEdge
	BrowserChromium
	BrowserVivaldi
)

// String returns the display name of the browser class.
func (b BrowserClass) String() string {
	switch b {
	case BrowserChrome:
		return "Chrome"
	case BrowserMSIE:
		return "Internet Explorer"
	case BrowserFirefox:
		return "Firefox"
	case BrowserSafari:
		return "Safari"
	case BrowserPS4:
		return "Playstation 4"
	case BrowserXboxOne:
		return "Xbox One"
	case BrowserOpera:
		return "Opera"
	case BrowserEdge:
		return "Edge"
	case BrowserChromium:
		return "Chromium"
	case BrowserVivaldi:
		return "Vivaldi"
	default:
		return "Unknown"
	}
}

// ClassifyUserAgent maps a user agent string to a browser class.
// Order matters: Edge and Chromium-derived browsers embed "chrome" in their
// user agents, so the more specific tokens are checked first.
func ClassifyUserAgent(userAgent string) BrowserClass {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "edg"):
		return BrowserEdge
	case strings.Contains(ua, "chrome"):
		return BrowserChrome
	case strings.Contains(ua, "msie"), strings.Contains(ua, "trident"):
		return BrowserMSIE
	case strings.Contains(ua, "firefox"):
		return BrowserFirefox
	case strings.Contains(ua, "safari"):
		return BrowserSafari
	case strings.Contains(ua, "playstation 4"):
		return BrowserPS4
	case strings.Contains(ua, "xbox one"):
		return BrowserXboxOne
	case strings.Contains(ua, "opera"):
		return BrowserOpera
	case strings.Contains(ua, "chromium"):
		return BrowserChromium
	case strings.Contains(ua, "vivaldi"):
		return BrowserVivaldi
	default:
		return BrowserUnknown
	}
}

// clientInfoPattern matches the structured info string reported by the web
// client on first contact.
var clientInfoPattern = regexp.MustCompile(`platform=(.+)&width=(.+)&height=(.+)&isTouchDevice=(.+)`)

// Profile is an immutable snapshot of a client's decoding and display
// capabilities, built once when the client's metadata first arrives.
//
// ScreenWidth and ScreenHeight are zero when unknown, which disables
// screen-size constraints.
type Profile struct {
	Browser      BrowserClass
	UserAgent    string // lowercased
	Platform     string
	ScreenWidth  int
	ScreenHeight int
	TouchDevice  bool
	// SlowDownlink reports whether a previously measured downlink speed fell
	// below the configured threshold. Measurement happens elsewhere; this is
	// the derived flag only.
	SlowDownlink bool
}

// NewProfile builds a profile from the user agent, the structured client info
// string, and the measured-downlink flag. A malformed or absent info string is
// not an error: screen and platform fields stay at their unknown defaults,
// which only disables screen-size constraints.
func NewProfile(userAgent, info string, slowDownlink bool, logger *slog.Logger) Profile {
	if logger == nil {
		logger = slog.Default()
	}

	p := Profile{
		Browser:      ClassifyUserAgent(userAgent),
		UserAgent:    strings.ToLower(userAgent),
		SlowDownlink: slowDownlink,
	}

	m := clientInfoPattern.FindStringSubmatch(info)
	if m == nil {
		if info != "" {
			logger.Warn("unrecognized client info string", slog.String("info", info))
		}
		return p
	}

	p.Platform = strings.ToLower(m[1])
	p.ScreenWidth = parseDimension(m[2], "width", logger)
	p.ScreenHeight = parseDimension(m[3], "height", logger)
	p.TouchDevice = m[4] == "true"

	logger.Debug("client capabilities",
		slog.String("browser", p.Browser.String()),
		slog.String("platform", p.Platform),
		slog.Int("screen_width", p.ScreenWidth),
		slog.Int("screen_height", p.ScreenHeight),
		slog.Bool("touch_device", p.TouchDevice),
	)

	return p
}

// parseDimension parses a screen dimension, substituting 0 on failure.
func parseDimension(s, field string, logger *slog.Logger) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		logger.Warn("unexpected client info value",
			slog.String("field", field),
			slog.String("value", s),
		)
		return 0
	}
	return n
}

// LowBitrate reports whether output should be bitrate-limited for this
// client. Either trigger alone is sufficient: a slow measured downlink, or a
// small screen on a mobile or touch device.
func (p Profile) LowBitrate() bool {
	return p.SlowDownlink ||
		(p.ScreenWidth < 720 && (strings.Contains(p.UserAgent, "mobi") || p.TouchDevice))
}

// ScreenSizeConstrained reports whether the client screen is smaller than the
// server render dimensions. Unknown (zero) dimensions never constrain.
func (p Profile) ScreenSizeConstrained(renderWidth, renderHeight int) bool {
	return (p.ScreenWidth != 0 && renderWidth > p.ScreenWidth) ||
		(p.ScreenHeight != 0 && renderHeight > p.ScreenHeight)
}

// VideoWidth returns the effective output width for this client.
func (p Profile) VideoWidth(renderWidth, renderHeight int) int {
	if p.ScreenSizeConstrained(renderWidth, renderHeight) {
		return p.ScreenWidth
	}
	return renderWidth
}

// VideoHeight returns the effective output height for this client.
func (p Profile) VideoHeight(renderWidth, renderHeight int) int {
	if p.ScreenSizeConstrained(renderWidth, renderHeight) {
		return p.ScreenHeight
	}
	return renderHeight
}
