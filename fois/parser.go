package fois

import (
	"errors"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/railradar/locotrack/model"
)

// ErrInvalidPosition marks a payload whose coordinate fields are not
// parseable numbers. Storing such a record would put 0,0 or NaN on the
// map, so the caller drops it instead.
var ErrInvalidPosition = errors.New("invalid position in upstream payload")

// The PopUpMsg is a few lines of ad-hoc HTML. Each labeled value runs
// until the next <br or <div tag or the end of the text.
var (
	stationRe   = regexp.MustCompile(`(?s)Station:\s*(.*?)(?:<br|<div|\z)`)
	eventRe     = regexp.MustCompile(`(?s)Event:\s*(.*?)(?:<br|<div|\z)`)
	speedRe     = regexp.MustCompile(`(?s)Speed:\s*(.*?)(?:<br|<div|\z)`)
	timestampRe = regexp.MustCompile(`\((\d{2})-(\d{2})\s(\d{2}):(\d{2}):(\d{2})\)`)
	tagRe       = regexp.MustCompile(`<[^>]*>`)
)

// Parser turns a raw FOIS detail payload into an Observation. It is
// pure apart from the injected clock, which supplies the year for the
// upstream's partial DD-MM timestamps and the fallback capture time.
type Parser struct {
	now func() time.Time
	loc *time.Location
}

// NewParser creates a Parser reporting timestamps in loc. A nil
// location falls back to UTC.
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{now: time.Now, loc: loc}
}

// NewParserWithClock is NewParser with an injected clock for tests.
func NewParserWithClock(loc *time.Location, now func() time.Time) *Parser {
	p := NewParser(loc)
	p.now = now
	return p
}

// Parse extracts an Observation for locoNo from raw. It returns
// (nil, nil) when the payload carries no position report — an expected
// upstream answer, not an error — and ErrInvalidPosition when the
// coordinate fields fail to parse.
func (p *Parser) Parse(locoNo int, raw []byte) (*model.Observation, error) {
	var resp foisResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, err
	}
	if len(resp.LocoDtls) == 0 || resp.LocoDtls[0].PopUpMsg == "" {
		return nil, nil
	}
	details := resp.LocoDtls[0]

	lat, latErr := details.Lttd.Float()
	lon, lonErr := details.Lgtd.Float()
	if latErr != nil || lonErr != nil || math.IsNaN(lat) || math.IsNaN(lon) {
		return nil, ErrInvalidPosition
	}

	msg := details.PopUpMsg
	return &model.Observation{
		LocoNo:     locoNo,
		Latitude:   lat,
		Longitude:  lon,
		Station:    matchField(stationRe, msg),
		Event:      matchField(eventRe, msg),
		Speed:      matchSpeed(msg),
		ObservedAt: model.NewRFC3339Time(p.reportedAt(locoNo, msg)),
	}, nil
}

// matchField extracts a labeled value, strips markup and trims it.
// A missing label yields "N/A".
func matchField(re *regexp.Regexp, msg string) string {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		return "N/A"
	}
	v := strings.TrimSpace(tagRe.ReplaceAllString(m[1], ""))
	if v == "" {
		return "N/A"
	}
	return v
}

// matchSpeed parses the leading integer of the Speed value, tolerating
// trailing units text. Anything unparseable clamps to 0.
func matchSpeed(msg string) int {
	m := speedRe.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}
	v := strings.TrimSpace(tagRe.ReplaceAllString(m[1], ""))
	speed := 0
	seen := false
	for _, r := range v {
		if r < '0' || r > '9' {
			break
		}
		speed = speed*10 + int(r-'0')
		seen = true
	}
	if !seen {
		return 0
	}
	return speed
}

// reportedAt reconstructs the full observation time from the upstream
// "(DD-MM HH:MM:SS)" fragment plus the current year. A missing or
// malformed fragment falls back to the capture time, which keeps the
// record usable at the cost of a weaker uniqueness key.
func (p *Parser) reportedAt(locoNo int, msg string) time.Time {
	now := p.now().In(p.loc)
	m := timestampRe.FindStringSubmatch(msg)
	if m == nil {
		log.Debug().Int("loco", locoNo).Msg("no timestamp in popup message, using capture time")
		return now
	}
	day := atoi2(m[1])
	month := atoi2(m[2])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		log.Debug().Int("loco", locoNo).Str("fragment", m[0]).Msg("malformed timestamp fragment, using capture time")
		return now
	}
	return time.Date(now.Year(), time.Month(month), day,
		atoi2(m[3]), atoi2(m[4]), atoi2(m[5]), 0, p.loc)
}

// atoi2 parses a two-digit fragment already vetted by the regexp.
func atoi2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
