package statement

import "time"

type dateLayout struct {
	layout       string
	twoDigitYear bool
}

var dateLayouts = []dateLayout{
	{layout: "02/01/06", twoDigitYear: true},
	{layout: "02/01/2006"},
	{layout: "02-01-2006"},
}

// parseDate reads a row date. Two-digit years always land in the 2000s.
// Unparseable dates fall back to the current time so a bad date never
// drops the row.
func (p *Parser) parseDate(text string) time.Time {
	for _, l := range dateLayouts {
		t, err := time.ParseInLocation(l.layout, text, p.location)
		if err != nil {
			continue
		}
		if l.twoDigitYear && t.Year() < 2000 {
			t = t.AddDate(100, 0, 0)
		}
		return t
	}

	p.logger.Debug("unparseable row date, using current time", "date", text)
	return p.now()
}
