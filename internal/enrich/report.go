package enrich

import (
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var reportHeader = []string{"id", "name", "address", "status", "kind", "reason", "lon", "lat"}

// WriteReport saves s as an xlsx workbook with a totals sheet and one row
// per processed record.
func WriteReport(path string, s *Summary) error {
	f := xlsx.NewFile()

	totals, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "enrich: add summary sheet")
	}
	for _, kv := range [][2]string{
		{"run_id", s.RunID},
		{"status", string(s.Status)},
		{"started_at", s.StartedAt.Format(time.RFC3339)},
		{"finished_at", s.FinishedAt.Format(time.RFC3339)},
		{"total", strconv.Itoa(s.Total)},
		{"attempted", strconv.Itoa(s.Attempted)},
		{"succeeded", strconv.Itoa(s.Succeeded)},
		{"skipped", strconv.Itoa(s.Skipped)},
		{"failed", strconv.Itoa(s.Failed)},
	} {
		row := totals.AddRow()
		row.AddCell().SetString(kv[0])
		row.AddCell().SetString(kv[1])
	}

	records, err := f.AddSheet("Records")
	if err != nil {
		return eris.Wrap(err, "enrich: add records sheet")
	}
	header := records.AddRow()
	for _, h := range reportHeader {
		header.AddCell().SetString(h)
	}
	for _, o := range s.Outcomes {
		row := records.AddRow()
		row.AddCell().SetString(strconv.FormatInt(o.LocationID, 10))
		row.AddCell().SetString(o.Name)
		row.AddCell().SetString(o.Address)
		row.AddCell().SetString(string(o.Status))
		row.AddCell().SetString(string(o.Kind))
		row.AddCell().SetString(o.Reason)
		if o.Point != nil {
			row.AddCell().SetFloat(o.Point.Lon)
			row.AddCell().SetFloat(o.Point.Lat)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "enrich: save report %s", path)
	}
	return nil
}
