package report

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/mboahomes/trust-engine/internal/model"
)

var scoreHeader = []string{
	"Listing ID",
	"Title",
	"Documents",
	"Owner",
	"Location",
	"History",
	"Transparency",
	"Total",
	"Confidence",
	"Calculated At",
	"Expires At",
}

// WriteScoreReport writes one row per snapshot to an xlsx workbook at path.
func WriteScoreReport(path string, snapshots []model.ScoreSnapshot) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Scores")
	if err != nil {
		return eris.Wrap(err, "adding scores sheet")
	}

	header := sheet.AddRow()
	for _, h := range scoreHeader {
		header.AddCell().SetString(h)
	}

	for _, snap := range snapshots {
		row := sheet.AddRow()
		row.AddCell().SetString(snap.ListingID)
		row.AddCell().SetString(strconv.Itoa(snap.TitleScore))
		row.AddCell().SetString(strconv.Itoa(snap.DocumentsScore))
		row.AddCell().SetString(strconv.Itoa(snap.OwnerScore))
		row.AddCell().SetString(strconv.Itoa(snap.LocationScore))
		row.AddCell().SetString(strconv.Itoa(snap.HistoryScore))
		row.AddCell().SetString(strconv.Itoa(snap.TransparencyScore))
		row.AddCell().SetString(strconv.Itoa(snap.TotalScore))
		row.AddCell().SetString(string(snap.ConfidenceLevel))
		row.AddCell().SetString(snap.CalculatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(snap.ExpiresAt.Format("2006-01-02 15:04:05"))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "saving report to %s", path)
	}
	return nil
}
