package directory

import (
	"fmt"
	"net/url"
	"strings"

	errs "clubkit/pkg/errors"
	"clubkit/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	nameColumn = 0
	kitColumn  = 4
	minColumns = 5
)

// ParseRows turns the inner markup of the results table into club kit records.
// Malformed rows are skipped and reported as row_parse errors; they never
// abort the batch. Only a markup string that cannot be parsed at all yields a
// nil record slice and a single error.
func ParseRows(markup string, base *url.URL) ([]models.ClubKitRecord, []error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(asTable(markup)))
	if err != nil {
		return nil, []error{fmt.Errorf("failed to parse results table: %w", err)}
	}

	var records []models.ClubKitRecord
	var rowErrs []error

	doc.Find("tbody > tr").Each(func(i int, row *goquery.Selection) {
		rowNum := i + 1
		cells := row.ChildrenFiltered("td")

		// DataTables renders a single placeholder cell for an empty result set
		if cells.Length() == 1 && cells.HasClass("dataTables_empty") {
			return
		}

		rec, err := parseRow(cells, base, rowNum)
		if err != nil {
			rowErrs = append(rowErrs, err)
			return
		}
		records = append(records, rec)
	})

	return records, rowErrs
}

func parseRow(cells *goquery.Selection, base *url.URL, rowNum int) (models.ClubKitRecord, error) {
	if cells.Length() < minColumns {
		return models.ClubKitRecord{}, errs.RowParse(rowNum,
			fmt.Sprintf("expected at least %d cells, found %d", minColumns, cells.Length()))
	}

	name, err := DecodeClubName(cells.Eq(nameColumn).Text())
	if err != nil {
		return models.ClubKitRecord{}, errs.RowParse(rowNum, err.Error())
	}

	var urls []*url.URL
	var anchorErr error
	cells.Eq(kitColumn).Find("a").EachWithBreak(func(j int, a *goquery.Selection) bool {
		stub, ok := a.Attr("data-href")
		if !ok || strings.TrimSpace(stub) == "" {
			anchorErr = errs.RowParse(rowNum, fmt.Sprintf("kit anchor %d has no data-href", j+1))
			return false
		}
		abs, err := ResolveStub(base, stub)
		if err != nil {
			anchorErr = errs.RowParse(rowNum, fmt.Sprintf("kit anchor %d: %v", j+1, err))
			return false
		}
		urls = append(urls, abs)
		return true
	})
	if anchorErr != nil {
		return models.ClubKitRecord{}, anchorErr
	}

	return models.NewClubKitRecord(name, urls), nil
}

// RowCount returns the number of body rows in the table markup
func RowCount(markup string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(asTable(markup)))
	if err != nil {
		return 0
	}
	return doc.Find("tbody > tr").Length()
}

// DecodeClubName percent-decodes a raw name cell, treating '+' as a space,
// and trims surrounding whitespace.
func DecodeClubName(raw string) (string, error) {
	decoded, err := url.QueryUnescape(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("undecodable club name %q: %w", raw, err)
	}
	name := strings.TrimSpace(decoded)
	if name == "" {
		return "", fmt.Errorf("empty club name")
	}
	return name, nil
}

// ResolveStub joins a data-href path stub onto the site origin. Stubs that
// resolve to a different scheme or host are rejected.
func ResolveStub(base *url.URL, stub string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(stub))
	if err != nil {
		return nil, fmt.Errorf("invalid stub %q: %w", stub, err)
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != base.Scheme || abs.Host != base.Host {
		return nil, fmt.Errorf("stub %q resolves off the site origin", stub)
	}
	return abs, nil
}

// asTable wraps bare row markup so the HTML parser keeps tbody/tr/td
// elements, which it drops outside of a table context.
func asTable(markup string) string {
	if strings.Contains(strings.ToLower(markup), "<table") {
		return markup
	}
	return "<table>" + markup + "</table>"
}
