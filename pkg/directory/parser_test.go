package directory

import (
	"fmt"
	"net/url"
	"strings"
	"testing"

	errs "clubkit/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testBase, _ = url.Parse("https://www.britishcycling.org.uk/")

func row(name string, anchors ...string) string {
	var kit strings.Builder
	for _, a := range anchors {
		fmt.Fprintf(&kit, `<a href="#" data-href="%s"><img src="/zuvvi/thumb.jpg"></a>`, a)
	}
	return fmt.Sprintf(`<tr><td>%s</td><td>North</td><td>Road</td><td>2024</td><td>%s</td></tr>`, name, kit.String())
}

func table(rows ...string) string {
	return `<thead><tr><th>Club</th><th>Region</th><th>Type</th><th>Year</th><th>Kit</th></tr></thead><tbody>` +
		strings.Join(rows, "") + `</tbody>`
}

func TestParseRowsDecodesNameAndResolvesLinks(t *testing.T) {
	records, rowErrs := ParseRows(table(row("Acme%20CC", "/img/a.jpg", "/img/b.png")), testBase)

	require.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, "Acme CC", records[0].ClubName())

	urls := records[0].KitImageURLs()
	require.Len(t, urls, 2)
	assert.Equal(t, "https://www.britishcycling.org.uk/img/a.jpg", urls[0].String())
	assert.Equal(t, "https://www.britishcycling.org.uk/img/b.png", urls[1].String())
}

func TestParseRowsAnchorCountAndOrder(t *testing.T) {
	for n := 0; n <= 6; n++ {
		t.Run(fmt.Sprintf("%d anchors", n), func(t *testing.T) {
			var stubs []string
			for i := 0; i < n; i++ {
				stubs = append(stubs, fmt.Sprintf("/kits/%d.jpg", i))
			}

			records, rowErrs := ParseRows(table(row("Club", stubs...)), testBase)
			require.Empty(t, rowErrs)
			require.Len(t, records, 1)

			urls := records[0].KitImageURLs()
			require.Len(t, urls, n)
			for i, u := range urls {
				assert.True(t, u.IsAbs())
				assert.Equal(t, testBase.Host, u.Host)
				assert.Equal(t, fmt.Sprintf("/kits/%d.jpg", i), u.Path)
			}
		})
	}
}

func TestParseRowsPlusIsSpace(t *testing.T) {
	records, _ := ParseRows(table(row("  Velo+Club%20Nord  ")), testBase)
	require.Len(t, records, 1)
	assert.Equal(t, "Velo Club Nord", records[0].ClubName())
}

func TestParseRowsSkipsMalformedRows(t *testing.T) {
	markup := table(
		row("First%20CC", "/img/1.jpg"),
		`<tr><td>Short</td><td>row</td></tr>`,
		row("%20%20"),
		row("Bad%zzName"),
		`<tr><td>NoHref</td><td></td><td></td><td></td><td><a href="/x">kit</a></td></tr>`,
		row("Offsite", "https://evil.example.com/a.jpg"),
		row("Last%20CC"),
	)

	records, rowErrs := ParseRows(markup, testBase)

	require.Len(t, records, 2)
	assert.Equal(t, "First CC", records[0].ClubName())
	assert.Equal(t, "Last CC", records[1].ClubName())

	require.Len(t, rowErrs, 5)
	for i, err := range rowErrs {
		assert.True(t, errs.Is(err, errs.ErrorTypeRowParse), "error %d: %v", i, err)
	}
	assert.Contains(t, rowErrs[0].Error(), "(row 2)")
	assert.Contains(t, rowErrs[4].Error(), "off the site origin")
}

func TestParseRowsEmptyTable(t *testing.T) {
	records, rowErrs := ParseRows(table(`<tr><td class="dataTables_empty" colspan="5">No data available in table</td></tr>`), testBase)
	assert.Empty(t, records)
	assert.Empty(t, rowErrs)

	records, rowErrs = ParseRows("", testBase)
	assert.Empty(t, records)
	assert.Empty(t, rowErrs)
}

func TestParseRowsAcceptsFullTableMarkup(t *testing.T) {
	records, rowErrs := ParseRows(`<table id="club_kits_table">`+table(row("Acme%20CC", "/img/a.jpg"))+`</table>`, testBase)
	require.Empty(t, rowErrs)
	require.Len(t, records, 1)
}

func TestSnapshotSameMarkup(t *testing.T) {
	a := Snapshot{Markup: table(row("A"))}
	b := Snapshot{Markup: table(row("A"))}
	c := Snapshot{Markup: table(row("C"))}

	assert.True(t, a.SameMarkup(b))
	assert.False(t, a.SameMarkup(c))

	records, _ := a.Records(testBase)
	assert.Len(t, records, 1)
}
