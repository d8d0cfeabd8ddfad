package app

import (
    "bytes"
    "encoding/base64"
    "errors"
    "fmt"
    "strings"

    "github.com/dustin/go-humanize"
    "github.com/jung-kurt/gofpdf"

    "github.com/hyperifyio/filmstats/internal/chart"
)

const chartImageName = "chart"

// writeReportPDF renders a one-page summary of a successful run: the answers,
// the thresholds they were computed with, and the chart when it was kept.
func writeReportPDF(outPath string, rep Report, cfg Config) error {
    if !rep.Result.OK() {
        return errors.New("no answers to report")
    }
    ans := rep.Result.Answers

    pdf := gofpdf.New("P", "mm", "A4", "")
    tr := pdf.UnicodeTranslatorFromDescriptor("")
    pdf.SetTitle("Highest-grossing films analysis", true)
    pdf.AddPage()

    pdf.SetFont("Helvetica", "B", 14)
    pdf.CellFormat(0, 8, tr("Highest-grossing films analysis"), "", 1, "L", false, 0, "")
    pdf.SetFont("Helvetica", "", 10)
    pdf.CellFormat(0, 5, tr("Source: "+rep.Source), "", 1, "L", false, 0, "")
    pdf.CellFormat(0, 5, fmt.Sprintf("Films analysed: %s", humanize.Comma(int64(rep.Films))), "", 1, "L", false, 0, "")
    pdf.Ln(4)

    opt := cfg.Analysis
    lines := []struct{ q, a string }{
        {
            fmt.Sprintf("Films grossing at least %s released before %d", dollars(opt.CountMinGross), opt.CountBeforeYear),
            humanize.Comma(int64(ans.Count)),
        },
        {
            fmt.Sprintf("Earliest film grossing at least %s", dollars(opt.EarliestMinGross)),
            ans.Earliest,
        },
        {"Correlation between Rank and Peak", fmt.Sprintf("%.6f", ans.Correlation)},
    }
    for _, l := range lines {
        pdf.SetFont("Helvetica", "B", 11)
        pdf.MultiCell(0, 6, tr(l.q), "", "L", false)
        pdf.SetFont("Helvetica", "", 11)
        pdf.MultiCell(0, 6, tr(l.a), "", "L", false)
        pdf.Ln(2)
    }

    png, ok, err := chartPNG(ans.Chart)
    if err != nil {
        return err
    }
    if ok {
        pdf.RegisterImageOptionsReader(chartImageName, gofpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
        pdf.ImageOptions(chartImageName, pdf.GetX(), pdf.GetY()+2, 170, 0, false, gofpdf.ImageOptions{ImageType: "PNG"}, 0, "")
    } else {
        pdf.SetFont("Helvetica", "I", 10)
        pdf.MultiCell(0, 5, "Chart omitted: encoded image exceeded the size limit.", "", "L", false)
    }
    if pdf.Err() {
        return pdf.Error()
    }
    return pdf.OutputFileAndClose(outPath)
}

// chartPNG decodes the PNG bytes behind a chart data URI. ok is false for the
// placeholder.
func chartPNG(uri string) ([]byte, bool, error) {
    if uri == "" || uri == chart.Placeholder { return nil, false, nil }
    const prefix = "data:image/png;base64,"
    if !strings.HasPrefix(uri, prefix) { return nil, false, fmt.Errorf("unexpected chart encoding") }
    b, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, prefix))
    if err != nil { return nil, false, fmt.Errorf("decode chart: %w", err) }
    return b, true, nil
}

func dollars(v float64) string {
    return "$" + humanize.Comma(int64(v))
}
