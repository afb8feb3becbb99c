package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"mspro-labs/phone-advisor/internal/models"
	"mspro-labs/phone-advisor/internal/recommender"
	"mspro-labs/phone-advisor/internal/searcher"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func rightAlign(cols ...int) []table.ColumnConfig {
	cfg := make([]table.ColumnConfig, len(cols))
	for i, n := range cols {
		cfg[i] = table.ColumnConfig{Number: n, Align: text.AlignRight}
	}
	return cfg
}

func renderPhones(w io.Writer, phones []models.Phone) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Phone", "Price", "RAM", "Storage", "Camera", "Battery", "Display", "Processor", "Rating"})
	for i, p := range phones {
		t.AppendRow(table.Row{
			i + 1, p.FullName, models.FormatINR(p.Price),
			fmt.Sprintf("%dGB", p.RAM), fmt.Sprintf("%dGB", p.Storage),
			fmt.Sprintf("%dMP", p.CameraMP), fmt.Sprintf("%dmAh", p.BatteryMAh),
			fmt.Sprintf("%.1f\"", p.DisplayInches), p.Processor, fmt.Sprintf("%.1f", p.Rating),
		})
	}
	t.SetColumnConfigs(rightAlign(3, 4, 5, 6, 7, 8, 10))
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d phones", len(phones))})
	t.Render()
}

func renderRecommendations(w io.Writer, recs []recommender.Recommendation, reasons []string) {
	t := newTable(w)
	header := table.Row{"#", "Phone", "Score", "Price", "RAM", "Camera", "Battery", "Rating", "Good for"}
	if reasons != nil {
		header = append(header, "Why")
	}
	t.AppendHeader(header)
	for i, r := range recs {
		row := table.Row{
			i + 1, r.FullName, fmt.Sprintf("%.1f", r.Score), models.FormatINR(r.Price),
			fmt.Sprintf("%dGB", r.RAM), fmt.Sprintf("%dMP", r.CameraMP), fmt.Sprintf("%dmAh", r.BatteryMAh),
			fmt.Sprintf("%.1f", r.Rating), strings.Join(r.UseCases(), ", "),
		}
		if reasons != nil {
			row = append(row, reasons[i])
		}
		t.AppendRow(row)
	}
	t.SetColumnConfigs(rightAlign(3, 4, 5, 6, 7, 8))
	t.Render()
}

func renderComparison(w io.Writer, a, b models.Phone, verdicts []recommender.Comparison) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Specification", a.FullName, b.FullName})
	t.AppendRows([]table.Row{
		{"Price", models.FormatINR(a.Price), models.FormatINR(b.Price)},
		{"RAM", fmt.Sprintf("%dGB", a.RAM), fmt.Sprintf("%dGB", b.RAM)},
		{"Storage", fmt.Sprintf("%dGB", a.Storage), fmt.Sprintf("%dGB", b.Storage)},
		{"Camera", fmt.Sprintf("%dMP", a.CameraMP), fmt.Sprintf("%dMP", b.CameraMP)},
		{"Battery", fmt.Sprintf("%dmAh", a.BatteryMAh), fmt.Sprintf("%dmAh", b.BatteryMAh)},
		{"Display", fmt.Sprintf("%.1f\"", a.DisplayInches), fmt.Sprintf("%.1f\"", b.DisplayInches)},
		{"Processor", a.Processor, b.Processor},
		{"Rating", fmt.Sprintf("%.1f/5", a.Rating), fmt.Sprintf("%.1f/5", b.Rating)},
	})
	t.Render()

	v := newTable(w)
	v.AppendHeader(table.Row{"Aspect", "Verdict"})
	for _, c := range verdicts {
		v.AppendRow(table.Row{c.Aspect, c.Verdict})
	}
	v.Render()
}

func renderSearchResults(w io.Writer, results []searcher.Result) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Match", "Phone", "Price", "Processor"})
	for i, r := range results {
		t.AppendRow(table.Row{i + 1, fmt.Sprintf("%.1f%%", r.Score*100), r.Phone.FullName, models.FormatINR(r.Phone.Price), r.Phone.Processor})
	}
	t.SetColumnConfigs(rightAlign(2, 4))
	t.Render()
}
