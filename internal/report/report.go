// Package report renders driver outcomes as a text table, JSON or CSV.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/eugenenazirov/kegsizer/internal/driver"
)

// Format names an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatCSV   Format = "csv"
)

// ErrUnknownFormat is returned for unsupported output formats.
var ErrUnknownFormat = errors.New("unknown report format")

// ParseFormat converts a format name to a Format.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatTable, FormatJSON, FormatCSV:
		return f, nil
	default:
		return "", fmt.Errorf("%q: %w", raw, ErrUnknownFormat)
	}
}

var header = []string{
	"enclosure", "diameter_m", "height_m", "count",
	"total_volume_m3", "liquid_volume_m3", "material_volume_m3",
	"surface_area_m2", "liquid_per_keg_m3",
	"liquid_mass_kg", "keg_mass_kg", "total_mass_kg",
	"cooling_energy_kj", "cooling_time", "error",
}

// Write renders outcomes to w in the given format.
func Write(w io.Writer, format Format, outcomes []driver.Outcome) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	case FormatCSV:
		return writeCSV(w, outcomes)
	case FormatTable:
		return writeTable(w, outcomes)
	default:
		return fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

func writeCSV(w io.Writer, outcomes []driver.Outcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, o := range outcomes {
		if err := cw.Write(record(o, 'g')); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, outcomes []driver.Outcome) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, o := range outcomes {
		if _, err := fmt.Fprintln(tw, strings.Join(record(o, 'f'), "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// record flattens an outcome. Failed enclosures carry only the enclosure and error.
func record(o driver.Outcome, fmtByte byte) []string {
	row := make([]string, len(header))
	row[0] = o.Enclosure.String()
	if o.Result == nil {
		for i := 1; i < len(row)-1; i++ {
			row[i] = "-"
		}
		row[len(row)-1] = o.Error
		return row
	}

	precision := -1
	if fmtByte == 'f' {
		precision = 4
	}
	num := func(v float64) string {
		return strconv.FormatFloat(v, fmtByte, precision, 64)
	}

	r := o.Result
	copy(row[1:], []string{
		num(r.OptimalDiameter),
		num(r.OptimalHeight),
		strconv.Itoa(r.ContainerCount),
		num(r.TotalVolume),
		num(r.LiquidVolume),
		num(r.MaterialVolume),
		num(r.TotalSurfaceArea),
		num(r.LiquidPerContainer),
		num(r.TotalLiquidMass),
		num(r.TotalContainerMass),
		num(r.TotalMass),
		num(r.CoolingEnergy),
		num(r.CoolingTime),
		"",
	})
	return row
}
