// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"

	"github.com/wneessen/troncon/internal/config"
	"github.com/wneessen/troncon/internal/resolver"
	"github.com/wneessen/troncon/internal/troncon"
)

// RecordView wraps a resolver Record with presentation-related fields.
type RecordView struct {
	Index    int                `json:"index"`
	Point    troncon.GeoPoint   `json:"point"`
	PointB   *troncon.GeoPoint  `json:"point_b,omitempty"`
	Street   string             `json:"street,omitempty"`
	City     string             `json:"city,omitempty"`
	Begin    string             `json:"begin,omitempty"`
	End      string             `json:"end,omitempty"`
	Rank     int                `json:"rank,omitempty"`
	Polyline []troncon.GeoPoint `json:"polyline,omitempty"`
	Error    string             `json:"error,omitempty"`
}

type Presenter struct {
	point *template.Template
	pair  *template.Template
}

func New(conf *config.Config) (*Presenter, error) {
	pres := new(Presenter)

	tpl, err := template.New("point").Funcs(templateFuncMap()).Parse(conf.Output.Templates.Point)
	if err != nil {
		return nil, fmt.Errorf("failed to parse point template: %w", err)
	}
	pres.point = tpl

	tpl, err = template.New("pair").Funcs(templateFuncMap()).Parse(conf.Output.Templates.Pair)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pair template: %w", err)
	}
	pres.pair = tpl

	return pres, nil
}

// Views converts records into views. Indexes are 1-based.
func (p *Presenter) Views(records []resolver.Record) []RecordView {
	views := make([]RecordView, len(records))
	for i, record := range records {
		view := RecordView{
			Index:    i + 1,
			Street:   record.Street,
			City:     record.City,
			Begin:    record.Segment.NameA,
			End:      record.Segment.NameB,
			Rank:     record.Rank,
			Polyline: record.Polyline,
		}
		if len(record.Points) > 0 {
			view.Point = record.Points[0]
		}
		if len(record.Points) > 1 {
			pointB := record.Points[1]
			view.PointB = &pointB
		}
		if record.Err != nil {
			view.Error = record.Err.Error()
		}
		views[i] = view
	}
	return views
}

// Render writes records to w in the given format.
func (p *Presenter) Render(w io.Writer, format string, records []resolver.Record) error {
	switch format {
	case config.FormatText:
		return p.Text(w, records)
	case config.FormatTable:
		return p.Table(w, records)
	case config.FormatJSON:
		return p.JSON(w, records)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// Text renders one line per record using the point or pair template.
func (p *Presenter) Text(w io.Writer, records []resolver.Record) error {
	for _, view := range p.Views(records) {
		if view.Error != "" {
			if _, err := fmt.Fprintf(w, "point %d at (%s): %s\n", view.Index, coord(view.Point), view.Error); err != nil {
				return fmt.Errorf("failed to write record: %w", err)
			}
			continue
		}
		tpl := p.point
		if view.PointB != nil {
			tpl = p.pair
		}
		if err := tpl.Execute(w, view); err != nil {
			return fmt.Errorf("failed to render %s template: %w", tpl.Name(), err)
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

// Table renders the records as aligned columns.
func (p *Presenter) Table(w io.Writer, records []resolver.Record) error {
	views := p.Views(records)
	pairs := false
	failed := false
	for _, view := range views {
		pairs = pairs || view.PointB != nil
		failed = failed || view.Error != ""
	}

	header := []string{"latitude", "longitude", "street", "begin", "end", "rank", "city"}
	if pairs {
		header = []string{"latitude1", "longitude1", "latitude2", "longitude2", "street", "begin", "end", "city"}
	}
	if failed {
		header = append(header, "error")
	}
	rows := [][]string{header}
	for _, view := range views {
		row := []string{floatFormat(view.Point.Lat, -1), floatFormat(view.Point.Lon, -1)}
		if pairs {
			var pointB troncon.GeoPoint
			if view.PointB != nil {
				pointB = *view.PointB
			}
			row = append(row, floatFormat(pointB.Lat, -1), floatFormat(pointB.Lon, -1),
				view.Street, view.Begin, view.End, view.City)
		} else {
			rank := ""
			if view.Rank > 0 {
				rank = strconv.Itoa(view.Rank)
			}
			row = append(row, view.Street, view.Begin, view.End, rank, view.City)
		}
		if failed {
			row = append(row, view.Error)
		}
		rows = append(rows, row)
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i == len(row)-1 {
				cells[i] = cell
				continue
			}
			cells[i] = runewidth.FillRight(cell, widths[i])
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "  ")); err != nil {
			return fmt.Errorf("failed to write table row: %w", err)
		}
	}
	return nil
}

// JSON writes the record views as an indented JSON array.
func (p *Presenter) JSON(w io.Writer, records []resolver.Record) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(p.Views(records)); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}
