// Package export renders the project database as CSV or XLSX with the
// dashboard's column ordering, empty-column pruning and filters.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/sadewadee/dgs-scraper/internal/categorize"
	"github.com/sadewadee/dgs-scraper/internal/domain"
)

// preferredOrder is the column layout readers expect, basic project
// info first, then details, money, dates and identifiers. Columns not
// listed here sort alphabetically after these.
var preferredOrder = []string{
	"project_name", "district_name", "county_id", "district_code",
	"dsa_app_id", "ptn", "origin_id", "app_id",

	"Project Type", "Project Scope", "Project Class", "Special Type",
	"Address", "City", "zip",

	"Estimated Amt", "Contracted Amt", "Construction Change Document Amt",

	"Received Date", "Approved Date", "Closed Date",

	"Office ID", "Application #", "File #", "PTN #", "OPSC #",
	"# of incr", "scraped_at", "url",
}

// emptyValues are placeholder strings that do not count as data when
// deciding whether a column is worth exporting.
var emptyValues = map[string]struct{}{
	"": {}, "0": {}, "0.0": {}, "0.00": {}, "$0": {}, "$0.0": {}, "$0.00": {},
	"N/A": {}, "NA": {}, "n/a": {}, "na": {}, "None": {}, "none": {}, "null": {},
	"undefined": {}, "Undefined": {}, "UNDEFINED": {}, "-": {}, "--": {}, "---": {},
}

// Exporter reads projects and writes export files.
type Exporter struct {
	projects domain.ProjectRepository
}

func New(projects domain.ProjectRepository) *Exporter {
	return &Exporter{projects: projects}
}

// CSV writes the filtered project table as CSV. An empty result writes
// nothing at all, matching the dashboard's empty-download behavior.
func (e *Exporter) CSV(ctx context.Context, w io.Writer, filter *domain.ProjectFilter) error {
	fields, rows, err := e.table(ctx, filter)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)

	if err := cw.Write(fields); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(fields))
	for _, row := range rows {
		for i, field := range fields {
			record[i] = row[field]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// XLSX writes the filtered project table as a single-sheet workbook.
func (e *Exporter) XLSX(ctx context.Context, w io.Writer, filter *domain.ProjectFilter) error {
	fields, rows, err := e.table(ctx, filter)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Projects"

	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	header := make([]interface{}, len(fields))
	for i, field := range fields {
		header[i] = field
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}

	for i, row := range rows {
		record := make([]interface{}, len(fields))
		for j, field := range fields {
			record[j] = row[field]
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}

// table loads, filters and flattens projects, returning the ordered
// non-empty columns and the row maps.
func (e *Exporter) table(ctx context.Context, filter *domain.ProjectFilter) ([]string, []map[string]string, error) {
	projects, err := e.projects.ListAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load projects: %w", err)
	}

	var rows []map[string]string
	for _, p := range projects {
		row := flatten(p)
		if matchesFilter(row, filter) {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return nil, nil, nil
	}

	return orderedFields(rows), rows, nil
}

func flatten(p *domain.Project) map[string]string {
	row := make(map[string]string, len(p.Data)+1)
	for k, v := range p.Data {
		row[k] = v
	}

	if !p.ScrapedAt.IsZero() {
		row["scraped_at"] = p.ScrapedAt.Format("2006-01-02 15:04:05")
	}
	if _, ok := row["origin_id"]; !ok {
		row["origin_id"] = p.OriginID
	}
	if _, ok := row["app_id"]; !ok {
		row["app_id"] = p.AppID
	}

	return row
}

func matchesFilter(row map[string]string, filter *domain.ProjectFilter) bool {
	if filter == nil {
		return true
	}

	if filter.EstimatedAmtMin != nil {
		if amt, ok := categorize.ParseAmount(row["Estimated Amt"]); ok && amt < *filter.EstimatedAmtMin {
			return false
		}
	}

	if filter.ReceivedDateAfter != nil {
		if d, ok := categorize.ParseDate(row["Received Date"]); ok && !d.After(*filter.ReceivedDateAfter) {
			return false
		}
	}

	if filter.ApprovedDateAfter != nil {
		if d, ok := categorize.ParseDate(row["Approved Date"]); ok && !d.After(*filter.ApprovedDateAfter) {
			return false
		}
	}

	return true
}

// orderedFields selects the columns that carry data in at least one
// row, preferred columns first and the rest alphabetical.
func orderedFields(rows []map[string]string) []string {
	withData := make(map[string]bool)
	for _, row := range rows {
		for field, value := range row {
			if withData[field] {
				continue
			}
			if _, empty := emptyValues[strings.TrimSpace(value)]; !empty {
				withData[field] = true
			}
		}
	}

	fields := make([]string, 0, len(withData))
	for _, field := range preferredOrder {
		if withData[field] {
			fields = append(fields, field)
			delete(withData, field)
		}
	}

	rest := make([]string, 0, len(withData))
	for field := range withData {
		rest = append(rest, field)
	}
	sort.Strings(rest)

	return append(fields, rest...)
}
