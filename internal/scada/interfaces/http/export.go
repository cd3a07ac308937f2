package http

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	scadaapp "wellpulse/internal/scada/application"
)

// BuildInventoryCSV renders the connection inventory as CSV.
func BuildInventoryCSV(connections []scadaapp.ConnectionView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := []string{"id", "well_id", "name", "endpoint_url", "security_mode", "security_policy", "poll_interval_seconds", "status", "last_connected_at", "enabled", "healthy"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, conn := range connections {
		lastConnected := ""
		if conn.LastConnectedAt != nil {
			lastConnected = *conn.LastConnectedAt
		}
		record := []string{
			conn.ID,
			conn.WellID,
			conn.Name,
			conn.EndpointURL,
			conn.SecurityMode,
			conn.SecurityPolicy,
			strconv.Itoa(conn.PollIntervalSeconds),
			conn.Status,
			lastConnected,
			strconv.FormatBool(conn.IsEnabled),
			strconv.FormatBool(conn.IsHealthy),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildInventoryXLSX renders the connection inventory as XLSX with one sheet
// of connections and one of tag mappings.
func BuildInventoryXLSX(connections []scadaapp.ConnectionView, mappings map[string][]scadaapp.TagMappingView) ([]byte, error) {
	f := excelize.NewFile()
	connSheet := "connections"
	tagSheet := "tag_mappings"
	f.SetSheetName("Sheet1", connSheet)
	f.NewSheet(tagSheet)

	connHeaders := []string{"ID", "Well", "Name", "Endpoint", "Security Mode", "Security Policy", "Poll Interval (s)", "Status", "Last Connected", "Enabled", "Healthy"}
	for i, header := range connHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(connSheet, cell, header)
	}
	for row, conn := range connections {
		lastConnected := ""
		if conn.LastConnectedAt != nil {
			lastConnected = *conn.LastConnectedAt
		}
		values := []any{conn.ID, conn.WellID, conn.Name, conn.EndpointURL, conn.SecurityMode, conn.SecurityPolicy, conn.PollIntervalSeconds, conn.Status, lastConnected, conn.IsEnabled, conn.IsHealthy}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(connSheet, cell, value)
		}
	}

	tagHeaders := []string{"Connection", "Node ID", "Tag Name", "Field Property", "Data Type", "Unit", "Scaling Factor", "Deadband", "Enabled", "Last Read"}
	for i, header := range tagHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(tagSheet, cell, header)
	}
	row := 2
	for _, conn := range connections {
		for _, mapping := range mappings[conn.ID] {
			deadband := ""
			if mapping.Deadband != nil {
				deadband = strconv.FormatFloat(*mapping.Deadband, 'f', -1, 64)
			}
			lastRead := ""
			if mapping.LastReadAt != nil {
				lastRead = *mapping.LastReadAt
			}
			values := []any{conn.Name, mapping.NodeID, mapping.TagName, mapping.FieldEntryProperty, mapping.DataType, mapping.Unit, mapping.ScalingFactor, deadband, mapping.IsEnabled, lastRead}
			for col, value := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				_ = f.SetCellValue(tagSheet, cell, value)
			}
			row++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildInventoryPDF renders a minimal PDF of the connection inventory.
func BuildInventoryPDF(connections []scadaapp.ConnectionView) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "SCADA Connection Inventory")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Connections: %d", len(connections)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(55, 6, "Name", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 6, "Endpoint", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Security", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Last Connected", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Healthy", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, conn := range connections {
		lastConnected := "-"
		if conn.LastConnectedAt != nil {
			lastConnected = *conn.LastConnectedAt
		}
		pdf.CellFormat(55, 6, conn.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(70, 6, conn.EndpointURL, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, conn.SecurityMode, "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, conn.Status, "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, lastConnected, "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, strconv.FormatBool(conn.IsHealthy), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
