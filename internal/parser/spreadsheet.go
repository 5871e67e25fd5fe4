package parser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"

	"ragbot/internal/models"
)

func (e *Extractor) extractSpreadsheet(file models.StoredFile) models.Extraction {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(file.Filename), ".csv") {
		text, err = csvText(file.Data)
	} else {
		text, err = workbookText(file.Data)
	}
	if err != nil {
		return models.Extraction{
			Strategy: models.StrategySpreadsheet,
			Status:   models.StatusUnreadable,
			Err:      fmt.Errorf("%w: %s: %v", models.ErrExtraction, file.Filename, err),
		}
	}
	return singleBlock(file.Filename, models.StrategySpreadsheet, text)
}

// workbookText renders every sheet of an xlsx workbook, one line per row with
// tab separated cells. excelize is tried first, tealeg/xlsx second.
func workbookText(data []byte) (string, error) {
	text, err := excelizeText(data)
	if err == nil {
		return text, nil
	}
	log.Debug().Err(err).Msg("excelize could not open workbook, trying xlsx reader")

	text, fallbackErr := xlsxText(data)
	if fallbackErr != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	return text, nil
}

func excelizeText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var text strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			log.Warn().Err(err).Str("sheet", sheetName).Msg("Skipping unreadable sheet")
			continue
		}
		writeSheet(&text, sheetName, rows)
	}
	return text.String(), nil
}

func xlsxText(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, sheet := range f.Sheets {
		var rows [][]string
		for _, row := range sheet.Rows {
			if row == nil {
				rows = append(rows, nil)
				continue
			}
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		writeSheet(&text, sheet.Name, rows)
	}
	return text.String(), nil
}

func csvText(data []byte) (string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("parse csv: %w", err)
	}

	var text strings.Builder
	for _, row := range records {
		writeRow(&text, row)
	}
	return text.String(), nil
}

func writeSheet(text *strings.Builder, name string, rows [][]string) {
	text.WriteString(fmt.Sprintf("## Sheet: %s\n", name))
	for _, row := range rows {
		writeRow(text, row)
	}
	text.WriteString("\n")
}

func writeRow(text *strings.Builder, row []string) {
	last := len(row)
	for last > 0 && strings.TrimSpace(row[last-1]) == "" {
		last--
	}
	for i := 0; i < last; i++ {
		if i > 0 {
			text.WriteString("\t")
		}
		text.WriteString(strings.TrimSpace(row[i]))
	}
	text.WriteString("\n")
}
