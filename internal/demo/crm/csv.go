package crm

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// WriteCSVDir writes the dataset as one CSV per table, named the way the
// loader expects them.
func (d Dataset) WriteCSVDir(dir string) error {
	files := map[string][][]string{
		"accounts.csv":       d.accountRows(),
		"products.csv":       d.productRows(),
		"sales_teams.csv":    d.teamRows(),
		"sales_pipeline.csv": d.pipelineRows(),
		"interactions.csv":   d.interactionRows(),
	}
	for name, rows := range files {
		if err := writeCSV(filepath.Join(dir, name), rows); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

func (d Dataset) accountRows() [][]string {
	rows := [][]string{{"account_id", "account", "sector", "year_established", "revenue", "employees", "office_location"}}
	for _, a := range d.Accounts {
		rows = append(rows, []string{
			strconv.Itoa(a.AccountID), a.Account, a.Sector,
			strconv.Itoa(a.YearEstablished), formatFloat(a.Revenue),
			strconv.Itoa(a.Employees), a.OfficeLocation,
		})
	}
	return rows
}

func (d Dataset) productRows() [][]string {
	rows := [][]string{{"product_id", "product", "series", "sales_price"}}
	for _, p := range d.Products {
		rows = append(rows, []string{
			strconv.Itoa(p.ProductID), p.Product, p.Series, formatFloat(p.SalesPrice),
		})
	}
	return rows
}

func (d Dataset) teamRows() [][]string {
	rows := [][]string{{"sales_agent", "manager", "regional_office"}}
	for _, t := range d.Teams {
		rows = append(rows, []string{t.SalesAgent, t.Manager, t.RegionalOffice})
	}
	return rows
}

func (d Dataset) pipelineRows() [][]string {
	rows := [][]string{{"opportunity_id", "account_id", "product_id", "sales_agent", "product", "account", "deal_stage", "engage_date", "close_date", "close_value"}}
	for _, deal := range d.Pipeline {
		closeValue := ""
		if deal.CloseValue != 0 {
			closeValue = formatFloat(deal.CloseValue)
		}
		rows = append(rows, []string{
			deal.OpportunityID, strconv.Itoa(deal.AccountID), strconv.Itoa(deal.ProductID),
			deal.SalesAgent, deal.Product, deal.Account, deal.DealStage,
			deal.EngageDate, deal.CloseDate, closeValue,
		})
	}
	return rows
}

func (d Dataset) interactionRows() [][]string {
	rows := [][]string{{"interaction_id", "account_id", "sales_agent", "activity_type", "status", "interaction_date", "comment"}}
	for _, i := range d.Interactions {
		rows = append(rows, []string{
			strconv.Itoa(i.InteractionID), strconv.Itoa(i.AccountID), i.SalesAgent,
			i.ActivityType, i.Status, i.InteractionDate, i.Comment,
		})
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		_ = file.Close()
		return err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
