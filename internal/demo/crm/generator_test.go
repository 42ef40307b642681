package crm

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestDatasetIsDeterministic(t *testing.T) {
	first := NewGenerator(7, 20, 60, 100).Dataset()
	second := NewGenerator(7, 20, 60, 100).Dataset()
	if !reflect.DeepEqual(first, second) {
		t.Fatal("same seed produced different datasets")
	}
}

func TestDatasetShape(t *testing.T) {
	dataset := NewGenerator(1, 25, 80, 150).Dataset()
	if len(dataset.Accounts) != 25 {
		t.Fatalf("accounts = %d, want 25", len(dataset.Accounts))
	}
	if len(dataset.Pipeline) != 80 {
		t.Fatalf("deals = %d, want 80", len(dataset.Pipeline))
	}
	if len(dataset.Interactions) != 150 {
		t.Fatalf("interactions = %d, want 150", len(dataset.Interactions))
	}
	if len(dataset.Products) == 0 || len(dataset.Teams) == 0 {
		t.Fatal("catalog tables are empty")
	}
	for _, deal := range dataset.Pipeline {
		if deal.DealStage == "Won" && deal.CloseValue == 0 {
			t.Fatalf("won deal %s has no close value", deal.OpportunityID)
		}
		if deal.DealStage == "Engaging" && deal.CloseDate != "" {
			t.Fatalf("engaging deal %s has a close date", deal.OpportunityID)
		}
	}
}

func TestWriteCSVDirProducesLoadableFiles(t *testing.T) {
	dir := t.TempDir()
	dataset := NewGenerator(3, 10, 30, 40).Dataset()
	if err := dataset.WriteCSVDir(dir); err != nil {
		t.Fatalf("WriteCSVDir() error = %v", err)
	}

	for _, name := range []string{"accounts.csv", "products.csv", "sales_teams.csv", "sales_pipeline.csv", "interactions.csv"} {
		file, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("open %s: %v", name, err)
		}
		records, err := csv.NewReader(file).ReadAll()
		_ = file.Close()
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(records) < 2 {
			t.Fatalf("%s has no data rows", name)
		}
	}
}
